package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func skillsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "skills",
		Short: "List the skills of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := g.catalog()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCOST\tDAMAGE\tCOOLDOWN\tRECOVER")
			for _, s := range cat.Skills() {
				restore := "-"
				if s.HPRecover > 0 || s.MPRecover > 0 {
					restore = fmt.Sprintf("hp+%d mp+%d", s.HPRecover, s.MPRecover)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n", s.ID, s.Name, s.Cost, s.Damage, s.Cooldown, restore)
			}
			return w.Flush()
		},
	}
}

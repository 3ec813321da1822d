// Command xianxia runs turn-timeline battles in the terminal or behind the
// HTTP battle API.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

package narration

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/okian/xianxia/internal/domain/model"
)

// Colors accepted in (color...) markup.
const (
	ColorRed    = "red"
	ColorGreen  = "green"
	ColorBlue   = "blue"
	ColorYellow = "yellow"
	ColorBisque = "bisque"
)

var colors = []string{ColorRed, ColorGreen, ColorBlue, ColorYellow, ColorBisque}

// DisplayName is the participant's name, or its id in title case when the
// catalog gave it none.
func DisplayName(p model.Participant) string {
	if p.Name != "" {
		return p.Name
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(p.ID), "_", " "))
}

// Sentence upper-cases the first letter of s unless s opens with markup.
func Sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == '(' {
		return s
	}
	return cases.Upper(language.English).String(s[:size]) + s[size:]
}

// Units splits text into typewriter units: a run of ASCII letters is one
// unit and every other rune is a unit of its own.
func Units(text string) []string {
	var out []string
	for i := 0; i < len(text); {
		if isASCIILetter(text[i]) {
			j := i
			for j < len(text) && isASCIILetter(text[j]) {
				j++
			}
			out = append(out, text[i:j])
			i = j
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		out = append(out, text[i:i+size])
		i += size
	}
	return out
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Segment is a run of text with an optional color.
type Segment struct {
	Color string
	Text  string
}

// Segments splits a rendered line on (color...) markup. A parenthesis that
// does not open a known color, or that is never closed, is plain text.
func Segments(line string) []Segment {
	var (
		out   []Segment
		plain strings.Builder
	)
	flush := func() {
		if plain.Len() > 0 {
			out = append(out, Segment{Text: plain.String()})
			plain.Reset()
		}
	}
	for len(line) > 0 {
		open := strings.IndexByte(line, '(')
		if open < 0 {
			plain.WriteString(line)
			break
		}
		plain.WriteString(line[:open])
		rest := line[open+1:]
		color, ok := colorPrefix(rest)
		end := strings.IndexByte(rest, ')')
		if !ok || end < len(color) {
			plain.WriteByte('(')
			line = rest
			continue
		}
		flush()
		out = append(out, Segment{Color: color, Text: rest[len(color):end]})
		line = rest[end+1:]
	}
	flush()
	return out
}

func colorPrefix(s string) (string, bool) {
	for _, c := range colors {
		if strings.HasPrefix(s, c) {
			return c, true
		}
	}
	return "", false
}

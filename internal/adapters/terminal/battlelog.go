// Package terminal is the console front end of a battle: it renders the
// typed battle log and feeds the player's choices back onto the bus.
package terminal

import (
	"io"
	"strings"
	"sync"

	"github.com/okian/xianxia/internal/adapters/mq/bus"
	"github.com/okian/xianxia/internal/domain/event"
	"github.com/okian/xianxia/internal/domain/narration"
)

const (
	ansiReset     = "\x1b[0m"
	ansiClearLine = "\r\x1b[K"
)

var ansiColors = map[string]string{
	narration.ColorRed:    "\x1b[31m",
	narration.ColorGreen:  "\x1b[32m",
	narration.ColorYellow: "\x1b[33m",
	narration.ColorBlue:   "\x1b[34m",
	narration.ColorBisque: "\x1b[38;5;223m",
}

// BattleLog assembles APPEND_BATTLE_LOG units into paragraphs and writes
// them to out.
//
// In live mode the paragraph being typed is redrawn in place after every
// unit. Otherwise a paragraph is written once the next one starts, and the
// last one on Flush.
type BattleLog struct {
	mu         sync.Mutex
	out        io.Writer
	color      bool
	live       bool
	paragraphs []string
	buffered   []string
	join       string
	written    int

	client *bus.Client
}

// LogOption applies a configuration option to the BattleLog.
type LogOption func(*BattleLog)

// WithColor turns (color...) markup into ANSI escapes. Without it the
// markup is stripped.
func WithColor(on bool) LogOption {
	return func(l *BattleLog) { l.color = on }
}

// WithLive redraws the current paragraph as it is typed.
func WithLive(on bool) LogOption {
	return func(l *BattleLog) { l.live = on }
}

// NewBattleLog renders the battle log of b to out until Close.
func NewBattleLog(b *bus.Bus, out io.Writer, opts ...LogOption) *BattleLog {
	l := &BattleLog{out: out, client: b.NewClient()}
	for _, opt := range opts {
		opt(l)
	}
	bus.On(l.client, func(e event.AppendBattleLog) { l.Append(e.Entry) })
	return l
}

// Append applies one log entry.
func (l *BattleLog) Append(entry event.LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.JoinOperator != "" {
		l.join = entry.JoinOperator
		return
	}
	if entry.Buffer {
		l.buffered = append(l.buffered, entry.Content)
		return
	}

	before := len(l.paragraphs)
	switch {
	case before == 0:
		l.paragraphs = append(l.paragraphs, entry.Content)
	case entry.NewParagraph || len(l.buffered) > 0:
		l.paragraphs = append(l.paragraphs, l.buffered...)
		l.paragraphs = append(l.paragraphs, entry.Content)
	default:
		l.paragraphs[before-1] += l.join + entry.Content
	}
	l.buffered = l.buffered[:0]
	l.join = ""

	if l.live {
		l.redraw(before)
	} else {
		l.writeUpTo(len(l.paragraphs) - 1)
	}
}

// redraw rewrites the screen after paragraphs[before:] appeared, or after
// the last paragraph grew when nothing new appeared.
func (l *BattleLog) redraw(before int) {
	var b strings.Builder
	if before == len(l.paragraphs) {
		b.WriteString(ansiClearLine)
		b.WriteString(l.render(l.paragraphs[before-1]))
	} else {
		if before > 0 {
			b.WriteByte('\n')
		}
		for i := before; i < len(l.paragraphs); i++ {
			if i > before {
				b.WriteByte('\n')
			}
			b.WriteString(l.render(l.paragraphs[i]))
		}
	}
	l.written = len(l.paragraphs)
	_, _ = io.WriteString(l.out, b.String())
}

// writeUpTo writes every unwritten paragraph before index n.
func (l *BattleLog) writeUpTo(n int) {
	var b strings.Builder
	for ; l.written < n; l.written++ {
		b.WriteString(l.render(l.paragraphs[l.written]))
		b.WriteByte('\n')
	}
	if b.Len() > 0 {
		_, _ = io.WriteString(l.out, b.String())
	}
}

// Flush writes whatever has not been written and ends the current line.
func (l *BattleLog) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.live {
		if len(l.paragraphs) > 0 {
			_, _ = io.WriteString(l.out, "\n")
		}
		return
	}
	l.writeUpTo(len(l.paragraphs))
}

// Paragraphs returns the assembled log with markup intact.
func (l *BattleLog) Paragraphs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paragraphs...)
}

// Close stops listening and flushes.
func (l *BattleLog) Close() {
	l.client.Destroy()
	l.Flush()
}

func (l *BattleLog) render(paragraph string) string {
	var b strings.Builder
	for _, seg := range narration.Segments(paragraph) {
		code, ok := ansiColors[seg.Color]
		if !l.color || !ok {
			b.WriteString(seg.Text)
			continue
		}
		b.WriteString(code)
		b.WriteString(seg.Text)
		b.WriteString(ansiReset)
	}
	return b.String()
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/relaychat/internal/transcript"
	"github.com/jeranaias/relaychat/internal/ui/styles"
)

// Printer mirrors a transcript onto a plain terminal. Appends are printed as
// they arrive; a rewrite of the last line (the thinking indicator) is done
// with a carriage return and clear-line; anything larger clears the screen
// and prints the transcript again.
type Printer struct {
	out     *termenv.Output
	tr      *transcript.Transcript
	styles  map[transcript.Kind]termenv.Style
	printed string
}

// NewPrinter creates a printer for tr writing to w with the given color
// profile. dark selects the dark variant of each color.
func NewPrinter(w io.Writer, profile termenv.Profile, dark bool, tr *transcript.Transcript) *Printer {
	out := termenv.NewOutput(w, termenv.WithProfile(profile))
	return &Printer{
		out:    out,
		tr:     tr,
		styles: kindStyles(out, dark),
	}
}

// Flush prints whatever changed since the last flush.
func (p *Printer) Flush() {
	text := p.tr.Text()
	if text == p.printed {
		return
	}

	switch {
	case strings.HasPrefix(text, p.printed):
		p.write(len(p.printed))

	case text == "":
		p.out.ClearScreen()

	default:
		common := commonPrefix(p.printed, text)
		if strings.Contains(p.printed[len(common):], "\n") {
			p.out.ClearScreen()
			p.write(0)
			break
		}
		lineStart := strings.LastIndex(common, "\n") + 1
		p.out.WriteString("\r")
		p.out.ClearLine()
		p.write(lineStart)
	}
	p.printed = text
}

// write prints the transcript from byte offset from onward.
func (p *Printer) write(from int) {
	off := 0
	for _, seg := range p.tr.Segments() {
		end := off + len(seg.Text)
		if end > from {
			p.writeStyled(seg.Text[max(from-off, 0):], seg.Kind)
		}
		off = end
	}
}

// writeStyled styles each line separately so escape codes never span a
// newline.
func (p *Printer) writeStyled(text string, kind transcript.Kind) {
	style, ok := p.styles[kind]
	if !ok {
		style = p.styles[transcript.KindBody]
	}
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			p.out.WriteString("\n")
		}
		if line != "" {
			p.out.WriteString(style.Styled(line))
		}
	}
}

// commonPrefix returns the longest common prefix of a and b that ends on a
// rune boundary.
func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	for i > 0 && i < len(a) && !utf8.RuneStart(a[i]) {
		i--
	}
	return a[:i]
}

// kindStyles maps transcript kinds to termenv styles using the theme palette.
func kindStyles(out *termenv.Output, dark bool) map[transcript.Kind]termenv.Style {
	color := func(c lipgloss.AdaptiveColor) termenv.Color {
		if dark {
			return out.Color(c.Dark)
		}
		return out.Color(c.Light)
	}
	fg := func(c lipgloss.AdaptiveColor) termenv.Style {
		return out.String().Foreground(color(c))
	}

	body := fg(styles.TextPrimary)
	return map[transcript.Kind]termenv.Style{
		transcript.KindBody:            body,
		transcript.KindBold:            fg(styles.AccentRed).Bold(),
		transcript.KindHeading1:        fg(styles.AccentRed).Bold().Underline(),
		transcript.KindHeading2:        fg(styles.AccentRed).Bold(),
		transcript.KindHeading3:        fg(styles.AccentRedSoft).Bold(),
		transcript.KindListItem:        fg(styles.AccentRedSoft),
		transcript.KindThinking:        fg(styles.AccentRedSoft).Italic(),
		transcript.KindTimestamp:       fg(styles.TextMuted),
		transcript.KindUserHeader:      fg(styles.Info).Bold(),
		transcript.KindAssistantHeader: fg(styles.AccentRed).Bold(),
		transcript.KindSystemHeader:    fg(styles.Warning).Bold(),
		transcript.KindUserBody:        body,
		transcript.KindSystemBody:      fg(styles.Warning),
	}
}

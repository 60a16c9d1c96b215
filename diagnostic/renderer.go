// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/issue"
)

// tabWidth is the number of columns a tab is expanded to.
const tabWidth = 4

// Renderer formats diagnostics.  A Renderer caches the files it reads and
// is not safe for concurrent use.
type Renderer struct {
	Color ColorMode

	// SourceReader reads the files named by spans.  When nil os.ReadFile
	// is used.
	SourceReader func(string) ([]byte, error)

	sources map[string][]string
}

// Render writes d to w.
func (r *Renderer) Render(w io.Writer, d Diagnostic) error {
	p := choosePalette(r.Color, w)
	var b strings.Builder
	sev := p.severity(d.Severity)
	b.WriteString(sev + d.Severity.String())
	if d.Code != "" {
		b.WriteString("[" + d.Code + "]")
	}
	fmt.Fprintf(&b, "%s: %s%s%s\n", p.reset, p.bold, d.Message, p.reset)
	for _, s := range d.Spans {
		r.writeSpan(&b, s, sev, p)
	}
	for _, note := range d.Notes {
		fmt.Fprintf(&b, "   %s=%s note: %s\n", p.note, p.reset, note)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderAll writes diags to w separated by blank lines.
func (r *Renderer) RenderAll(w io.Writer, diags []Diagnostic) error {
	for i, d := range diags {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := r.Render(w, d); err != nil {
			return err
		}
	}
	return nil
}

// writeSpan writes the location of s and the lines it covers.  Only the
// first two and the last line of a long span are shown.
func (r *Renderer) writeSpan(b *strings.Builder, s Span, mark string, p palette) {
	fmt.Fprintf(b, "  %s-->%s %s:%d:%d\n", p.gutter, p.reset, s.File, s.Range.Line(), s.Range.Col())

	lines := r.lines(s.File)
	first := int(s.Range.Start.Row) + 1
	last := max(int(s.Range.End.Row)+1, first)
	if first > len(lines) {
		fmt.Fprintf(b, "   %s|%s\n", p.gutter, p.reset)
		return
	}
	last = min(last, len(lines))

	width := len(strconv.Itoa(last))
	gutter := func(num string) {
		fmt.Fprintf(b, " %s%*s |%s", p.gutter, width, num, p.reset)
	}
	gutter("")
	b.WriteString("\n")
	for row := first; row <= last; row++ {
		if row > first+1 && row < last {
			if row == first+2 {
				fmt.Fprintf(b, " %s...%s\n", p.gutter, p.reset)
			}
			continue
		}
		text := lines[row-1]
		gutter(strconv.Itoa(row))
		b.WriteString("  " + strings.ReplaceAll(text, "\t", strings.Repeat(" ", tabWidth)) + "\n")

		from, to := underline(text, row, first, last, s.Range)
		gutter("")
		fmt.Fprintf(b, "  %s%s%s%s",
			strings.Repeat(" ", displayWidth(text[:from])),
			mark, strings.Repeat("^", max(displayWidth(text[from:to]), 1)), p.reset)
		if row == last && s.Label != "" {
			fmt.Fprintf(b, " %s%s%s", mark, s.Label, p.reset)
		}
		b.WriteString("\n")
	}
	gutter("")
	b.WriteString("\n")
}

// underline returns the byte columns of text to underline on a row of a
// span covering rows first to last.
func underline(text string, row, first, last int, rng ast.Range) (from, to int) {
	if row == first {
		from = min(int(rng.Start.Column), len(text))
	} else {
		from = len(text) - len(strings.TrimLeft(text, " \t"))
	}
	to = len(text)
	if row == last {
		if first == last && rng.EndByte <= rng.StartByte {
			to = tokenEnd(text, from)
		} else {
			to = min(int(rng.End.Column), len(text))
		}
	}
	return from, max(to, from)
}

// tokenEnd returns the end of the token of text starting at from.
func tokenEnd(text string, from int) int {
	end := from
	for end < len(text) {
		ch, size := utf8.DecodeRuneInString(text[end:])
		if strings.ContainsRune(" \t()[]{};,", ch) {
			break
		}
		end += size
	}
	return end
}

func displayWidth(s string) int {
	w := 0
	for _, ch := range s {
		if ch == '\t' {
			w += tabWidth
		} else {
			w++
		}
	}
	return w
}

// lines returns the lines of file.  Unreadable files have none.
func (r *Renderer) lines(file string) []string {
	if file == "" || file == "-" {
		return nil
	}
	if lines, ok := r.sources[file]; ok {
		return lines
	}
	read := r.SourceReader
	if read == nil {
		read = os.ReadFile
	}
	var lines []string
	if data, err := read(file); err == nil {
		lines = strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	}
	if r.sources == nil {
		r.sources = make(map[string][]string)
	}
	r.sources[file] = lines
	return lines
}

// severity returns the escape sequence marking sev.
func (p palette) severity(sev issue.Severity) string {
	switch sev {
	case issue.SeverityWarning:
		return p.warning
	case issue.SeverityHint:
		return p.hint
	default:
		return p.error
	}
}

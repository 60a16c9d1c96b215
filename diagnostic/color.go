// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// ColorMode selects when output is colored.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ParseColorMode parses "auto", "always" or "never".  The empty string is
// auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	}
	return ColorAuto, fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
}

func (m ColorMode) String() string {
	switch m {
	case ColorAlways:
		return "always"
	case ColorNever:
		return "never"
	default:
		return "auto"
	}
}

// palette holds the escape sequences used by the renderer.  The zero
// palette renders plain text.
type palette struct {
	bold    string
	error   string
	warning string
	hint    string
	gutter  string
	note    string
	reset   string
}

func sgr(codes ...string) string {
	return termenv.CSI + strings.Join(codes, ";") + "m"
}

var ansiPalette = palette{
	bold:    sgr(termenv.BoldSeq),
	error:   sgr(termenv.BoldSeq, termenv.ANSIRed.Sequence(false)),
	warning: sgr(termenv.BoldSeq, termenv.ANSIYellow.Sequence(false)),
	hint:    sgr(termenv.BoldSeq, termenv.ANSIGreen.Sequence(false)),
	gutter:  sgr(termenv.BoldSeq, termenv.ANSIBlue.Sequence(false)),
	note:    sgr(termenv.BoldSeq, termenv.ANSICyan.Sequence(false)),
	reset:   sgr(termenv.ResetSeq),
}

// choosePalette returns the palette for mode.  ColorAuto colors only
// terminals, and never when NO_COLOR is set.
func choosePalette(mode ColorMode, w io.Writer) palette {
	switch mode {
	case ColorAlways:
		return ansiPalette
	case ColorNever:
		return palette{}
	}
	f, ok := w.(*os.File)
	if !ok || termenv.EnvNoColor() {
		return palette{}
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return palette{}
	}
	return ansiPalette
}

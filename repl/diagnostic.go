// Copyright © 2024 The ELPS authors

package repl

import (
	"fmt"
	"io"

	"github.com/luthersystems/phpsema/diagnostic"
	"github.com/luthersystems/phpsema/types"
	"github.com/luthersystems/phpsema/value"
)

// printReply writes the issues of one input followed by the type of its
// expression.
func printReply(w io.Writer, color diagnostic.ColorMode, input string, reply *Reply) {
	r := &diagnostic.Renderer{
		Color: color,
		SourceReader: func(string) ([]byte, error) {
			return []byte(input), nil
		},
	}
	for _, i := range reply.Issues {
		_ = r.Render(w, diagnostic.FromIssue(InputName, i))
	}
	if reply.Rejected {
		fmt.Fprintln(w, "input discarded") //nolint:errcheck // best-effort REPL output
		return
	}
	if reply.Result != nil {
		fmt.Fprintln(w, resultText(reply.Result.Type, reply.Result.Value)) //nolint:errcheck // best-effort REPL output
	}
}

// resultText renders an inferred type and value as "int = 42".
func resultText(t *types.UnionType, v *value.Value) string {
	text := t.String()
	if v != nil {
		text += " = " + v.String()
	}
	return text
}

// Copyright © 2024 The ELPS authors

package lsp

import (
	"strings"
	"unicode/utf8"

	"github.com/luthersystems/phpsema/ast"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// LSP positions count UTF-16 code units while tree positions count bytes.

// lineStart returns the byte offset where the 0-based line begins, or -1
// past the last line.
func lineStart(content string, line int) int {
	pos := 0
	for l := 0; l < line; l++ {
		i := strings.IndexByte(content[pos:], '\n')
		if i < 0 {
			return -1
		}
		pos += i + 1
	}
	return pos
}

// offsetAt converts an LSP position to a byte offset of content.
// Positions past the end of a line clamp to the line end.
func offsetAt(content string, pos protocol.Position) uint {
	start := lineStart(content, int(pos.Line))
	if start < 0 {
		return uint(len(content))
	}
	units := int(pos.Character)
	i := start
	for i < len(content) && content[i] != '\n' && units > 0 {
		r, size := utf8.DecodeRuneInString(content[i:])
		units -= utf16Len(r)
		i += size
	}
	return uint(i)
}

// toPosition converts a tree position to an LSP position.
func toPosition(content string, p ast.Point) protocol.Position {
	start := lineStart(content, int(p.Row))
	if start < 0 {
		return protocol.Position{Line: safeUint(int(p.Row)), Character: safeUint(int(p.Column))}
	}
	end := start + int(p.Column)
	if end > len(content) {
		end = len(content)
	}
	units := 0
	for _, r := range content[start:end] {
		units += utf16Len(r)
	}
	return protocol.Position{Line: safeUint(int(p.Row)), Character: safeUint(units)}
}

// toRange converts a tree range to an LSP range.
func toRange(content string, r ast.Range) protocol.Range {
	return protocol.Range{
		Start: toPosition(content, r.Start),
		End:   toPosition(content, r.End),
	}
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

// safeUint converts a non-negative int to protocol.UInteger, clamping
// negative values to zero.
func safeUint(n int) protocol.UInteger {
	if n < 0 {
		return 0
	}
	return protocol.UInteger(n) // #nosec G115 -- line/col are always small positive ints
}

// wordBefore returns the identifier, variable or qualified name ending at
// offset.
func wordBefore(content string, offset uint) string {
	end := int(offset)
	if end > len(content) {
		end = len(content)
	}
	start := end
	for start > 0 && isWordByte(content[start-1]) {
		start--
	}
	return content[start:end]
}

func isWordByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '$' || c == '\\' || c >= 0x80:
		return true
	}
	return false
}

// uriToPath converts a file:// URI to a filesystem path.
func uriToPath(uri string) string {
	if path, ok := strings.CutPrefix(uri, "file://"); ok {
		return path
	}
	return uri
}

// pathToURI converts a filesystem path to a file:// URI.
func pathToURI(path string) string {
	if strings.HasPrefix(path, "/") {
		return "file://" + path
	}
	return path
}

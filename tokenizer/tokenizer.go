// Package tokenizer scans text for balanced open/close token pairs with
// backslash-escape support, handing each enclosed expression to a handler
// and splicing its output back into the result — generalized from the
// parameter/substitution scanning go-juicedev-juice's node tree performs
// ad hoc, so both "#{...}" and "${...}" share one scanner.
package tokenizer

import "strings"

// Handler renders the text found between an open and close token.
type Handler func(content string) string

// GenericParser scans for occurrences of openToken...closeToken, replacing
// each with handler's output. "\" immediately before openToken escapes it:
// the token is copied through literally and not treated as a delimiter.
type GenericParser struct {
	Open, Close string
	Handler     Handler
}

// New builds a GenericParser for the given delimiter pair.
func New(open, close string, handler Handler) *GenericParser {
	return &GenericParser{Open: open, Close: close, Handler: handler}
}

// Parse scans text and returns the result with every enclosed expression
// replaced by the handler's output.
func (p *GenericParser) Parse(text string) string {
	if text == "" {
		return ""
	}
	var out strings.Builder
	src := text
	start := strings.Index(src, p.Open)
	if start < 0 {
		return text
	}

	offset := 0
	for start >= 0 {
		if start > 0 && src[start-1] == '\\' {
			out.WriteString(src[offset : start-1])
			out.WriteString(p.Open)
			offset = start + len(p.Open)
		} else {
			expr, end, ok := p.scanExpression(src, start)
			if !ok {
				out.WriteString(src[offset:])
				offset = len(src)
				break
			}
			out.WriteString(src[offset:start])
			out.WriteString(p.Handler(expr))
			offset = end
		}
		next := strings.Index(src[offset:], p.Open)
		if next < 0 {
			start = -1
		} else {
			start = offset + next
		}
	}
	out.WriteString(src[offset:])
	return out.String()
}

// scanExpression finds the matching close token for an open token at
// position start, returning the enclosed content and the offset just past
// the close token.
func (p *GenericParser) scanExpression(src string, start int) (content string, end int, ok bool) {
	contentStart := start + len(p.Open)
	closeIdx := strings.Index(src[contentStart:], p.Close)
	if closeIdx < 0 {
		return "", 0, false
	}
	closeIdx += contentStart
	return src[contentStart:closeIdx], closeIdx + len(p.Close), true
}

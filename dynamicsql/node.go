// Package dynamicsql implements the tree of scripted SQL nodes rendered at
// statement execution time: text, conditionals, trims, loops, and fragment
// includes, each consuming a shared Dynamic Context — grounded on
// go-juicedev-juice's Node/NodeGroup visitor shape (node.go), adapted from
// its inline-placeholder Accept(translator, Parameter) signature to a
// render-then-extract pipeline: nodes emit raw "#{...}" tokens into a
// pooled buffer, and the sqlsource package's trailing pass turns those into
// positional "?" markers and an ordered parameter mapping list.
package dynamicsql

import (
	"strings"

	"go.uber.org/zap/buffer"

	"github.com/gobatis/gobatis/ognl"
)

var bufferPool = buffer.NewPool()

// Node is the element of a dynamic SQL tree. Render appends this node's
// contribution to out, resolving any "${...}" substitutions against ctx;
// "#{...}" parameter tokens are left intact for the sqlsource pass.
type Node interface {
	Render(ctx *ognl.Context, out *buffer.Buffer) error
}

// NodeGroup renders its children in order, separated by a single space
// when adjacent fragments would otherwise run together.
type NodeGroup []Node

func (g NodeGroup) Render(ctx *ognl.Context, out *buffer.Buffer) error {
	start := out.Len()
	for _, n := range g {
		child := bufferPool.Get()
		if err := n.Render(ctx, child); err != nil {
			child.Free()
			return err
		}
		if child.Len() > 0 {
			if out.Len() > start {
				prev := out.Bytes()[out.Len()-1]
				cur := child.Bytes()[0]
				if prev != ' ' && cur != ' ' {
					out.AppendString(" ")
				}
			}
			out.Write(child.Bytes())
		}
		child.Free()
	}
	return nil
}

// RenderString renders a node tree against ctx and returns the accumulated
// text with leading/trailing whitespace collapsed.
func RenderString(n Node, ctx *ognl.Context) (string, error) {
	buf := bufferPool.Get()
	defer buf.Free()
	if err := n.Render(ctx, buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// TextNode is a literal SQL fragment. "${name}" tokens are substituted
// immediately against ctx; "#{name}" tokens are copied through untouched.
type TextNode string

func (t TextNode) Render(ctx *ognl.Context, out *buffer.Buffer) error {
	rendered, err := substituteText(string(t), ctx)
	if err != nil {
		return err
	}
	out.AppendString(rendered)
	return nil
}

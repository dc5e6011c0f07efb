package dynamicsql

import (
	"go.uber.org/zap/buffer"

	"github.com/gobatis/gobatis/ognl"
)

// IfNode renders Nodes only when Test evaluates truthy against ctx.
type IfNode struct {
	Test  string
	Nodes NodeGroup
}

func (n IfNode) Render(ctx *ognl.Context, out *buffer.Buffer) error {
	ok, err := ognl.Test(n.Test, ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return n.Nodes.Render(ctx, out)
}

// WhenNode is an IfNode used inside a ChooseNode; kept as a distinct type
// so the tree-building code reads the way the grammar does.
type WhenNode = IfNode

// ChooseNode renders the first matching WhenNode's content, falling back to
// Otherwise when none match.
type ChooseNode struct {
	Whens     []WhenNode
	Otherwise *OtherwiseNode
}

func (n ChooseNode) Render(ctx *ognl.Context, out *buffer.Buffer) error {
	for _, w := range n.Whens {
		ok, err := ognl.Test(w.Test, ctx)
		if err != nil {
			return err
		}
		if ok {
			return w.Nodes.Render(ctx, out)
		}
	}
	if n.Otherwise != nil {
		return n.Otherwise.Nodes.Render(ctx, out)
	}
	return nil
}

// OtherwiseNode is ChooseNode's default branch.
type OtherwiseNode struct {
	Nodes NodeGroup
}

func (n OtherwiseNode) Render(ctx *ognl.Context, out *buffer.Buffer) error {
	return n.Nodes.Render(ctx, out)
}

// BindNode evaluates Expr once and stores the result under Name in ctx's
// bindings, visible to every node rendered after it in the same tree walk.
type BindNode struct {
	Name string
	Expr string
}

func (n BindNode) Render(ctx *ognl.Context, _ *buffer.Buffer) error {
	v, err := ognl.Evaluate(n.Expr, ctx)
	if err != nil {
		return err
	}
	ctx.Bind(n.Name, v)
	return nil
}

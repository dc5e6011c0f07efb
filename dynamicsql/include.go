package dynamicsql

import (
	"go.uber.org/zap/buffer"

	"github.com/gobatis/gobatis/internal/xerrors"
	"github.com/gobatis/gobatis/ognl"
)

// IncludeNode references a named SQL fragment defined elsewhere in the same
// (or another) mapper namespace. RefID is resolved against the builder's
// forward-reference machinery; Target is filled in once resolution
// succeeds, so a tree can be constructed before every fragment it
// references has been parsed.
type IncludeNode struct {
	RefID  string
	Target Node // set once the build's forward-reference pass resolves RefID
}

func (n *IncludeNode) Render(ctx *ognl.Context, out *buffer.Buffer) error {
	if n.Target == nil {
		return xerrors.IncompleteReference("dynamicsql: include %q never resolved", n.RefID)
	}
	return n.Target.Render(ctx, out)
}

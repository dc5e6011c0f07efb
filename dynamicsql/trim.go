package dynamicsql

import (
	"strings"

	"go.uber.org/zap/buffer"

	"github.com/gobatis/gobatis/ognl"
)

// TrimNode collects its children's rendered SQL, strips a configured
// prefix/suffix override from the ends, then adds the configured
// prefix/suffix if any content remains.
type TrimNode struct {
	Nodes           NodeGroup
	Prefix          string
	PrefixOverrides []string
	Suffix          string
	SuffixOverrides []string
}

func (n TrimNode) Render(ctx *ognl.Context, out *buffer.Buffer) error {
	inner, err := RenderString(n.Nodes, ctx)
	if err != nil {
		return err
	}
	if inner == "" {
		return nil
	}

	inner = trimAnyPrefix(inner, n.PrefixOverrides)
	inner = trimAnySuffix(inner, n.SuffixOverrides)
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return nil
	}

	if out.Len() > 0 {
		out.AppendString(" ")
	}
	if n.Prefix != "" {
		out.AppendString(n.Prefix)
		out.AppendString(" ")
	}
	out.AppendString(inner)
	if n.Suffix != "" {
		out.AppendString(n.Suffix)
	}
	return nil
}

func trimAnyPrefix(s string, overrides []string) string {
	folded := strings.TrimLeft(s, " \t\n\r")
	for _, o := range overrides {
		if len(folded) >= len(o) && strings.EqualFold(folded[:len(o)], o) {
			return strings.TrimLeft(folded[len(o):], " \t\n\r")
		}
	}
	return s
}

func trimAnySuffix(s string, overrides []string) string {
	folded := strings.TrimRight(s, " \t\n\r")
	for _, o := range overrides {
		if len(folded) >= len(o) && strings.EqualFold(folded[len(folded)-len(o):], o) {
			return strings.TrimRight(folded[:len(folded)-len(o)], " \t\n\r")
		}
	}
	return s
}

// WhereNode is a TrimNode specialization: prefixes non-empty content with
// "WHERE" after stripping a leading AND/OR.
func WhereNode(nodes NodeGroup) TrimNode {
	return TrimNode{
		Nodes:           nodes,
		Prefix:          "WHERE",
		PrefixOverrides: []string{"AND", "OR"},
	}
}

// SetNode is a TrimNode specialization: prefixes non-empty content with
// "SET" after stripping a trailing comma.
func SetNode(nodes NodeGroup) TrimNode {
	return TrimNode{
		Nodes:           nodes,
		Prefix:          "SET",
		SuffixOverrides: []string{","},
	}
}

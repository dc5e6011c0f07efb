package binding

import (
	"github.com/gobatis/gobatis/dynamicsql"
	"github.com/gobatis/gobatis/internal/xerrors"
)

// NodeSpec is one entry of a statement or sql fragment's body, decoded
// from its mapper document. At most one of its fields is populated per
// entry; Text alone means a literal fragment.
type NodeSpec struct {
	Text    string        `yaml:"text"`
	If      *IfSpec       `yaml:"if"`
	Choose  *ChooseSpec   `yaml:"choose"`
	Where   []NodeSpec    `yaml:"where"`
	Set     []NodeSpec    `yaml:"set"`
	Trim    *TrimSpec     `yaml:"trim"`
	Foreach *ForeachSpec  `yaml:"foreach"`
	Bind    *BindSpec     `yaml:"bind"`
	Include *IncludeSpec  `yaml:"include"`
}

type IfSpec struct {
	Test string     `yaml:"test"`
	Body []NodeSpec `yaml:"body"`
}

type ChooseSpec struct {
	When      []IfSpec   `yaml:"when"`
	Otherwise []NodeSpec `yaml:"otherwise"`
}

type TrimSpec struct {
	Prefix          string     `yaml:"prefix"`
	Suffix          string     `yaml:"suffix"`
	PrefixOverrides []string   `yaml:"prefixOverrides"`
	SuffixOverrides []string   `yaml:"suffixOverrides"`
	Body            []NodeSpec `yaml:"body"`
}

type ForeachSpec struct {
	Collection string     `yaml:"collection"`
	Item       string     `yaml:"item"`
	Index      string     `yaml:"index"`
	Open       string     `yaml:"open"`
	Close      string     `yaml:"close"`
	Separator  string     `yaml:"separator"`
	Body       []NodeSpec `yaml:"body"`
}

type BindSpec struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type IncludeSpec struct {
	RefID      string            `yaml:"refid"`
	Properties map[string]string `yaml:"properties"`
}

// fragmentResolver resolves a sql fragment id to its parsed node, or
// records a pending IncludeNode to be filled in once the fragment is
// itself parsed (two-phase build, since fragments may include each other
// or be defined later in the document set).
type fragmentResolver interface {
	includeNode(refID string) *dynamicsql.IncludeNode
}

// buildNodeGroup converts a parsed statement/fragment body into a
// dynamicsql.NodeGroup.
func buildNodeGroup(specs []NodeSpec, frag fragmentResolver) (dynamicsql.NodeGroup, error) {
	group := make(dynamicsql.NodeGroup, 0, len(specs))
	for _, spec := range specs {
		node, err := buildNode(spec, frag)
		if err != nil {
			return nil, err
		}
		if node != nil {
			group = append(group, node)
		}
	}
	return group, nil
}

func buildNode(spec NodeSpec, frag fragmentResolver) (dynamicsql.Node, error) {
	switch {
	case spec.Text != "":
		return dynamicsql.TextNode(spec.Text), nil
	case spec.If != nil:
		body, err := buildNodeGroup(spec.If.Body, frag)
		if err != nil {
			return nil, err
		}
		return dynamicsql.IfNode{Test: spec.If.Test, Nodes: body}, nil
	case spec.Choose != nil:
		return buildChoose(*spec.Choose, frag)
	case spec.Where != nil:
		body, err := buildNodeGroup(spec.Where, frag)
		if err != nil {
			return nil, err
		}
		return dynamicsql.WhereNode(body), nil
	case spec.Set != nil:
		body, err := buildNodeGroup(spec.Set, frag)
		if err != nil {
			return nil, err
		}
		return dynamicsql.SetNode(body), nil
	case spec.Trim != nil:
		body, err := buildNodeGroup(spec.Trim.Body, frag)
		if err != nil {
			return nil, err
		}
		return dynamicsql.TrimNode{
			Nodes:           body,
			Prefix:          spec.Trim.Prefix,
			PrefixOverrides: spec.Trim.PrefixOverrides,
			Suffix:          spec.Trim.Suffix,
			SuffixOverrides: spec.Trim.SuffixOverrides,
		}, nil
	case spec.Foreach != nil:
		body, err := buildNodeGroup(spec.Foreach.Body, frag)
		if err != nil {
			return nil, err
		}
		return dynamicsql.ForeachNode{
			Collection: spec.Foreach.Collection,
			Item:       spec.Foreach.Item,
			Index:      spec.Foreach.Index,
			Open:       spec.Foreach.Open,
			Close:      spec.Foreach.Close,
			Separator:  spec.Foreach.Separator,
			Nodes:      body,
		}, nil
	case spec.Bind != nil:
		return dynamicsql.BindNode{Name: spec.Bind.Name, Expr: spec.Bind.Value}, nil
	case spec.Include != nil:
		if spec.Include.RefID == "" {
			return nil, xerrors.Build("binding: include with empty refid")
		}
		return frag.includeNode(spec.Include.RefID), nil
	default:
		return nil, xerrors.Build("binding: empty node spec")
	}
}

func buildChoose(spec ChooseSpec, frag fragmentResolver) (dynamicsql.Node, error) {
	whens := make([]dynamicsql.WhenNode, 0, len(spec.When))
	for _, w := range spec.When {
		body, err := buildNodeGroup(w.Body, frag)
		if err != nil {
			return nil, err
		}
		whens = append(whens, dynamicsql.WhenNode{Test: w.Test, Nodes: body})
	}
	node := dynamicsql.ChooseNode{Whens: whens}
	if spec.Otherwise != nil {
		body, err := buildNodeGroup(spec.Otherwise, frag)
		if err != nil {
			return nil, err
		}
		node.Otherwise = &dynamicsql.OtherwiseNode{Nodes: body}
	}
	return node, nil
}

// Package sqlsource turns a scripted statement body into a
// statement.SQLSource: a Raw source whose text holds no dynamic nodes and
// is rendered once at build time, or a Dynamic source whose node tree is
// rendered per invocation. Both conclude with the same pass: replace each
// "#{spec}" token with a positional "?" and produce the ordered parameter
// mapping list that describes it — spec.md §4.6.
package sqlsource

import (
	"strconv"
	"strings"

	"github.com/gobatis/gobatis/dynamicsql"
	"github.com/gobatis/gobatis/internal/xerrors"
	"github.com/gobatis/gobatis/ognl"
	"github.com/gobatis/gobatis/statement"
	"github.com/gobatis/gobatis/tokenizer"
)

// Raw is a SQLSource for statement bodies with no dynamic nodes ("if",
// "foreach", "${...}", etc.): its SQL and parameter mapping list are fixed
// at construction.
type Raw struct {
	sql      string
	mappings []statement.ParameterMapping
}

// NewRaw extracts "#{...}" parameter tokens from text once and returns a
// Raw source that replays the same SQL and mappings on every Bind.
func NewRaw(text string) (*Raw, error) {
	sql, mappings, err := extractParameters(text)
	if err != nil {
		return nil, err
	}
	return &Raw{sql: sql, mappings: mappings}, nil
}

func (r *Raw) Bind(parameter any) (statement.BoundSQL, error) {
	return statement.BoundSQL{
		SQL:               r.sql,
		ParameterMappings: r.mappings,
		ParameterObject:   parameter,
	}, nil
}

// Dynamic is a SQLSource whose node tree is rendered fresh for each
// invocation, since its content (and therefore its parameter list) can
// vary with the runtime parameter.
type Dynamic struct {
	root dynamicsql.Node
}

// NewDynamic wraps a dynamic SQL node tree as a SQLSource.
func NewDynamic(root dynamicsql.Node) *Dynamic {
	return &Dynamic{root: root}
}

func (d *Dynamic) Bind(parameter any) (statement.BoundSQL, error) {
	ctx := ognl.NewContext(parameter)
	ctx.Bind("_parameter", parameter)

	rendered, err := dynamicsql.RenderString(d.root, ctx)
	if err != nil {
		return statement.BoundSQL{}, err
	}

	sql, mappings, err := extractParameters(rendered)
	if err != nil {
		return statement.BoundSQL{}, err
	}

	additional := make(map[string]any)
	ctx.EachBinding(func(name string, value any) {
		additional[name] = value
	})

	return statement.BoundSQL{
		SQL:               sql,
		ParameterMappings: mappings,
		ParameterObject:   parameter,
		AdditionalParams:  additional,
	}, nil
}

// extractParameters replaces every "#{spec}" token in text with a
// positional "?" and returns the ordered parameter mappings the tokens
// described, in occurrence order.
func extractParameters(text string) (string, []statement.ParameterMapping, error) {
	var mappings []statement.ParameterMapping
	var parseErr error

	p := tokenizer.New("#{", "}", func(content string) string {
		mapping, err := parseParameterSpec(content)
		if err != nil {
			parseErr = err
			return ""
		}
		mappings = append(mappings, mapping)
		return "?"
	})

	sql := p.Parse(text)
	if parseErr != nil {
		return "", nil, parseErr
	}
	return sql, mappings, nil
}

// parseParameterSpec parses one "#{...}" token's content: a property path,
// optionally followed by comma-separated "key=value" attributes
// (jdbcType, goType/javaType, typeHandler, mode, numericScale, resultMap)
// in the style MyBatis-family mapping documents use. The reserved
// expression attribute is rejected; other attributes are ignored.
func parseParameterSpec(content string) (statement.ParameterMapping, error) {
	parts := strings.Split(content, ",")
	mapping := statement.ParameterMapping{Property: strings.TrimSpace(parts[0])}

	for _, attr := range parts[1:] {
		kv := strings.SplitN(attr, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, val := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		switch strings.ToLower(key) {
		case "jdbctype":
			mapping.JdbcType = val
		case "javatype", "gotype":
			mapping.GoType = val
		case "typehandler":
			mapping.TypeHandler = val
		case "mode":
			switch strings.ToUpper(val) {
			case "OUT":
				mapping.Mode = statement.ModeOut
			case "INOUT":
				mapping.Mode = statement.ModeInOut
			default:
				mapping.Mode = statement.ModeIn
			}
		case "resultmap":
			mapping.ResultMapID = val
		case "numericscale":
			n, err := strconv.Atoi(val)
			if err != nil {
				return mapping, xerrors.Build("sqlsource: parameter %q: invalid numericScale %q", mapping.Property, val)
			}
			mapping.NumericScale = n
		case "expression":
			return mapping, xerrors.Build("sqlsource: parameter %q: the expression attribute is reserved", mapping.Property)
		}
	}
	return mapping, nil
}

package dynamicsql

import (
	"fmt"
	"reflect"

	"github.com/gobatis/gobatis/ognl"
	"github.com/gobatis/gobatis/tokenizer"
)

// substituteText replaces every "${expr}" occurrence in text with the
// string form of expr evaluated against ctx. "#{...}" tokens are left
// untouched — they are the sqlsource pass's concern.
func substituteText(text string, ctx *ognl.Context) (string, error) {
	var evalErr error
	p := tokenizer.New("${", "}", func(content string) string {
		v, err := ognl.Evaluate(content, ctx)
		if err != nil {
			evalErr = err
			return ""
		}
		return stringify(v)
	})
	result := p.Parse(text)
	if evalErr != nil {
		return "", evalErr
	}
	return result, nil
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if st, ok := v.(fmt.Stringer); ok {
		return st.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Pointer:
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

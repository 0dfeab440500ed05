// Package template rewrites plan definition placeholders with runtime values.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// placeholderPattern matches <<name>> tokens. Names are identifier-like so
// legitimate uses of angle brackets in definition text are left alone.
var placeholderPattern = regexp.MustCompile(`<<([A-Za-z_][A-Za-z0-9_.-]*)>>`)

// SubstitutionError reports a definition that is not parseable as YAML.
// It wraps the parser's error so the caller sees the original cause.
type SubstitutionError struct {
	Err error
}

func (e *SubstitutionError) Error() string {
	return fmt.Sprintf("plan definition is not valid YAML: %v", e.Err)
}

func (e *SubstitutionError) Unwrap() error {
	return e.Err
}

// Substitute replaces every <<name>> token in definition with the string
// form of params[name]. Tokens with no matching parameter pass through
// verbatim, so a partially parameterized template stays valid; calling
// Substitute with no params is a no-op.
//
// The substituted text must parse as YAML; if it does not, a
// *SubstitutionError is returned and the caller gets no partial result.
func Substitute(definition string, params map[string]any) (string, error) {
	out := placeholderPattern.ReplaceAllStringFunc(definition, func(token string) string {
		name := placeholderPattern.FindStringSubmatch(token)[1]
		value, ok := params[name]
		if !ok {
			return token
		}
		return stringify(value)
	})

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		return "", &SubstitutionError{Err: err}
	}
	return out, nil
}

// stringify renders a parameter value for inline replacement. Strings are
// inserted as-is; composite values use their JSON form so they stay valid
// inside a YAML document.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}

package query

import (
	"fmt"
	"strings"

	"github.com/lablabs/storefront-client/internal/ast"
)

var stringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// PrintArgument renders a field argument as `name: value`.
func PrintArgument(arg *ast.Argument) (string, error) {
	if arg == nil {
		return "", fmt.Errorf("%w: nil argument", ErrUnsupportedValue)
	}
	v, err := printValue(arg.Value)
	if err != nil {
		return "", fmt.Errorf("argument %s: %w", arg.Name, err)
	}
	return arg.Name + ": " + v, nil
}

func printValue(value ast.Value) (string, error) {
	switch v := value.(type) {
	case *ast.StringValue:
		return `"` + stringEscaper.Replace(v.Value) + `"`, nil
	case *ast.Variable:
		return "$" + v.Name, nil
	case *ast.ListValue:
		if isObjectList(v) {
			return printObjectList(v)
		}
		return printList(v)
	case *ast.ObjectValue:
		fields, err := printObjectFields(v.Fields, false)
		if err != nil {
			return "", err
		}
		return "{" + fields + "}", nil
	case *ast.IntValue:
		return v.Value, nil
	case *ast.FloatValue:
		return v.Value, nil
	case *ast.EnumValue:
		return v.Value, nil
	case *ast.BooleanValue:
		if v.Value {
			return "true", nil
		}
		return "false", nil
	case *ast.NullValue:
		return "null", nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}

func isObjectList(list *ast.ListValue) bool {
	if len(list.Values) == 0 {
		return false
	}
	for _, v := range list.Values {
		if _, ok := v.(*ast.ObjectValue); !ok {
			return false
		}
	}
	return true
}

// printObjectList renders the filter shape the storefront consumes: each
// object's fields are listed flat, and a field holding an object contributes
// its inner fields instead of itself.
func printObjectList(list *ast.ListValue) (string, error) {
	objects := make([]string, 0, len(list.Values))
	for _, v := range list.Values {
		fields, err := printObjectFields(v.(*ast.ObjectValue).Fields, true)
		if err != nil {
			return "", err
		}
		objects = append(objects, "{"+fields+"}")
	}
	return "[" + strings.Join(objects, ", ") + "]", nil
}

func printList(list *ast.ListValue) (string, error) {
	values := make([]string, 0, len(list.Values))
	for _, v := range list.Values {
		s, err := printValue(v)
		if err != nil {
			return "", err
		}
		values = append(values, s)
	}
	return "[" + strings.Join(values, ", ") + "]", nil
}

func printObjectFields(fields []*ast.ObjectField, collapse bool) (string, error) {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if inner, ok := f.Value.(*ast.ObjectValue); ok && collapse {
			s, err := printObjectFields(inner.Fields, false)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
			continue
		}
		s, err := printValue(f.Value)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", f.Name, err)
		}
		parts = append(parts, f.Name+": "+s)
	}
	return strings.Join(parts, ", "), nil
}

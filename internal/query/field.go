package query

import (
	"fmt"
	"strings"

	"github.com/lablabs/storefront-client/internal/ast"
)

// PrintSelection renders one selection and everything nested below it.
// Selection order is kept as is; nothing is validated against a schema.
func PrintSelection(sel ast.Selection) (string, error) {
	var (
		header string
		set    *ast.SelectionSet
	)

	switch s := sel.(type) {
	case *ast.FragmentSpread:
		return "..." + s.Name, nil
	case *ast.InlineFragment:
		header = "... on " + s.TypeCondition
		set = s.SelectionSet
	case *ast.Field:
		header = s.Name
		if s.Alias != "" {
			header = s.Alias + ": " + s.Name
		}
		if len(s.Arguments) > 0 {
			args := make([]string, 0, len(s.Arguments))
			for _, a := range s.Arguments {
				arg, err := PrintArgument(a)
				if err != nil {
					return "", fmt.Errorf("field %s: %w", s.Name, err)
				}
				args = append(args, arg)
			}
			header += "(" + strings.Join(args, ", ") + ")"
		}
		set = s.SelectionSet
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedSelection, sel)
	}

	if set == nil || len(set.Selections) == 0 {
		return header, nil
	}
	children, err := PrintSelectionSet(set)
	if err != nil {
		return "", err
	}
	return header + " {\n" + children + "\n}", nil
}

// PrintSelectionSet renders each selection of set on its own line.
func PrintSelectionSet(set *ast.SelectionSet) (string, error) {
	if set == nil {
		return "", nil
	}
	lines := make([]string, 0, len(set.Selections))
	for _, sel := range set.Selections {
		line, err := PrintSelection(sel)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

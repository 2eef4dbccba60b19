package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lablabs/storefront-client/internal/ast"
)

// FragmentMode selects how fragment spreads are inlined.
type FragmentMode int

const (
	// SinglePass replaces the first occurrence of each spread, and inlines
	// fragments into each other only once.
	SinglePass FragmentMode = iota
	// Fixpoint replaces every occurrence and follows nested spreads to any
	// depth.
	Fixpoint
)

func (m FragmentMode) String() string {
	switch m {
	case SinglePass:
		return "single"
	case Fixpoint:
		return "fixpoint"
	default:
		return fmt.Sprintf("FragmentMode(%d)", int(m))
	}
}

// ParseFragmentMode maps a config value to a FragmentMode.
func ParseFragmentMode(s string) (FragmentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single":
		return SinglePass, nil
	case "fixpoint":
		return Fixpoint, nil
	default:
		return SinglePass, fmt.Errorf("unknown fragment mode %q", s)
	}
}

// importDirective matches loader directives that must not reach the server.
var importDirective = regexp.MustCompile(`#import.*\n`)

type fragment struct {
	name string
	body string
}

// OperationBody returns the document source with #import lines removed.
func OperationBody(doc *ast.Document) string {
	return strings.TrimSpace(importDirective.ReplaceAllString(doc.Body(), ""))
}

// renderFragments serializes every fragment definition in document order. A
// repeated name keeps its first position and its last body.
func renderFragments(doc *ast.Document) ([]fragment, error) {
	var frags []fragment
	index := map[string]int{}
	for _, def := range doc.Fragments() {
		body, err := PrintSelectionSet(def.SelectionSet)
		if err != nil {
			return nil, fmt.Errorf("fragment %s: %w", def.Name, err)
		}
		if i, ok := index[def.Name]; ok {
			frags[i].body = body
			continue
		}
		index[def.Name] = len(frags)
		frags = append(frags, fragment{name: def.Name, body: body})
	}
	return frags, nil
}

// ResolveFragments returns the operation body with fragment spreads inlined.
// Spreads naming an unknown fragment are left untouched.
func ResolveFragments(doc *ast.Document, mode FragmentMode) (string, error) {
	frags, err := renderFragments(doc)
	if err != nil {
		return "", err
	}
	body := OperationBody(doc)

	switch mode {
	case SinglePass:
		return inlineOnce(body, frags), nil
	case Fixpoint:
		return inlineAll(body, frags)
	default:
		return "", fmt.Errorf("unsupported fragment mode %s", mode)
	}
}

func inlineOnce(body string, frags []fragment) string {
	for i := range frags {
		for j := range frags {
			if i == j {
				continue
			}
			frags[i].body = strings.Replace(frags[i].body, "..."+frags[j].name, frags[j].body, 1)
		}
	}
	for _, f := range frags {
		body = strings.Replace(body, "..."+f.name, f.body, 1)
	}
	return body
}

func inlineAll(body string, frags []fragment) (string, error) {
	r := &expander{
		bodies:   make(map[string]string, len(frags)),
		patterns: make(map[string]*regexp.Regexp, len(frags)),
		done:     make(map[string]string, len(frags)),
		visiting: map[string]bool{},
	}
	for _, f := range frags {
		r.order = append(r.order, f.name)
		r.bodies[f.name] = f.body
		r.patterns[f.name] = regexp.MustCompile(`\.\.\.` + regexp.QuoteMeta(f.name) + `\b`)
	}
	for _, name := range r.order {
		expanded, err := r.expand(name)
		if err != nil {
			return "", err
		}
		body = r.patterns[name].ReplaceAllLiteralString(body, expanded)
	}
	return body, nil
}

type expander struct {
	order    []string
	bodies   map[string]string
	patterns map[string]*regexp.Regexp
	done     map[string]string
	visiting map[string]bool
}

func (r *expander) expand(name string) (string, error) {
	if body, ok := r.done[name]; ok {
		return body, nil
	}
	if r.visiting[name] {
		return "", fmt.Errorf("%w: %s", ErrFragmentCycle, name)
	}
	r.visiting[name] = true
	defer delete(r.visiting, name)

	body := r.bodies[name]
	for _, other := range r.order {
		if !r.patterns[other].MatchString(body) {
			continue
		}
		inner, err := r.expand(other)
		if err != nil {
			return "", err
		}
		body = r.patterns[other].ReplaceAllLiteralString(body, inner)
	}
	r.done[name] = body
	return body, nil
}

// Package query turns a loaded GraphQL document into the query text sent to
// the storefront, and derives the session cache key for a request.
package query

import (
	"errors"
	"fmt"

	"github.com/lablabs/storefront-client/internal/ast"
)

var (
	ErrNilDocument          = errors.New("nil document")
	ErrUnsupportedSelection = errors.New("unsupported selection")
	ErrUnsupportedValue     = errors.New("unsupported argument value")
	ErrFragmentCycle        = errors.New("fragment cycle")
)

type options struct {
	mode FragmentMode
}

// Option configures Build.
type Option func(*options)

// WithFragmentMode sets how fragment spreads are inlined. The default is
// SinglePass.
func WithFragmentMode(mode FragmentMode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// Build returns the query string for doc.
func Build(doc *ast.Document, opts ...Option) (string, error) {
	if doc == nil {
		return "", ErrNilDocument
	}
	o := options{mode: SinglePass}
	for _, opt := range opts {
		opt(&o)
	}
	q, err := ResolveFragments(doc, o.mode)
	if err != nil {
		return "", fmt.Errorf("failed to build query: %w", err)
	}
	return q, nil
}

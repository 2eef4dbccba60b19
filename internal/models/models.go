package models

import (
	json "github.com/goccy/go-json"

	"github.com/lablabs/storefront-client/internal/ast"
)

// MaxBatchOperations bounds the operations accepted by one batch request.
const MaxBatchOperations = 25

// QueryRequest is the body of POST /graphql.
type QueryRequest struct {
	// Document is the loader output for the operation, fragments included.
	Document  *ast.Document          `json:"document" binding:"required"`
	Variables map[string]interface{} `json:"variables"`
	// UseCache defaults to true when omitted.
	UseCache *bool `json:"useCache"`
}

// CacheEnabled reports whether the request may use the session cache.
func (r *QueryRequest) CacheEnabled() bool {
	return r.UseCache == nil || *r.UseCache
}

// QueryResponse wraps the data member returned by the storefront.
type QueryResponse struct {
	Data json.RawMessage `json:"data"`
}

// BatchRequest is the body of POST /batch. It holds at most
// MaxBatchOperations operations.
type BatchRequest struct {
	Operations []QueryRequest `json:"operations" binding:"required,min=1,dive"`
}

// BatchResult is the outcome of one batched operation.
type BatchResult struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// BatchResponse holds results in operation order.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

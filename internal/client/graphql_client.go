package client

import (
	"context"
	"fmt"

	"github.com/machinebox/graphql"

	"github.com/lablabs/storefront-client/internal/limiter"
	"github.com/lablabs/storefront-client/internal/query"
)

// Strict sends the request like Query, but fails when the response carries
// GraphQL errors and decodes the data into response. It never reads or writes
// the session cache.
func (c *Client) Strict(ctx context.Context, req Request, response interface{}) error {
	q, err := query.Build(req.Document, query.WithFragmentMode(c.mode))
	if err != nil {
		return err
	}
	vars, language := normalizeLanguage(req.Variables)

	gqlReq := graphql.NewRequest(q)
	for k, v := range vars {
		gqlReq.Var(k, v)
	}
	// machinebox sets Accept and Content-Type itself.
	c.setStorefrontHeaders(gqlReq.Header, language)

	if err := limiter.Wait(ctx, c.limiter); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}
	gql := graphql.NewClient(c.endpoint, graphql.WithHTTPClient(c.http))
	if err := gql.Run(ctx, gqlReq, response); err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	return nil
}

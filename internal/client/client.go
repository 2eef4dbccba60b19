// Package client sends built GraphQL documents to the storefront API and keeps
// the results in a session cache.
package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/lablabs/storefront-client/internal/ast"
	"github.com/lablabs/storefront-client/internal/cache"
	"github.com/lablabs/storefront-client/internal/limiter"
	"github.com/lablabs/storefront-client/internal/query"
)

// Header names sent with every storefront request.
const (
	HeaderAccessToken    = "X-Shopify-Storefront-Access-Token"
	HeaderAcceptLanguage = "Accept-Language"
)

const (
	languageVariable = "language"
	defaultTimeout   = 10 * time.Second
)

// Request is one storefront call.
type Request struct {
	Document  *ast.Document
	Variables map[string]interface{}
	// DisableCache skips both the cache lookup and the cache write.
	DisableCache bool
}

// Client talks to one storefront. It is safe for concurrent use.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	cache    *cache.QueryCache
	limiter  *rate.Limiter
	observer Observer
	mode     query.FragmentMode
	group    *singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithEndpoint overrides the storefront URL derived from the store name.
func WithEndpoint(url string) Option {
	return func(c *Client) {
		c.endpoint = url
	}
}

// WithSessionStore sets where query results are cached. By default results
// live in memory for the lifetime of the client.
func WithSessionStore(store cache.SessionStore) Option {
	return func(c *Client) {
		c.cache = cache.NewQueryCache(store)
	}
}

// WithLimiter throttles outgoing requests.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithObserver reports request and cache activity to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithFragmentMode sets how fragment spreads are inlined.
func WithFragmentMode(mode query.FragmentMode) Option {
	return func(c *Client) {
		c.mode = mode
	}
}

// Endpoint returns the GraphQL URL of a storefront.
func Endpoint(store, version string) string {
	return fmt.Sprintf("https://%s.myshopify.com/api/%s/graphql.json", store, version)
}

// New creates a Client for the storefront of store, authenticating with the
// storefront access token and targeting the given API version.
func New(store, token, version string, opts ...Option) (*Client, error) {
	var missing []string
	if store == "" {
		missing = append(missing, "store")
	}
	if token == "" {
		missing = append(missing, "token")
	}
	if version == "" {
		missing = append(missing, "version")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrConfiguration, strings.Join(missing, ", "))
	}

	c := &Client{
		endpoint: Endpoint(store, version),
		token:    token,
		http:     &http.Client{Timeout: defaultTimeout},
		cache:    cache.NewQueryCache(cache.NewMemoryStore()),
		observer: nopObserver{},
		mode:     query.SinglePass,
		group:    &singleflight.Group{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil || c.observer == nil {
		return nil, fmt.Errorf("%w: nil http client or observer", ErrConfiguration)
	}
	return c, nil
}

// Session returns a copy of c caching into store. The copy shares the
// transport, the limiter and the in-flight request table with c.
func (c *Client) Session(store cache.SessionStore) *Client {
	cp := *c
	cp.cache = cache.NewQueryCache(store)
	return &cp
}

// Query builds the document, sends it and returns the data member of the
// response. The errors member is not inspected.
func (c *Client) Query(ctx context.Context, req Request) (json.RawMessage, error) {
	q, err := query.Build(req.Document, query.WithFragmentMode(c.mode))
	if err != nil {
		return nil, err
	}
	vars, language := normalizeLanguage(req.Variables)
	key := query.CacheKey(req.Document, vars)
	op := OperationName(req.Document)

	useCache := !req.DisableCache
	if useCache {
		data, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read query cache: %w", err)
		}
		if ok {
			c.observer.CacheHit(op)
			return data, nil
		}
		c.observer.CacheMiss(op)
	}

	if err := limiter.Wait(ctx, c.limiter); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}
	// The shared request outlives any single caller; each caller still stops
	// waiting when its own context is done.
	ch := c.group.DoChan(key+"\n"+language, func() (interface{}, error) {
		return c.send(context.WithoutCancel(ctx), op, q, vars, language)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		c.observer.Shared(op)
	}
	data := res.Val.(json.RawMessage)

	if useCache {
		if err := c.cache.Put(ctx, key, data); err != nil {
			return nil, fmt.Errorf("failed to write query cache: %w", err)
		}
	}
	return data, nil
}

// QueryInto runs Query and decodes the data into v.
func (c *Client) QueryInto(ctx context.Context, req Request, v interface{}) error {
	data, err := c.Query(ctx, req)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

type requestBody struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type responseBody struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) send(ctx context.Context, op, q string, vars map[string]interface{}, language string) (json.RawMessage, error) {
	body, err := json.Marshal(requestBody{Query: q, Variables: vars})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq.Header, language)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.observer.RequestFailed(op, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()
	c.observer.RequestDone(op, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var out responseBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		out.Data = json.RawMessage("null")
	}
	return out.Data, nil
}

func (c *Client) setHeaders(h http.Header, language string) {
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json")
	c.setStorefrontHeaders(h, language)
}

// setStorefrontHeaders sets the token and language headers only.
func (c *Client) setStorefrontHeaders(h http.Header, language string) {
	h.Set(HeaderAccessToken, c.token)
	if language != "" {
		h.Set(HeaderAcceptLanguage, language)
	}
}

// normalizeLanguage copies vars and rewrites a kebab-case language variable
// into the storefront's LanguageCode enum. The raw value is returned for the
// Accept-Language header.
func normalizeLanguage(vars map[string]interface{}) (map[string]interface{}, string) {
	out := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	language, ok := out[languageVariable].(string)
	if !ok || language == "" {
		return out, ""
	}
	out[languageVariable] = strings.ToUpper(strings.ReplaceAll(language, "-", "_"))
	return out, language
}

// CacheKey returns the session cache key Query uses for doc and vars.
func CacheKey(doc *ast.Document, vars map[string]interface{}) string {
	normalized, _ := normalizeLanguage(vars)
	return query.CacheKey(doc, normalized)
}

// OperationName returns the name of the first operation in doc, or
// "anonymous".
func OperationName(doc *ast.Document) string {
	if doc != nil {
		for _, def := range doc.Definitions {
			if op, ok := def.(*ast.OperationDefinition); ok && op.Name != "" {
				return op.Name
			}
		}
	}
	return "anonymous"
}

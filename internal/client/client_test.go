package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gammazero/workerpool"
	json "github.com/goccy/go-json"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lablabs/storefront-client/internal/ast"
	"github.com/lablabs/storefront-client/internal/cache"
	"github.com/lablabs/storefront-client/internal/client"
	"github.com/lablabs/storefront-client/internal/limiter"
)

const (
	store   = "acme"
	token   = "storefront-token"
	version = "2024-04"
)

var endpoint = client.Endpoint(store, version)

const productBody = "query P($h: String!) { product(handle: $h) { id title } }"

func productDocument() *ast.Document {
	return &ast.Document{
		Loc: &ast.Location{End: len(productBody), Source: &ast.Source{Body: productBody}},
		Definitions: []ast.Definition{&ast.OperationDefinition{
			Operation: "query",
			Name:      "P",
			SelectionSet: &ast.SelectionSet{Selections: []ast.Selection{&ast.Field{
				Name:      "product",
				Arguments: []*ast.Argument{{Name: "handle", Value: &ast.Variable{Name: "h"}}},
				SelectionSet: &ast.SelectionSet{Selections: []ast.Selection{
					&ast.Field{Name: "id"}, &ast.Field{Name: "title"},
				}},
			}}},
		}},
	}
}

type sentRequest struct {
	header http.Header
	body   struct {
		Query     string                 `json:"query"`
		Variables map[string]interface{} `json:"variables"`
	}
}

// recordingResponder answers with body and keeps every request it saw.
func recordingResponder(t *testing.T, body string, sent *[]sentRequest) httpmock.Responder {
	var mu sync.Mutex
	return func(req *http.Request) (*http.Response, error) {
		raw, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		var s sentRequest
		s.header = req.Header.Clone()
		require.NoError(t, json.Unmarshal(raw, &s.body))
		mu.Lock()
		*sent = append(*sent, s)
		mu.Unlock()
		return httpmock.NewStringResponse(http.StatusOK, body), nil
	}
}

func newClient(t *testing.T, opts ...client.Option) *client.Client {
	c, err := client.New(store, token, version, opts...)
	require.NoError(t, err)
	return c
}

func TestQuery_FlatQuery(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var sent []sentRequest
	httpmock.RegisterResponder("POST", endpoint,
		recordingResponder(t, `{"data":{"product":{"id":"gid://shopify/Product/1","title":"Shirt"}}}`, &sent))

	data, err := newClient(t).Query(context.Background(), client.Request{
		Document:  productDocument(),
		Variables: map[string]interface{}{"h": "x"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"product":{"id":"gid://shopify/Product/1","title":"Shirt"}}`, string(data))

	require.Len(t, sent, 1)
	assert.Equal(t, productBody, sent[0].body.Query)
	assert.Equal(t, map[string]interface{}{"h": "x"}, sent[0].body.Variables)
	assert.Equal(t, "application/json", sent[0].header.Get("Accept"))
	assert.Equal(t, "application/json", sent[0].header.Get("Content-Type"))
	assert.Equal(t, token, sent[0].header.Get(client.HeaderAccessToken))
	assert.Empty(t, sent[0].header.Get(client.HeaderAcceptLanguage))
}

func TestQuery_LanguageNormalization(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var sent []sentRequest
	httpmock.RegisterResponder("POST", endpoint, recordingResponder(t, `{"data":{}}`, &sent))

	vars := map[string]interface{}{"h": "x", "language": "zh-CN"}
	_, err := newClient(t).Query(context.Background(), client.Request{Document: productDocument(), Variables: vars})
	require.NoError(t, err)

	require.Len(t, sent, 1)
	assert.Equal(t, "zh-CN", sent[0].header.Get(client.HeaderAcceptLanguage))
	assert.Equal(t, "ZH_CN", sent[0].body.Variables["language"])
	assert.Equal(t, "zh-CN", vars["language"], "caller variables must not be modified")
}

func TestQuery_CacheHitSkipsNetwork(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", endpoint,
		httpmock.NewStringResponder(http.StatusOK, `{"data":{"product":{"id":"1"}}}`))

	c := newClient(t)
	req := client.Request{Document: productDocument(), Variables: map[string]interface{}{"h": "x"}}

	first, err := c.Query(context.Background(), req)
	require.NoError(t, err)
	second, err := c.Query(context.Background(), req)
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	req.Variables = map[string]interface{}{"h": "y"}
	_, err = c.Query(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestQuery_DisableCache(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", endpoint, httpmock.NewStringResponder(http.StatusOK, `{"data":{"n":1}}`))

	store := cache.NewMemoryStore()
	c := newClient(t, client.WithSessionStore(store))
	req := client.Request{Document: productDocument(), DisableCache: true}

	for i := 0; i < 2; i++ {
		_, err := c.Query(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, httpmock.GetTotalCallCount())

	_, ok, err := store.Get(context.Background(), cache.QueryCacheKey)
	require.NoError(t, err)
	assert.False(t, ok, "uncached requests must not write the session cache")
}

func TestQuery_SessionsAreIsolated(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", endpoint, httpmock.NewStringResponder(http.StatusOK, `{"data":{"n":1}}`))

	base := newClient(t)
	a := base.Session(cache.NewMemoryStore())
	b := base.Session(cache.NewMemoryStore())
	req := client.Request{Document: productDocument()}

	for _, c := range []*client.Client{a, a, b} {
		_, err := c.Query(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestQuery_HTTPError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", endpoint, func(*http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(http.StatusBadGateway, "upstream down")
		resp.Status = "502 Bad Gateway"
		return resp, nil
	})

	_, err := newClient(t).Query(context.Background(), client.Request{Document: productDocument()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrHTTPStatus))

	var statusErr *client.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "502 Bad Gateway")
}

func TestQuery_TransportError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	boom := errors.New("connection reset")
	httpmock.RegisterResponder("POST", endpoint, httpmock.NewErrorResponder(boom))

	_, err := newClient(t).Query(context.Background(), client.Request{Document: productDocument()})
	assert.True(t, errors.Is(err, boom), "got %v", err)
}

func TestQuery_DecodeError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", endpoint, httpmock.NewStringResponder(http.StatusOK, "<html>"))

	_, err := newClient(t).Query(context.Background(), client.Request{Document: productDocument()})
	assert.Error(t, err)
}

func TestQuery_GraphQLErrorsAreNotInspected(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", endpoint, httpmock.NewStringResponder(http.StatusOK,
		`{"data":{"product":null},"errors":[{"message":"Throttled"}]}`))

	data, err := newClient(t).Query(context.Background(), client.Request{Document: productDocument()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"product":null}`, string(data))
}

func TestQueryInto(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", endpoint, httpmock.NewStringResponder(http.StatusOK,
		`{"data":{"product":{"id":"1","title":"Shirt"}}}`))

	var out struct {
		Product struct {
			Title string `json:"title"`
		} `json:"product"`
	}
	require.NoError(t, newClient(t).QueryInto(context.Background(), client.Request{Document: productDocument()}, &out))
	assert.Equal(t, "Shirt", out.Product.Title)
}

func TestStrict(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var sent []sentRequest
	httpmock.RegisterResponder("POST", endpoint,
		recordingResponder(t, `{"data":{"product":{"title":"Shirt"}}}`, &sent))

	var out struct {
		Product struct {
			Title string `json:"title"`
		} `json:"product"`
	}
	err := newClient(t).Strict(context.Background(), client.Request{
		Document:  productDocument(),
		Variables: map[string]interface{}{"h": "x", "language": "fr-CA"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Shirt", out.Product.Title)

	require.Len(t, sent, 1)
	assert.Equal(t, token, sent[0].header.Get(client.HeaderAccessToken))
	assert.Equal(t, "fr-CA", sent[0].header.Get(client.HeaderAcceptLanguage))
	assert.Equal(t, "FR_CA", sent[0].body.Variables["language"])
	assert.Len(t, sent[0].header.Values("Accept"), 1)
	assert.Len(t, sent[0].header.Values("Content-Type"), 1)
	assert.Len(t, sent[0].header.Values(client.HeaderAccessToken), 1)
}

func TestStrict_SurfacesGraphQLErrors(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", endpoint, httpmock.NewStringResponder(http.StatusOK,
		`{"data":null,"errors":[{"message":"Field 'nope' doesn't exist on type 'Product'"}]}`))

	var out map[string]interface{}
	err := newClient(t).Strict(context.Background(), client.Request{Document: productDocument()}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doesn't exist")
}

type countingObserver struct {
	misses   chan struct{}
	hits     int32
	shared   int32
	requests int32
}

func (o *countingObserver) RequestDone(string, int, time.Duration) { atomic.AddInt32(&o.requests, 1) }
func (o *countingObserver) RequestFailed(string, time.Duration)    {}
func (o *countingObserver) CacheHit(string)                        { atomic.AddInt32(&o.hits, 1) }
func (o *countingObserver) CacheMiss(string) {
	if o.misses != nil {
		o.misses <- struct{}{}
	}
}
func (o *countingObserver) Shared(string) { atomic.AddInt32(&o.shared, 1) }

func TestQuery_DeduplicatesInFlightRequests(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	entered := make(chan struct{})
	release := make(chan struct{})
	httpmock.RegisterResponder("POST", endpoint, func(*http.Request) (*http.Response, error) {
		close(entered)
		<-release
		return httpmock.NewStringResponse(http.StatusOK, `{"data":{"n":1}}`), nil
	})

	obs := &countingObserver{misses: make(chan struct{}, 2)}
	c := newClient(t, client.WithObserver(obs))
	req := client.Request{Document: productDocument()}

	var wg sync.WaitGroup
	results := make([]json.RawMessage, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := c.Query(context.Background(), req)
			assert.NoError(t, err)
			results[i] = data
		}()
		if i == 0 {
			<-entered
		}
		<-obs.misses
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Equal(t, int32(1), atomic.LoadInt32(&obs.requests))
	assert.Equal(t, int32(2), atomic.LoadInt32(&obs.shared))
	assert.JSONEq(t, `{"n":1}`, string(results[0]))
	assert.JSONEq(t, `{"n":1}`, string(results[1]))
}

func TestQuery_CancelledCallerDoesNotFailSharedRequest(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	entered := make(chan struct{})
	release := make(chan struct{})
	httpmock.RegisterResponder("POST", endpoint, func(req *http.Request) (*http.Response, error) {
		close(entered)
		<-release
		if err := req.Context().Err(); err != nil {
			return nil, err
		}
		return httpmock.NewStringResponse(http.StatusOK, `{"data":{"n":1}}`), nil
	})

	obs := &countingObserver{misses: make(chan struct{}, 2)}
	c := newClient(t, client.WithObserver(obs))
	first := c.Session(cache.NewMemoryStore())
	second := c.Session(cache.NewMemoryStore())
	req := client.Request{Document: productDocument()}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := first.Query(ctx, req)
		firstErr <- err
	}()
	<-entered
	<-obs.misses

	type result struct {
		data json.RawMessage
		err  error
	}
	secondRes := make(chan result, 1)
	go func() {
		data, err := second.Query(context.Background(), req)
		secondRes <- result{data, err}
	}()
	<-obs.misses
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	res := <-secondRes
	require.NoError(t, res.err)
	assert.JSONEq(t, `{"n":1}`, string(res.data))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestQueryBatch(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", endpoint, func(req *http.Request) (*http.Response, error) {
		var body struct {
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return nil, err
		}
		if body.Variables["h"] == "broken" {
			return httpmock.NewStringResponse(http.StatusInternalServerError, ""), nil
		}
		return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{"handle": body.Variables["h"]},
		})
	})

	pool := workerpool.New(2)
	defer pool.Stop()

	handles := []string{"a", "broken", "c"}
	reqs := make([]client.Request, len(handles))
	for i, h := range handles {
		reqs[i] = client.Request{Document: productDocument(), Variables: map[string]interface{}{"h": h}}
	}

	results := newClient(t).QueryBatch(context.Background(), pool, reqs)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.JSONEq(t, `{"handle":"a"}`, string(results[0].Data))
	assert.True(t, errors.Is(results[1].Err, client.ErrHTTPStatus))
	assert.JSONEq(t, `{"handle":"c"}`, string(results[2].Data))
}

func TestQuery_LimiterHonorsContext(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder("POST", endpoint, httpmock.NewStringResponder(http.StatusOK, `{"data":{}}`))

	c := newClient(t, client.WithLimiter(limiter.New(0.001, 1)))
	req := client.Request{Document: productDocument(), DisableCache: true}
	_, err := c.Query(context.Background(), req)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Query(ctx, req)
	assert.Error(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestNew_MissingConfiguration(t *testing.T) {
	_, err := client.New("", "", version)
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrConfiguration))
	assert.Contains(t, err.Error(), "store, token")
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "https://acme.myshopify.com/api/2024-04/graphql.json", client.Endpoint("acme", "2024-04"))
}

func TestOperationName(t *testing.T) {
	assert.Equal(t, "P", client.OperationName(productDocument()))
	assert.Equal(t, "anonymous", client.OperationName(&ast.Document{}))
}

func TestCacheKey_UsesNormalizedLanguage(t *testing.T) {
	key := client.CacheKey(productDocument(), map[string]interface{}{"language": "zh-CN"})
	assert.Contains(t, key, `language:"ZH_CN"`)
	assert.Equal(t, key, client.CacheKey(productDocument(), map[string]interface{}{"language": "ZH_CN"}))
}

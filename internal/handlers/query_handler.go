package handlers

import (
	"fmt"
	"net/http"

	"github.com/gammazero/workerpool"
	"github.com/gin-gonic/gin"

	"github.com/lablabs/storefront-client/internal/cache"
	"github.com/lablabs/storefront-client/internal/client"
	"github.com/lablabs/storefront-client/internal/logging"
	"github.com/lablabs/storefront-client/internal/models"
)

// SessionHeader names the header carrying the caller's session id.
const SessionHeader = "X-Session-ID"

// BatchObserver is told the size of every accepted batch.
type BatchObserver interface {
	ObserveBatch(size int)
}

// QueryHandler forwards gateway requests to the storefront.
type QueryHandler struct {
	Client   *client.Client
	Sessions cache.Sessions
	Pool     *workerpool.WorkerPool
	Batches  BatchObserver
}

// sessionClient returns the client bound to the caller's session. Callers
// without a session id get no cache.
func (h *QueryHandler) sessionClient(c *gin.Context) (*client.Client, bool) {
	id := c.GetHeader(SessionHeader)
	if id == "" || h.Sessions == nil {
		return h.Client, false
	}
	return h.Client.Session(h.Sessions.Store(id)), true
}

func toClientRequest(r *models.QueryRequest, hasSession bool) client.Request {
	return client.Request{
		Document:     r.Document,
		Variables:    r.Variables,
		DisableCache: !hasSession || !r.CacheEnabled(),
	}
}

// Query handles POST /graphql.
func (h *QueryHandler) Query(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	cl, hasSession := h.sessionClient(c)
	data, err := cl.Query(c.Request.Context(), toClientRequest(&req, hasSession))
	if err != nil {
		c.Error(err)
		return
	}

	logging.Debug("Query served", map[string]interface{}{
		"operation": client.OperationName(req.Document),
		"session":   hasSession,
	})
	c.JSON(http.StatusOK, models.QueryResponse{Data: data})
}

// Batch handles POST /batch. Each operation succeeds or fails on its own.
func (h *QueryHandler) Batch(c *gin.Context) {
	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	if n := len(req.Operations); n > models.MaxBatchOperations {
		c.Error(fmt.Errorf("batch holds %d operations, at most %d are allowed", n, models.MaxBatchOperations)).SetType(gin.ErrorTypeBind)
		return
	}
	if h.Batches != nil {
		h.Batches.ObserveBatch(len(req.Operations))
	}

	cl, hasSession := h.sessionClient(c)
	reqs := make([]client.Request, len(req.Operations))
	for i := range req.Operations {
		reqs[i] = toClientRequest(&req.Operations[i], hasSession)
	}

	resp := models.BatchResponse{Results: make([]models.BatchResult, len(reqs))}
	for i, res := range cl.QueryBatch(c.Request.Context(), h.Pool, reqs) {
		if res.Err != nil {
			logging.Warn("Batched operation failed", map[string]interface{}{
				"index":     i,
				"operation": client.OperationName(reqs[i].Document),
				"error":     res.Err.Error(),
			})
			resp.Results[i].Error = res.Err.Error()
			continue
		}
		resp.Results[i].Data = res.Data
	}
	c.JSON(http.StatusOK, resp)
}

package routes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"

	"github.com/lablabs/storefront-client/internal/cache"
	"github.com/lablabs/storefront-client/internal/client"
	"github.com/lablabs/storefront-client/internal/handlers"
	"github.com/lablabs/storefront-client/internal/limiter"
	"github.com/lablabs/storefront-client/internal/logging"
	"github.com/lablabs/storefront-client/internal/metrics"
	"github.com/lablabs/storefront-client/internal/middlewares"
	"github.com/lablabs/storefront-client/internal/query"
)

// Gateway holds everything the HTTP routes need.
type Gateway struct {
	Client         *client.Client
	Sessions       cache.Sessions
	SessionBackend string
	Pool           *workerpool.WorkerPool
	Collectors     *metrics.Collectors
	Gatherer       prometheus.Gatherer
	MetricsPath    string
	CORSOrigins    []string
}

// NewRouter wires the gateway routes.
func NewRouter(g *Gateway) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.CORS(g.CORSOrigins...)) // For handling CORS requests
	r.Use(handlers.ErrorHandler())            // for handling errors

	qh := &handlers.QueryHandler{Client: g.Client, Sessions: g.Sessions, Pool: g.Pool}
	if g.Collectors != nil {
		qh.Batches = g.Collectors
	}
	r.POST("/graphql", qh.Query)
	r.POST("/batch", qh.Batch)
	r.GET("/health", handlers.HealthCheck(g.SessionBackend))
	if g.Gatherer != nil {
		r.GET(g.MetricsPath, metrics.Handler(g.Gatherer))
	}
	return r
}

// RunGateway builds the gateway from configuration and serves it until the
// listener fails.
func RunGateway() {
	logging.InitializeLogger(viper.GetString("log_level"))
	logging.Info("Starting storefront gateway", map[string]interface{}{
		"store":       viper.GetString("store"),
		"api_version": viper.GetString("api_version"),
	})

	metricsDenylist := []string{}
	if len(viper.GetString("metrics_denylist")) > 0 {
		metricsDenylist = strings.Split(viper.GetString("metrics_denylist"), ",")
	}
	deniedMetricsSet, err := metrics.BuildDeniedMetricsSet(metricsDenylist)
	if err != nil {
		logging.Fatal("Error building denied metrics set", map[string]interface{}{"error": err.Error()})
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storefrontMetrics := metrics.NewCollectors(reg, deniedMetricsSet)
	logging.Info("Metrics registered successfully", map[string]interface{}{"metricsDenylist": metricsDenylist})

	cl, err := NewClient(storefrontMetrics)
	if err != nil {
		logging.Fatal("Error creating storefront client", map[string]interface{}{"error": err.Error()})
	}

	backend := viper.GetString("session_backend")
	sessions, err := NewSessions(context.Background(), backend)
	if err != nil {
		logging.Fatal("Error creating session store", map[string]interface{}{"error": err.Error(), "backend": backend})
	}

	// Worker pool reused across batch requests
	pool := workerpool.New(viper.GetInt("workers"))
	defer pool.Stop()

	gin.SetMode(gin.ReleaseMode)
	r := NewRouter(&Gateway{
		Client:         cl,
		Sessions:       sessions,
		SessionBackend: backend,
		Pool:           pool,
		Collectors:     storefrontMetrics,
		Gatherer:       reg,
		MetricsPath:    viper.GetString("metrics_path"),
		CORSOrigins:    strings.Split(viper.GetString("cors_origins"), ","),
	})

	logging.Info("Beginning to serve gateway", map[string]interface{}{"listen": viper.GetString("listen")})
	if err := r.Run(viper.GetString("listen")); err != nil {
		logging.Fatal("Error starting server", map[string]interface{}{"error": err.Error()})
	}
}

// NewClient creates the storefront client described by the configuration.
// A nil observer leaves metrics off.
func NewClient(observer client.Observer) (*client.Client, error) {
	mode, err := query.ParseFragmentMode(viper.GetString("fragment_mode"))
	if err != nil {
		return nil, err
	}
	opts := []client.Option{
		client.WithFragmentMode(mode),
		client.WithLimiter(limiter.New(viper.GetFloat64("rate_limit"), viper.GetInt("rate_burst"))),
	}
	if endpoint := viper.GetString("endpoint"); endpoint != "" {
		opts = append(opts, client.WithEndpoint(endpoint))
	}
	if observer != nil {
		opts = append(opts, client.WithObserver(observer))
	}
	return client.New(
		viper.GetString("store"),
		viper.GetString("storefront_token"),
		viper.GetString("api_version"),
		opts...,
	)
}

// NewSessions returns the session registry for backend ("memory" or "redis").
func NewSessions(ctx context.Context, backend string) (cache.Sessions, error) {
	switch backend {
	case "", "memory":
		return cache.NewLRUSessions(viper.GetInt("session_capacity"))
	case "redis":
		rdb, err := cache.NewRedisClient(ctx, viper.GetString("redis_url"))
		if err != nil {
			return nil, err
		}
		ttl := time.Duration(viper.GetInt("session_ttl")) * time.Second
		return cache.NewRedisSessions(rdb, ttl), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}

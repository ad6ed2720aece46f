package exporter

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/boincctl/internal/observability"
	"github.com/danmuck/boincctl/model"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrListenRequired = errors.New("exporter: listen address required")

type Config struct {
	Listen       string
	PollInterval time.Duration
	// PollTimeout bounds one poll; zero uses PollInterval.
	PollTimeout time.Duration
	CORSOrigins []string
}

func DefaultConfig() Config {
	return Config{
		Listen:       "127.0.0.1:9535",
		PollInterval: 15 * time.Second,
	}
}

// Source is the subset of *client.Client the exporter polls.
type Source interface {
	GetHostInfo(ctx context.Context) (model.HostInfo, error)
	GetResults(ctx context.Context, activeOnly bool) ([]model.TaskResult, error)
}

// Snapshot is the outcome of the most recent poll.
type Snapshot struct {
	Up       bool               `json:"up"`
	PolledAt time.Time          `json:"polled_at"`
	Error    string             `json:"error,omitempty"`
	Host     model.HostInfo     `json:"host"`
	Results  []model.TaskResult `json:"results"`
}

type Exporter struct {
	cfg      Config
	src      Source
	metrics  *observability.Metrics
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
	router   *gin.Engine
	started  time.Time

	mu   sync.RWMutex
	last Snapshot
}

// New wires the exporter. metrics must be registered on gatherer.
func New(cfg Config, src Source, metrics *observability.Metrics, gatherer prometheus.Gatherer, logger zerolog.Logger) (*Exporter, error) {
	if strings.TrimSpace(cfg.Listen) == "" {
		return nil, ErrListenRequired
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = cfg.PollInterval
	}
	e := &Exporter{
		cfg:      cfg,
		src:      src,
		metrics:  metrics,
		gatherer: gatherer,
		logger:   logger,
		started:  time.Now(),
	}
	e.router = e.routes()
	return e, nil
}

func (e *Exporter) Handler() http.Handler {
	return e.router
}

func (e *Exporter) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// Poll fetches host info and results once and publishes them.
func (e *Exporter) Poll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.PollTimeout)
	defer cancel()

	var (
		host    model.HostInfo
		results []model.TaskResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		host, err = e.src.GetHostInfo(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		results, err = e.src.GetResults(gctx, false)
		return err
	})
	err := g.Wait()
	now := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.metrics.SetDown()
		e.last.Up = false
		e.last.PolledAt = now
		e.last.Error = err.Error()
		e.logger.Warn().Err(err).Msg("poll failed")
		return err
	}
	e.metrics.SetSnapshot(host, results, now)
	e.last = Snapshot{Up: true, PolledAt: now, Host: host, Results: results}
	e.logger.Debug().Int("results", len(results)).Msg("poll ok")
	return nil
}

// Run listens on cfg.Listen and polls until ctx ends.
func (e *Exporter) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", e.cfg.Listen)
	if err != nil {
		return err
	}
	return e.Serve(ctx, ln)
}

// Serve polls on an interval and serves HTTP on ln until ctx ends.
func (e *Exporter) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           e.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e.logger.Info().Str("addr", ln.Addr().String()).Msg("exporter listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		e.pollLoop(gctx)
		return nil
	})
	return g.Wait()
}

func (e *Exporter) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()
	for {
		// failures are recorded in the snapshot and on boinc_up
		_ = e.Poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (e *Exporter) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(e.logger))
	r.Use(observability.RequestMetrics(e.metrics))
	if len(e.cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: e.cfg.CORSOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(e.started).String(),
		})
	})
	r.GET("/ready", func(c *gin.Context) {
		snap := e.Snapshot()
		status := http.StatusOK
		if !snap.Up {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":     snap.Up,
			"polled_at": snap.PolledAt,
			"error":     snap.Error,
		})
	})
	r.GET("/snapshot", func(c *gin.Context) {
		c.JSON(http.StatusOK, e.Snapshot())
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(e.gatherer, promhttp.HandlerOpts{})))
	return r
}

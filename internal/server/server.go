package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ytsummarizer/internal/domain"
	"ytsummarizer/internal/metrics"
	"ytsummarizer/internal/summarizer"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	EndPointHealth        = "/"
	EndPointSummarize     = "/summarize"
	EndPointSimpleSummary = "/simple_summary"
	EndPointMetrics       = "/metrics"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// SummaryStore caches completed summaries by video ID.
type SummaryStore interface {
	GetSummary(ctx context.Context, videoID string, now time.Time) (*domain.CachedSummary, error)
	SaveSummary(ctx context.Context, summary *domain.CachedSummary, now time.Time, ttl time.Duration) error
}

type InfoFetcher interface {
	Fetch(ctx context.Context, raw string) (domain.VideoInfo, error)
}

type Server struct {
	router      *gin.Engine
	summarizer  summarizer.Summarizer
	infoFetcher InfoFetcher
	store       SummaryStore
	ttl         time.Duration
	now         func() time.Time
	log         *slog.Logger
}

// New builds the summarize endpoint. info and store are optional.
func New(
	s summarizer.Summarizer,
	info InfoFetcher,
	store SummaryStore,
	ttl time.Duration,
	log *slog.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	metrics.Register()

	srv := &Server{
		router:      gin.New(),
		summarizer:  s,
		infoFetcher: info,
		store:       store,
		ttl:         ttl,
		now:         time.Now,
		log:         log,
	}

	srv.router.Use(gin.Recovery(), srv.requestLogger())

	srv.router.GET(EndPointHealth, srv.handleHealth)
	srv.router.POST(EndPointSummarize, srv.handleSummarize)
	srv.router.POST(EndPointSimpleSummary, srv.handleSimpleSummary)
	srv.router.GET(EndPointMetrics, gin.WrapH(promhttp.Handler()))

	return srv
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.log.InfoContext(ctx, "Server is started",
		"addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.log.InfoContext(ctx, "Server is stopped",
		"addr", addr)

	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		s.log.InfoContext(c.Request.Context(), "Request is handled",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"statusCode", c.Writer.Status(),
			"durationSeconds", time.Since(start).Seconds())
	}
}

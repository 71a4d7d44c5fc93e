// Package server bootstraps the HTTP surface: an echo server carrying the
// research REST API, a health endpoint, and Prometheus metrics.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/deepsearch/ai"
	"github.com/hrygo/deepsearch/ai/core/llm"
	"github.com/hrygo/deepsearch/ai/engine"
	"github.com/hrygo/deepsearch/ai/metrics"
	"github.com/hrygo/deepsearch/ai/models"
	"github.com/hrygo/deepsearch/ai/session"
	"github.com/hrygo/deepsearch/internal/profile"
	apiv1 "github.com/hrygo/deepsearch/server/router/api/v1"
)

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	engine     *engine.Engine
	exporter   *metrics.PrometheusExporter
}

func NewServer(ctx context.Context, p *profile.Profile) (*Server, error) {
	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true

	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.CORS())
	echoServer.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	}))

	s := &Server{
		Profile:    p,
		echoServer: echoServer,
	}

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	// Initialize the research engine if AI is enabled.
	if p.IsAIEnabled() {
		aiConfig := ai.NewConfigFromProfile(p)
		if err := aiConfig.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid AI config")
		}

		router := models.NewRouter(aiConfig.SearchModel, aiConfig.ReasoningModel)
		gateway, err := llm.NewService(&aiConfig.LLM, router)
		if err != nil {
			return nil, errors.Wrap(err, "failed to initialize LLM gateway")
		}
		slog.Info("LLM gateway initialized",
			"provider", aiConfig.LLM.Provider,
			"search_model", aiConfig.SearchModel,
			"reasoning_model", aiConfig.ReasoningModel,
		)

		// Warmup asynchronously to reduce first-request latency.
		// Best-effort: warmup failures don't affect startup.
		go func() {
			warmupCtx, warmupCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer warmupCancel()
			gateway.Warmup(warmupCtx)
		}()

		s.exporter = metrics.NewPrometheusExporter()
		s.engine = engine.New(gateway, session.NewSession(), s.exporter, engine.Config{
			SearchesPerSecond: aiConfig.SearchesPerSecond,
		})

		echoServer.GET("/metrics", echo.WrapHandler(s.exporter.Handler()))

		apiService := apiv1.NewAPIV1Service(p, s.engine, aiConfig.DefaultEffort)
		apiService.RegisterRoutes(echoServer)
	} else {
		slog.Warn("AI disabled, research endpoints unavailable",
			"hint", "set DEEPSEARCH_AI_LLM_API_KEY to enable",
		)
	}

	return s, nil
}

// Engine exposes the research engine, nil when AI is disabled.
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
}

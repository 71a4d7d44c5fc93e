// Package v1 is the REST surface of the research engine.
package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/hrygo/deepsearch/ai/engine"
	"github.com/hrygo/deepsearch/internal/profile"
)

type APIV1Service struct {
	Profile *profile.Profile
	Engine  *engine.Engine

	// defaultEffort is used when a request names no effort level.
	defaultEffort string
}

func NewAPIV1Service(profile *profile.Profile, engine *engine.Engine, defaultEffort string) *APIV1Service {
	if defaultEffort == "" {
		defaultEffort = "medium"
	}
	return &APIV1Service{
		Profile:       profile,
		Engine:        engine,
		defaultEffort: defaultEffort,
	}
}

// RegisterRoutes registers the research REST routes with the given Echo
// instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	g := echoServer.Group("/api/v1")

	g.POST("/research", s.CreateResearch)
	g.GET("/research/:id", s.GetResearch)
	g.POST("/research/:id/cancel", s.CancelResearch)
	g.GET("/research/:id/events", s.GetResearchEvents)
	g.GET("/research/:id/result", s.GetResearchResult)
	g.GET("/research/:id/report", s.GetResearchReport)

	g.GET("/session/statistics", s.GetSessionStatistics)
	g.GET("/session/export", s.ExportSession)
	g.POST("/session/clear", s.ClearSession)
}

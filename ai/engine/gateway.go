package engine

import (
	"context"
	"time"

	"github.com/hrygo/deepsearch/ai/core/llm"
	"github.com/hrygo/deepsearch/ai/metrics"
	"github.com/hrygo/deepsearch/ai/models"
)

// instrumentedGateway records every gateway call on the metrics exporter.
type instrumentedGateway struct {
	llm.Service
	exporter *metrics.PrometheusExporter
}

func instrument(svc llm.Service, exporter *metrics.PrometheusExporter) llm.Service {
	if exporter == nil {
		return svc
	}
	return &instrumentedGateway{Service: svc, exporter: exporter}
}

func (g *instrumentedGateway) Generate(ctx context.Context, role models.Role, prompt string, opts llm.Options) (*llm.GenResult, error) {
	start := time.Now()
	result, err := g.Service.Generate(ctx, role, prompt, opts)

	promptTokens, completionTokens := 0, 0
	if result != nil {
		promptTokens = result.Stats.PromptTokens
		completionTokens = result.Stats.CompletionTokens
	}
	g.exporter.LLMCall(string(role), err, promptTokens, completionTokens, time.Since(start))

	return result, err
}

// Package models maps research roles to model parameters.
//
// Each phase of a research task talks to the LLM in a different register:
// grounded search wants a search-capable model at low temperature, answer
// synthesis wants a large output window, classification wants determinism.
// The Router keeps that mapping in one place.
package models

import "fmt"

// Role identifies which phase of a research task is calling the LLM.
type Role string

const (
	RoleSearch          Role = "search"
	RoleQueryGeneration Role = "query_generation"
	RoleReflection      Role = "reflection"
	RoleAnswer          Role = "answer"
	RoleTaskAnalysis    Role = "task_analysis"
)

// Params are the per-call model parameters resolved for a role.
type Params struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// Router resolves a Role to model parameters.
//
// The search role is pinned to a dedicated search-capable model; all other
// roles follow the session's reasoning model, which the user may override.
type Router struct {
	searchModel    string
	reasoningModel string
}

// NewRouter builds a Router. searchModel must be a model with provider-side
// web search support; reasoningModel is used for every non-search role.
func NewRouter(searchModel, reasoningModel string) *Router {
	return &Router{
		searchModel:    searchModel,
		reasoningModel: reasoningModel,
	}
}

// roleDefaults holds token limits and temperatures per role. Answer synthesis
// gets a large window because it renders the full cited report.
var roleDefaults = map[Role]struct {
	MaxTokens   int
	Temperature float32
}{
	RoleSearch:          {MaxTokens: 8192, Temperature: 0.1},
	RoleQueryGeneration: {MaxTokens: 4096, Temperature: 0.3},
	RoleReflection:      {MaxTokens: 8192, Temperature: 0.3},
	RoleAnswer:          {MaxTokens: 32000, Temperature: 0.3},
	RoleTaskAnalysis:    {MaxTokens: 4096, Temperature: 0.1},
}

// Resolve returns the parameters for a role.
func (r *Router) Resolve(role Role) (Params, error) {
	d, ok := roleDefaults[role]
	if !ok {
		return Params{}, fmt.Errorf("unknown model role: %q", role)
	}

	model := r.reasoningModel
	if role == RoleSearch {
		model = r.searchModel
	}

	return Params{
		Model:       model,
		MaxTokens:   d.MaxTokens,
		Temperature: d.Temperature,
	}, nil
}

// Roles returns all known roles, for diagnostics and validation.
func Roles() []Role {
	return []Role{RoleSearch, RoleQueryGeneration, RoleReflection, RoleAnswer, RoleTaskAnalysis}
}

package api

import (
	"net/http"

	"github.com/okian/studyprio/internal/domain/priority"
)

// RulesDependencies exposes the thresholds in effect.
type RulesDependencies interface {
	Thresholds() priority.Thresholds
}

// RulesHandler serves the classifier thresholds.
type RulesHandler struct {
	deps RulesDependencies
}

// NewRulesHandler creates a new rules handler.
func NewRulesHandler(deps RulesDependencies) *RulesHandler {
	return &RulesHandler{deps: deps}
}

// HandleGetRules handles GET /rules requests.
func (h *RulesHandler) HandleGetRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Thresholds())
}

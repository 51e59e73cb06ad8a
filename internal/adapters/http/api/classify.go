package api

import (
	"context"
	"net/http"

	"github.com/okian/studyprio/internal/domain/model"
	"github.com/okian/studyprio/internal/domain/types"
)

// ClassifyDependencies defines what the synchronous classify route needs.
type ClassifyDependencies interface {
	ClassifyAll(ctx context.Context, inputs []types.SubjectInput) ([]model.Classification, error)
}

// ClassifyHandler handles synchronous classification requests.
type ClassifyHandler struct {
	deps ClassifyDependencies
}

// NewClassifyHandler creates a new classify handler.
func NewClassifyHandler(deps ClassifyDependencies) *ClassifyHandler {
	return &ClassifyHandler{deps: deps}
}

type classifyResponse struct {
	Results []model.Classification `json:"results"`
}

// HandleClassify handles POST /classify requests.
func (h *ClassifyHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	var req types.ClassifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	results, err := h.deps.ClassifyAll(r.Context(), req.Subjects)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, classifyResponse{Results: results})
}

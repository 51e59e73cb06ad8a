package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/studyprio/internal/adapters/repository"
	"github.com/okian/studyprio/internal/domain/types"
)

// BatchDependencies defines what the batch routes need.
type BatchDependencies interface {
	Submit(ctx context.Context, batchID string, inputs []types.SubjectInput) (id string, duplicate bool, err error)
	Batch(ctx context.Context, id string) (repository.Batch, error)
}

// BatchesHandler handles asynchronous batch requests.
type BatchesHandler struct {
	deps BatchDependencies
}

// NewBatchesHandler creates a new batches handler.
func NewBatchesHandler(deps BatchDependencies) *BatchesHandler {
	return &BatchesHandler{deps: deps}
}

type ackResponse struct {
	BatchID   string `json:"batch_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandleSubmit handles POST /batches requests.
func (h *BatchesHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req types.BatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	id, duplicate, err := h.deps.Submit(r.Context(), strings.TrimSpace(req.BatchID), req.Subjects)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{BatchID: id, Status: "duplicate", Duplicate: true})
		return
	}
	w.Header().Set("Location", "/batches/"+id)
	writeJSON(w, http.StatusAccepted, ackResponse{BatchID: id, Status: "accepted"})
}

// HandleGetBatch handles GET /batches/{id} requests.
func (h *BatchesHandler) HandleGetBatch(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrMissingPath)
		return
	}

	b, err := h.deps.Batch(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

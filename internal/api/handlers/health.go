package handlers

import (
	"net/http"

	"github.com/cloo-solutions/sopbot/internal/api"
	"github.com/cloo-solutions/sopbot/internal/vectorindex"
)

type IndexStatus interface {
	Current() *vectorindex.Index
}

type HealthHandler struct {
	indexes IndexStatus
}

func NewHealthHandler(indexes IndexStatus) *HealthHandler {
	return &HealthHandler{indexes: indexes}
}

type HealthResponse struct {
	Status     string `json:"status"`
	IndexReady bool   `json:"index_ready"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		IndexReady: h.indexes != nil && h.indexes.Current() != nil,
	})
}

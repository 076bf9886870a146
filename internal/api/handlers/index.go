package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cloo-solutions/sopbot/internal/api"
	"github.com/cloo-solutions/sopbot/internal/domain"
	"github.com/cloo-solutions/sopbot/internal/vectorindex"
)

type IndexManager interface {
	EnsureIndex(ctx context.Context, folder string) (*domain.BuildReport, error)
	Rebuild(ctx context.Context, folder string) (*domain.BuildReport, error)
	Current() *vectorindex.Index
	Folder() string
}

type IndexHandler struct {
	indexes IndexManager
}

func NewIndexHandler(indexes IndexManager) *IndexHandler {
	return &IndexHandler{indexes: indexes}
}

type IndexRequest struct {
	Folder  string `json:"folder"`
	Rebuild bool   `json:"rebuild"`
}

type IndexStatusResponse struct {
	Folder   string               `json:"folder"`
	Manifest vectorindex.Manifest `json:"manifest"`
}

// Ensure loads or builds the index for a folder. With rebuild set the folder
// may be omitted and the current folder is rebuilt.
func (h *IndexHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var report *domain.BuildReport
	var err error
	if req.Rebuild {
		report, err = h.indexes.Rebuild(r.Context(), req.Folder)
	} else {
		report, err = h.indexes.EnsureIndex(r.Context(), req.Folder)
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, report)
}

func (h *IndexHandler) Status(w http.ResponseWriter, r *http.Request) {
	idx := h.indexes.Current()
	if idx == nil {
		api.HandleError(w, domain.ErrIndexNotFound)
		return
	}

	api.Success(w, http.StatusOK, IndexStatusResponse{
		Folder:   h.indexes.Folder(),
		Manifest: idx.Manifest(),
	})
}

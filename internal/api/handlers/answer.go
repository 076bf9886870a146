package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/sopbot/internal/api"
	"github.com/cloo-solutions/sopbot/internal/domain"
)

type Answerer interface {
	AnswerDetailed(ctx context.Context, question string) domain.AnswerResult
}

type AnswerHandler struct {
	answerer Answerer
}

func NewAnswerHandler(answerer Answerer) *AnswerHandler {
	return &AnswerHandler{answerer: answerer}
}

type AnswerRequest struct {
	Question string `json:"question"`
}

type AnswerResponse struct {
	Answer  string         `json:"answer"`
	Outcome domain.Outcome `json:"outcome"`
	Sources []string       `json:"sources"`
}

// Answer always responds 200 once the body parses; failures are carried in
// the answer text.
func (h *AnswerHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.answerer.AnswerDetailed(r.Context(), req.Question)
	sources := result.Sources
	if sources == nil {
		sources = []string{}
	}

	api.Success(w, http.StatusOK, AnswerResponse{
		Answer:  result.Answer,
		Outcome: result.Outcome,
		Sources: sources,
	})
}

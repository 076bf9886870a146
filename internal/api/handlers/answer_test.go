package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/sopbot/internal/domain"
)

func decodeData(t *testing.T, body []byte, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestAnswerHandler_Answer(t *testing.T) {
	answerer := new(MockAnswerer)
	handler := NewAnswerHandler(answerer)

	answerer.On("AnswerDetailed", mock.Anything, "Who approves refunds?").Return(domain.AnswerResult{
		Answer:  "The finance lead approves refunds.",
		Outcome: domain.OutcomeAnswered,
		Sources: []string{"/sops/finance/refunds.docx"},
	})

	body, _ := json.Marshal(AnswerRequest{Question: "Who approves refunds?"})
	req := httptest.NewRequest(http.MethodPost, "/answer", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Answer(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp AnswerResponse
	decodeData(t, w.Body.Bytes(), &resp)
	assert.Equal(t, "The finance lead approves refunds.", resp.Answer)
	assert.Equal(t, domain.OutcomeAnswered, resp.Outcome)
	assert.Equal(t, []string{"/sops/finance/refunds.docx"}, resp.Sources)
	answerer.AssertExpectations(t)
}

func TestAnswerHandler_FailureStillOK(t *testing.T) {
	answerer := new(MockAnswerer)
	handler := NewAnswerHandler(answerer)

	answerer.On("AnswerDetailed", mock.Anything, "q").Return(domain.AnswerResult{
		Answer:  "❌ Error generating answer: the embedding service is unavailable, please try again later.",
		Outcome: domain.OutcomeFailed,
	})

	req := httptest.NewRequest(http.MethodPost, "/answer", bytes.NewReader([]byte(`{"question":"q"}`)))
	w := httptest.NewRecorder()

	handler.Answer(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp AnswerResponse
	decodeData(t, w.Body.Bytes(), &resp)
	assert.Equal(t, domain.OutcomeFailed, resp.Outcome)
	assert.NotNil(t, resp.Sources)
	assert.Contains(t, w.Body.String(), `"sources":[]`)
}

func TestAnswerHandler_InvalidBody(t *testing.T) {
	answerer := new(MockAnswerer)
	handler := NewAnswerHandler(answerer)

	req := httptest.NewRequest(http.MethodPost, "/answer", bytes.NewReader([]byte(`{`)))
	w := httptest.NewRecorder()

	handler.Answer(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	answerer.AssertNotCalled(t, "AnswerDetailed", mock.Anything, mock.Anything)
}

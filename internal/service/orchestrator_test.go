package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/sopbot/internal/domain"
)

func TestIsGreeting(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"hi", true},
		{"  Hello  ", true},
		{"HEY", true},
		{"hie", true},
		{"hello there", false},
		{"hi!", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsGreeting(tt.input))
			if !tt.expected {
				return
			}
			result := NewOrchestrator(new(MockRetriever), new(MockSynthesizer)).AnswerDetailed(context.Background(), tt.input)
			assert.Equal(t, domain.OutcomeGreeting, result.Outcome)
			assert.Equal(t, GreetingReply, result.Answer)
		})
	}
}

func TestOrchestrator_Answer_ShortCircuits(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		outcome  domain.Outcome
	}{
		{"Empty", "", InvalidQuestionReply, domain.OutcomeInvalid},
		{"Whitespace", "   \t\n", InvalidQuestionReply, domain.OutcomeInvalid},
		{"Greeting", "  Hello  ", GreetingReply, domain.OutcomeGreeting},
		{"GreetingUpper", "HI", GreetingReply, domain.OutcomeGreeting},
		{"GreetingHie", "hie", GreetingReply, domain.OutcomeGreeting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retriever := new(MockRetriever)
			synth := new(MockSynthesizer)
			o := NewOrchestrator(retriever, synth)

			result := o.AnswerDetailed(context.Background(), tt.input)

			assert.Equal(t, tt.expected, result.Answer)
			assert.Equal(t, tt.outcome, result.Outcome)
			assert.Empty(t, result.Sources)
			retriever.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything)
			synth.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestOrchestrator_Answer_EndToEnd(t *testing.T) {
	folder := writeSOPFolder(t)
	p := newPipeline(t, filepath.Join(t.TempDir(), "sop_index"), folder)
	gen := new(MockGenerator)
	o := NewOrchestrator(
		NewRetriever(p.cache, p.embedder, 3),
		NewSynthesizer(gen, DefaultSynthesizerConfig()),
	)

	excerpts := strings.Join([]string{
		"Refunds above 500 EUR are approved by the finance lead.",
		"Approved refunds are paid within five business days.",
		"Refund requests are logged by the support agent.",
	}, "\n\n")
	question := "Who approved refunds above 500 EUR?"
	gen.On("Generate", mock.Anything, BuildPrompt(question, excerpts)).
		Return("The finance lead approves refunds above 500 EUR.", nil).Once()

	result := o.AnswerDetailed(context.Background(), "  "+question+" ")

	assert.Equal(t, "The finance lead approves refunds above 500 EUR.", result.Answer)
	assert.Equal(t, domain.OutcomeAnswered, result.Outcome)
	assert.Equal(t, []string{filepath.Join(folder, "finance", "refunds.docx")}, result.Sources)
	gen.AssertExpectations(t)

	// Build embeds all chunks once, then one query embedding.
	assert.Equal(t, int32(2), p.embedder.calls.Load())
}

func TestOrchestrator_Answer_EmbeddingTimeout(t *testing.T) {
	p := newPipeline(t, filepath.Join(t.TempDir(), "sop_index"), writeSOPFolder(t))
	_, err := p.cache.Get(context.Background())
	require.NoError(t, err)
	p.embedder.err = errEmbeddingTimeout

	gen := new(MockGenerator)
	o := NewOrchestrator(NewRetriever(p.cache, p.embedder, 3), NewSynthesizer(gen, DefaultSynthesizerConfig()))

	result := o.AnswerDetailed(context.Background(), "Who approves refunds?")

	assert.True(t, strings.HasPrefix(result.Answer, ErrorPrefix))
	assert.Equal(t, domain.OutcomeFailed, result.Outcome)
	assert.NotContains(t, result.Answer, "Client.Timeout")
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestOrchestrator_Answer_GenerationError(t *testing.T) {
	retriever := new(MockRetriever)
	synth := new(MockSynthesizer)
	o := NewOrchestrator(retriever, synth)

	chunks := []domain.ScoredChunk{{Chunk: domain.Chunk{Text: "a", SourcePath: "a.docx"}, Score: 0.9}}
	retriever.On("Retrieve", mock.Anything, "Who approves refunds?").Return(chunks, nil)
	synth.On("Synthesize", mock.Anything, "Who approves refunds?", "a").
		Return("", domain.NewGenerationError(errors.New("503 Service Unavailable")))

	answer := o.Answer(context.Background(), "Who approves refunds?")

	assert.Equal(t, ErrorPrefix+"the language model did not respond, please try again later.", answer)
	retriever.AssertExpectations(t)
	synth.AssertExpectations(t)
}

func TestOrchestrator_Answer_IndexNotReady(t *testing.T) {
	retriever := new(MockRetriever)
	o := NewOrchestrator(retriever, new(MockSynthesizer))

	retriever.On("Retrieve", mock.Anything, mock.Anything).Return(nil, domain.ErrIndexNotReady)

	result := o.AnswerDetailed(context.Background(), "Who approves refunds?")
	assert.Equal(t, ErrorPrefix+"no SOP folder has been indexed yet.", result.Answer)
	assert.Equal(t, domain.OutcomeFailed, result.Outcome)
}

type panickingRetriever struct{}

func (panickingRetriever) Retrieve(context.Context, string) ([]domain.ScoredChunk, error) {
	panic("index slice out of range")
}

func TestOrchestrator_Answer_RecoversPanic(t *testing.T) {
	o := NewOrchestrator(panickingRetriever{}, new(MockSynthesizer))

	result := o.AnswerDetailed(context.Background(), "Who approves refunds?")

	assert.Equal(t, ErrorPrefix+"an unexpected error occurred.", result.Answer)
	assert.Equal(t, domain.OutcomeFailed, result.Outcome)
}

func TestOrchestrator_Answer_DedupesSources(t *testing.T) {
	retriever := new(MockRetriever)
	synth := new(MockSynthesizer)
	o := NewOrchestrator(retriever, synth)

	chunks := []domain.ScoredChunk{
		{Chunk: domain.Chunk{Text: "one", SourcePath: "a.docx"}},
		{Chunk: domain.Chunk{Text: "two", SourcePath: "b.docx", Index: 0}},
		{Chunk: domain.Chunk{Text: "three", SourcePath: "a.docx", Index: 1}},
	}
	retriever.On("Retrieve", mock.Anything, "q?").Return(chunks, nil)
	synth.On("Synthesize", mock.Anything, "q?", "one\n\ntwo\n\nthree").Return("ok", nil)

	result := o.AnswerDetailed(context.Background(), "q?")
	assert.Equal(t, []string{"a.docx", "b.docx"}, result.Sources)
	assert.Equal(t, "ok", result.Answer)
}

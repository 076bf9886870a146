package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/sopbot/internal/domain"
	"github.com/cloo-solutions/sopbot/internal/telemetry"
)

const (
	// InvalidQuestionReply answers empty input.
	InvalidQuestionReply = "Please enter a valid question."
	// GreetingReply answers a bare greeting.
	GreetingReply = "Hello! How can I help you with the company SOPs today?"
	// ErrorPrefix marks every reply produced from a failure.
	ErrorPrefix = "❌ Error generating answer: "
)

var greetings = map[string]struct{}{
	"hi":    {},
	"hie":   {},
	"hello": {},
	"hey":   {},
}

// ChunkRetriever returns the chunks relevant to a question.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, question string) ([]domain.ScoredChunk, error)
}

// AnswerSynthesizer produces an answer from a question and its context.
type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, question, excerpts string) (string, error)
}

// Orchestrator is the entry point for questions. It never returns an error:
// failures become a reply starting with ErrorPrefix.
type Orchestrator struct {
	retriever   ChunkRetriever
	synthesizer AnswerSynthesizer
}

func NewOrchestrator(retriever ChunkRetriever, synthesizer AnswerSynthesizer) *Orchestrator {
	return &Orchestrator{retriever: retriever, synthesizer: synthesizer}
}

// IsGreeting reports whether the normalized input is one of the greeting tokens.
func IsGreeting(question string) bool {
	_, ok := greetings[strings.ToLower(strings.TrimSpace(question))]
	return ok
}

// Answer returns the reply text for question.
func (o *Orchestrator) Answer(ctx context.Context, question string) string {
	return o.AnswerDetailed(ctx, question).Answer
}

// AnswerDetailed is Answer plus the outcome and the sources used.
func (o *Orchestrator) AnswerDetailed(ctx context.Context, question string) (result domain.AnswerResult) {
	if strings.TrimSpace(question) == "" {
		return domain.AnswerResult{Answer: InvalidQuestionReply, Outcome: domain.OutcomeInvalid}
	}
	if IsGreeting(question) {
		return domain.AnswerResult{Answer: GreetingReply, Outcome: domain.OutcomeGreeting}
	}

	ctx, span := telemetry.StartSpan(ctx, "Orchestrator.Answer", telemetry.SpanAttributes{Operation: "answer"})
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			span.SetError(err)
			result = o.failure(ctx, err)
		}
	}()

	chunks, err := o.retriever.Retrieve(ctx, strings.TrimSpace(question))
	if err != nil {
		span.SetError(err)
		return o.failure(ctx, err)
	}

	texts := make([]string, len(chunks))
	sources := make([]string, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		if _, ok := seen[c.SourcePath]; !ok {
			seen[c.SourcePath] = struct{}{}
			sources = append(sources, c.SourcePath)
		}
	}

	answer, err := o.synthesizer.Synthesize(ctx, strings.TrimSpace(question), strings.Join(texts, "\n\n"))
	if err != nil {
		span.SetError(err)
		return o.failure(ctx, err)
	}

	return domain.AnswerResult{Answer: answer, Outcome: domain.OutcomeAnswered, Sources: sources}
}

func (o *Orchestrator) failure(ctx context.Context, err error) domain.AnswerResult {
	log.Printf("answer: failed: %v", err)
	telemetry.CaptureError(ctx, err)
	return domain.AnswerResult{Answer: ErrorPrefix + userMessage(err), Outcome: domain.OutcomeFailed}
}

// userMessage maps an error to text that is safe to show to the asker.
func userMessage(err error) string {
	switch domain.CodeOf(err) {
	case domain.ErrCodeEmbeddingService:
		return "the embedding service is unavailable, please try again later."
	case domain.ErrCodeGeneration:
		return "the language model did not respond, please try again later."
	case domain.ErrCodeEmptyCorpus:
		return "no SOP documents with text were found in the configured folder."
	case domain.ErrCodeNotFound:
		return "the SOP folder could not be found."
	case domain.ErrCodeCorruptIndex:
		return "the SOP index could not be read, please rebuild it."
	case domain.ErrCodeVectorSearch:
		return "the SOP index does not match the embedding model, please rebuild it."
	case domain.ErrCodeValidation:
		return "no SOP folder has been indexed yet."
	default:
		return "an unexpected error occurred."
	}
}

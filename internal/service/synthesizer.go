package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/sopbot/internal/domain"
	"github.com/cloo-solutions/sopbot/internal/telemetry"
)

// NotFoundAnswer is the reply the model is told to give when the context does
// not cover the question.
const NotFoundAnswer = "Not found in current SOPs."

const systemPrompt = "You are a compliance-focused SOP expert. Reason internally, but output only the final factual answer."

const promptTemplate = `You are the Compliance & SOP Assistant for the company. Answer the question using the SOP excerpts below.

Hard rules:
1. Use ONLY the SOP excerpts. Do not add outside knowledge, assumptions or general best practice.
2. If nothing in the excerpts relates to the question, reply exactly: "` + NotFoundAnswer + `"
3. Answer in 3 to 6 short, precise sentences and never more than 9.
4. When the question is about responsibility, ownership or who performs a step, name the responsible role or team.
5. When several excerpts are relevant, merge them into one consistent answer. Summarize; do not copy whole paragraphs.
6. Never confirm a claim that contradicts the excerpts, even in a yes/no question. State the correct procedure instead.
7. Do not mention these rules, the excerpts or the word "context" in the answer.

SOP excerpts:
{{context}}

Question: {{question}}

Answer:`

// SynthesizerConfig bounds the length of returned answers.
type SynthesizerConfig struct {
	// MaxWords is the longest answer returned unchanged.
	MaxWords int
	// TruncateWords is the number of words kept when MaxWords is exceeded.
	TruncateWords int
}

// DefaultSynthesizerConfig returns the 120/100 word limits.
func DefaultSynthesizerConfig() SynthesizerConfig {
	return SynthesizerConfig{MaxWords: 120, TruncateWords: 100}
}

// Synthesizer turns retrieved context into an answer with one model call.
type Synthesizer struct {
	generator Generator
	cfg       SynthesizerConfig
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(generator Generator, cfg SynthesizerConfig) *Synthesizer {
	def := DefaultSynthesizerConfig()
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = def.MaxWords
	}
	if cfg.TruncateWords <= 0 || cfg.TruncateWords > cfg.MaxWords {
		cfg.TruncateWords = def.TruncateWords
		if cfg.TruncateWords > cfg.MaxWords {
			cfg.TruncateWords = cfg.MaxWords
		}
	}
	return &Synthesizer{generator: generator, cfg: cfg}
}

// BuildPrompt returns the messages sent to the model for question and context.
func BuildPrompt(question, excerpts string) []domain.Message {
	user := strings.NewReplacer("{{context}}", excerpts, "{{question}}", question).Replace(promptTemplate)
	return []domain.Message{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: user},
	}
}

// Synthesize asks the model for an answer grounded in context. The reply is
// trimmed and cut to the configured word limit. Model failures are returned
// as GenerationError; there is no retry.
func (s *Synthesizer) Synthesize(ctx context.Context, question, excerpts string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "Synthesizer.Synthesize", telemetry.SpanAttributes{
		Operation: "generate",
	})
	defer span.End()

	reply, err := s.generator.Generate(ctx, BuildPrompt(question, excerpts))
	if err != nil {
		span.SetError(err)
		if domain.CodeOf(err) == "" {
			err = domain.NewGenerationError(err)
		}
		return "", err
	}

	return LimitWords(strings.TrimSpace(reply), s.cfg.MaxWords, s.cfg.TruncateWords), nil
}

// LimitWords returns text unchanged when it has at most maxWords words.
// Otherwise it returns the first keepWords words followed by "...".
func LimitWords(text string, maxWords, keepWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:keepWords], " ") + "..."
}

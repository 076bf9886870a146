// Package gemini implements answer generation on Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/cloo-solutions/sopbot/internal/domain"
)

const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 600
)

var (
	// ErrNoAPIKey is returned when no Gemini API key is configured
	ErrNoAPIKey = errors.New("gemini api key not set")
	// ErrEmptyResponse is returned when the model produced no text
	ErrEmptyResponse = errors.New("gemini returned no text")
)

// ContentAPI is the subset of genai.Models used by the client.
type ContentAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config configures a Client. A nil Temperature selects DefaultTemperature.
type Config struct {
	APIKey      string
	Model       string
	Temperature *float32
	MaxTokens   int
}

// Client generates answers with a Gemini model.
type Client struct {
	api         ContentAPI
	model       string
	temperature float32
	maxTokens   int32
}

// NewClient connects to the Gemini API.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newClient(gc.Models, cfg), nil
}

func newClient(api ContentAPI, cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	temperature := float32(DefaultTemperature)
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Client{
		api:         api,
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   int32(cfg.MaxTokens),
	}
}

// ChatModel returns the model used by Generate.
func (c *Client) ChatModel() string {
	return c.model
}

// Generate sends system messages as the system instruction and the remaining
// messages as user content. Failures are returned as GenerationError.
func (c *Client) Generate(ctx context.Context, messages []domain.Message) (string, error) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		contents = append(contents, genai.Text(m.Content)...)
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.temperature),
		MaxOutputTokens: c.maxTokens,
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.Text(strings.Join(system, "\n\n"))[0]
	}

	resp, err := c.api.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", domain.NewGenerationError(fmt.Errorf("failed to generate content: %w", err))
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", domain.NewGenerationError(ErrEmptyResponse)
	}
	return text, nil
}

package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/sopbot/internal/domain"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.LargeEmbedding3
	// DefaultChatModel is the OpenAI model used to synthesize answers
	DefaultChatModel = openai.GPT4oMini
	// DefaultBatchSize is the number of texts sent per embeddings request
	DefaultBatchSize = 64
	// DefaultTemperature keeps answers close to the retrieved context
	DefaultTemperature = 0.1
	// DefaultMaxTokens bounds the length of a generated answer
	DefaultMaxTokens = 600
	// DefaultTimeout applies to every request made by the client
	DefaultTimeout = 60 * time.Second
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embeddings in one call disagree on dimension
	ErrWrongDimensions = errors.New("embedding has inconsistent dimensions")
	// ErrWrongCount is returned when the API returns a different number of embeddings than inputs
	ErrWrongCount = errors.New("embedding count does not match input count")
	// ErrEmptyCompletion is returned when the chat API returns no content
	ErrEmptyCompletion = errors.New("chat completion returned no content")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatAPI defines the interface for chat completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, messages []domain.Message, opts ChatOptions) (string, error)
}

// ChatOptions are the sampling parameters of a chat completion.
type ChatOptions struct {
	Temperature float32
	MaxTokens   int
}

// Client wraps the OpenAI API client
type Client struct {
	embeddings     EmbeddingAPI
	chat           ChatAPI
	embeddingModel string
	chatModel      string
	batchSize      int
	opts           ChatOptions
}

type OpenAIAdapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	chatModel      string
}

func NewOpenAIAdapter(client *openai.Client, embeddingModel openai.EmbeddingModel, chatModel string) *OpenAIAdapter {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	return &OpenAIAdapter{
		client:         client,
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings. The result is
// ordered like texts.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i := range data {
		out[i] = data[i].Embedding
	}
	return out, nil
}

// CreateChatCompletion calls the OpenAI API and returns the first choice.
func (a *OpenAIAdapter) CreateChatCompletion(ctx context.Context, messages []domain.Message, opts ChatOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       a.chatModel,
		Temperature: requestTemperature(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// requestTemperature maps zero to the smallest positive float32, since the
// request field is omitted when empty and the API then samples at 1.
func requestTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// Config configures a Client. A nil Temperature selects DefaultTemperature.
type Config struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	ChatModel      string
	BatchSize      int
	Temperature    *float32
	MaxTokens      int
	Timeout        time.Duration
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(DefaultEmbeddingModel)
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	adapter := NewOpenAIAdapter(openai.NewClientWithConfig(apiCfg), openai.EmbeddingModel(cfg.EmbeddingModel), cfg.ChatModel)
	return newClient(adapter, adapter, cfg)
}

func newClient(embeddings EmbeddingAPI, chat ChatAPI, cfg Config) *Client {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(DefaultEmbeddingModel)
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	temperature := float32(DefaultTemperature)
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Client{
		embeddings:     embeddings,
		chat:           chat,
		embeddingModel: cfg.EmbeddingModel,
		chatModel:      cfg.ChatModel,
		batchSize:      cfg.BatchSize,
		opts:           ChatOptions{Temperature: temperature, MaxTokens: cfg.MaxTokens},
	}
}

// ModelID identifies the embedding model. It is recorded in persisted indexes.
func (c *Client) ModelID() string {
	return c.embeddingModel
}

// ChatModel returns the model used by Generate.
func (c *Client) ChatModel() string {
	return c.chatModel
}

// EmbedTexts embeds texts in batches and returns one vector per input, in
// input order. Provider failures are returned as EmbeddingServiceError.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, domain.NewEmbeddingServiceError(ErrEmptyText)
		}
	}

	out := make([][]float32, 0, len(texts))
	dimension := 0
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embeddings.CreateEmbeddings(ctx, texts[start:end])
		if err != nil {
			return nil, domain.NewEmbeddingServiceError(fmt.Errorf("failed to create embeddings: %w", err))
		}
		if len(batch) != end-start {
			return nil, domain.NewEmbeddingServiceError(fmt.Errorf("%w: got %d, want %d", ErrWrongCount, len(batch), end-start))
		}

		for _, vec := range batch {
			if dimension == 0 {
				dimension = len(vec)
			}
			if len(vec) == 0 || len(vec) != dimension {
				return nil, domain.NewEmbeddingServiceError(ErrWrongDimensions)
			}
			out = append(out, vec)
		}
	}

	return out, nil
}

// Generate sends messages to the chat model and returns the reply text.
// Failures, including an empty reply, are returned as GenerationError.
func (c *Client) Generate(ctx context.Context, messages []domain.Message) (string, error) {
	text, err := c.chat.CreateChatCompletion(ctx, messages, c.opts)
	if err != nil {
		return "", domain.NewGenerationError(fmt.Errorf("failed to create chat completion: %w", err))
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.NewGenerationError(ErrEmptyCompletion)
	}
	return text, nil
}

package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the retrieval and generation parameters that operators adjust
// without touching the environment. It is read from a YAML file.
type Tuning struct {
	ChunkSize           int      `yaml:"chunk_size"`
	ChunkOverlap        int      `yaml:"chunk_overlap"`
	Separators          []string `yaml:"separators"`
	EmbeddingBatchSize  int      `yaml:"embedding_batch_size"`
	TopK                int      `yaml:"top_k"`
	Temperature         float32  `yaml:"temperature"`
	MaxOutputTokens     int      `yaml:"max_output_tokens"`
	MaxAnswerWords      int      `yaml:"max_answer_words"`
	TruncateAnswerWords int      `yaml:"truncate_answer_words"`
}

// tuningKeys records the keys a tuning file sets whose zero value is a
// legitimate setting.
type tuningKeys struct {
	ChunkSize    *int     `yaml:"chunk_size"`
	ChunkOverlap *int     `yaml:"chunk_overlap"`
	Temperature  *float32 `yaml:"temperature"`
}

// DefaultTuning returns the parameters used when no tuning file exists.
func DefaultTuning() *Tuning {
	t := &Tuning{}
	applyTuningDefaults(t, tuningKeys{})
	return t
}

// LoadTuning reads a tuning file. If the file does not exist, returns defaults.
func LoadTuning(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultTuning(), nil
		}
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}

	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tuning file %s: %w", path, err)
	}
	var keys tuningKeys
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse tuning file %s: %w", path, err)
	}
	applyTuningDefaults(&t, keys)

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate rejects parameter combinations the pipeline cannot honor.
func (t *Tuning) Validate() error {
	if t.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", t.ChunkSize)
	}
	if t.ChunkOverlap < 0 || t.ChunkOverlap >= t.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", t.ChunkOverlap)
	}
	if t.TruncateAnswerWords > t.MaxAnswerWords {
		return fmt.Errorf("truncate_answer_words (%d) exceeds max_answer_words (%d)", t.TruncateAnswerWords, t.MaxAnswerWords)
	}
	if t.Temperature < 0 || t.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2], got %v", t.Temperature)
	}
	return nil
}

func applyTuningDefaults(t *Tuning, set tuningKeys) {
	// An explicit chunk_size keeps an omitted overlap at zero.
	if set.ChunkSize == nil {
		t.ChunkSize = 3000
		if set.ChunkOverlap == nil {
			t.ChunkOverlap = 500
		}
	}
	if len(t.Separators) == 0 {
		t.Separators = []string{"\n\n", "\n", ".", " "}
	}
	if t.EmbeddingBatchSize <= 0 {
		t.EmbeddingBatchSize = 64
	}
	if t.TopK <= 0 {
		t.TopK = 3
	}
	if set.Temperature == nil {
		t.Temperature = 0.1
	}
	if t.MaxOutputTokens <= 0 {
		t.MaxOutputTokens = 600
	}
	if t.MaxAnswerWords <= 0 {
		t.MaxAnswerWords = 120
	}
	if t.TruncateAnswerWords <= 0 {
		t.TruncateAnswerWords = 100
	}
}

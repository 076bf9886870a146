package domain

// Chunk is a contiguous slice of a SourceDocument's text. Consecutive chunks of
// the same document overlap by the configured overlap.
type Chunk struct {
	Text       string `json:"text"`
	SourcePath string `json:"source_path"`
	Index      int    `json:"index"`
}

// ScoredChunk is a Chunk returned by a similarity search together with its
// cosine similarity to the query.
type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}

package domain

import "time"

// IndexSource tells where the active index came from.
type IndexSource string

const (
	IndexSourceLoaded IndexSource = "loaded"
	IndexSourceBuilt  IndexSource = "built"
	IndexSourceReused IndexSource = "reused"
)

// BuildReport summarizes an EnsureIndex or Rebuild call.
type BuildReport struct {
	Folder    string        `json:"folder"`
	Source    IndexSource   `json:"source"`
	BuildID   string        `json:"build_id"`
	Documents int           `json:"documents"`
	Chunks    int           `json:"chunks"`
	Skipped   []SkippedFile `json:"skipped"`
	CreatedAt time.Time     `json:"created_at"`
}

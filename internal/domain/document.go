package domain

import (
	"fmt"
	"strings"
)

// SourceDocument is the extracted plain text of one file from the SOP folder.
type SourceDocument struct {
	Path string
	Text string
}

// SkippedFile records an eligible file the loader could not extract.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// NewSourceDocument creates a SourceDocument instance
func NewSourceDocument(path, text string) *SourceDocument {
	return &SourceDocument{
		Path: path,
		Text: text,
	}
}

// ValidateSourceDocument validates a SourceDocument instance
func ValidateSourceDocument(d *SourceDocument) error {
	if d == nil {
		return fmt.Errorf("source document cannot be nil")
	}

	if d.Path == "" {
		return fmt.Errorf("source document path is required")
	}

	if strings.TrimSpace(d.Text) == "" {
		return fmt.Errorf("source document %s has no text", d.Path)
	}

	return nil
}

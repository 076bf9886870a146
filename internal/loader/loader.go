// Package loader reads the SOP folder and extracts the text of every eligible
// document.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/sopbot/internal/domain"
)

const (
	// DocxExtension is the only document format the loader understands.
	DocxExtension = ".docx"
	// lockFilePrefix marks the owner files word processors leave next to open documents.
	lockFilePrefix = "~$"
)

// ExtractFunc returns the plain text of a single file.
type ExtractFunc func(path string) (string, error)

// Result is the outcome of loading a folder.
type Result struct {
	Documents []domain.SourceDocument
	Skipped   []domain.SkippedFile
}

// Loader walks a folder tree and extracts eligible documents.
type Loader struct {
	extract ExtractFunc
}

// New returns a Loader that extracts .docx files.
func New() *Loader {
	return &Loader{extract: ExtractDocx}
}

// NewWithExtractor returns a Loader using a custom extraction function.
func NewWithExtractor(extract ExtractFunc) *Loader {
	return &Loader{extract: extract}
}

// IsEligible reports whether a file name is a document the loader reads.
func IsEligible(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, lockFilePrefix) {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), DocxExtension)
}

// Load recursively extracts every eligible document under root. Files that
// fail extraction are reported in Result.Skipped and do not abort the walk.
// A missing root yields domain.ErrFolderNotFound; a folder without eligible
// documents yields an empty Result.
func (l *Loader) Load(ctx context.Context, root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, domain.NewFolderNotFoundError(root, err)
	}
	if !info.IsDir() {
		return nil, domain.NewFolderNotFoundError(root, errors.New("not a directory"))
	}

	result := &Result{}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return domain.NewFolderNotFoundError(root, walkErr)
			}
			log.Printf("loader: skipping %s: %v", path, walkErr)
			result.Skipped = append(result.Skipped, domain.SkippedFile{Path: path, Reason: walkErr.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsEligible(d.Name()) {
			return nil
		}

		text, err := l.extract(path)
		if err != nil {
			log.Printf("loader: skipped %s: %v", path, err)
			result.Skipped = append(result.Skipped, domain.SkippedFile{Path: path, Reason: err.Error()})
			return nil
		}

		doc := domain.NewSourceDocument(path, text)
		if err := domain.ValidateSourceDocument(doc); err != nil {
			log.Printf("loader: skipped %s: empty document", path)
			result.Skipped = append(result.Skipped, domain.SkippedFile{Path: path, Reason: "empty document"})
			return nil
		}

		result.Documents = append(result.Documents, *doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	log.Printf("loader: loaded %d documents from %s (%d skipped)", len(result.Documents), root, len(result.Skipped))
	return result, nil
}

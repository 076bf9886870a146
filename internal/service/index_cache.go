package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cloo-solutions/sopbot/internal/domain"
	"github.com/cloo-solutions/sopbot/internal/telemetry"
	"github.com/cloo-solutions/sopbot/internal/vectorindex"
)

type activeIndex struct {
	index  *vectorindex.Index
	folder string
}

// IndexCache owns the single active index of the process. Loads and builds
// are serialized by a mutex; readers get the current index without locking
// and never see a half-built one because a new index is published only after
// it is complete.
type IndexCache struct {
	mu            sync.Mutex
	current       atomic.Pointer[activeIndex]
	builder       *IndexBuilder
	store         vectorindex.Store
	modelID       string
	defaultFolder string
}

// NewIndexCache creates a cache. defaultFolder is indexed on first use when no
// folder was requested explicitly; it may be empty.
func NewIndexCache(builder *IndexBuilder, store vectorindex.Store, modelID, defaultFolder string) *IndexCache {
	if defaultFolder != "" {
		defaultFolder = filepath.Clean(defaultFolder)
	}
	return &IndexCache{
		builder:       builder,
		store:         store,
		modelID:       modelID,
		defaultFolder: defaultFolder,
	}
}

// Current returns the active index or nil.
func (c *IndexCache) Current() *vectorindex.Index {
	if a := c.current.Load(); a != nil {
		return a.index
	}
	return nil
}

// Folder returns the folder the active index was built from.
func (c *IndexCache) Folder() string {
	if a := c.current.Load(); a != nil {
		return a.folder
	}
	return ""
}

// Get returns the active index, loading or building it on first use.
func (c *IndexCache) Get(ctx context.Context) (*vectorindex.Index, error) {
	if a := c.current.Load(); a != nil {
		return a.index, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if a := c.current.Load(); a != nil {
		return a.index, nil
	}

	if c.defaultFolder != "" {
		if _, err := c.ensureLocked(ctx, c.defaultFolder); err != nil {
			return nil, err
		}
		return c.current.Load().index, nil
	}

	idx, err := c.loadVerified(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return nil, domain.ErrIndexNotReady
		}
		return nil, err
	}
	c.publish(idx, idx.Manifest().SourceFolder)
	return idx, nil
}

// EnsureIndex makes the index for folder active. It is a no-op when folder is
// already active. Otherwise the persisted index is reused if it was built from
// the same folder with the same embedding model, and rebuilt when it is
// missing, stale or corrupt.
func (c *IndexCache) EnsureIndex(ctx context.Context, folder string) (*domain.BuildReport, error) {
	if folder == "" {
		return nil, domain.ErrMissingRequiredField
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ensureLocked(ctx, filepath.Clean(folder))
}

// Rebuild builds folder from scratch and replaces the active index.
func (c *IndexCache) Rebuild(ctx context.Context, folder string) (*domain.BuildReport, error) {
	if folder == "" {
		folder = c.Folder()
	}
	if folder == "" {
		folder = c.defaultFolder
	}
	if folder == "" {
		return nil, domain.ErrMissingRequiredField
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.buildLocked(ctx, filepath.Clean(folder))
}

func (c *IndexCache) ensureLocked(ctx context.Context, folder string) (*domain.BuildReport, error) {
	if a := c.current.Load(); a != nil && a.folder == folder {
		return reportFor(a.index, folder, domain.IndexSourceReused), nil
	}

	ctx, span := telemetry.StartSpan(ctx, "IndexCache.EnsureIndex", telemetry.SpanAttributes{
		Folder:    folder,
		Model:     c.modelID,
		Operation: "ensure",
	})
	defer span.End()

	idx, err := c.loadVerified(ctx)
	switch {
	case err == nil && idx.Manifest().SourceFolder == folder:
		c.publish(idx, folder)
		log.Printf("index: loaded %d chunks for %s (build %s)", idx.Len(), folder, idx.Manifest().BuildID)
		return reportFor(idx, folder, domain.IndexSourceLoaded), nil
	case err == nil:
		log.Printf("index: persisted index was built from %s, rebuilding for %s", idx.Manifest().SourceFolder, folder)
	case errors.Is(err, domain.ErrIndexNotFound):
		log.Printf("index: no persisted index, building %s", folder)
	case errors.Is(err, domain.ErrCorruptIndex):
		log.Printf("index: WARNING persisted index unusable, rebuilding: %v", err)
		telemetry.AddBreadcrumb(ctx, "index", "corrupt index rebuilt")
	default:
		span.SetError(err)
		return nil, err
	}

	return c.buildLocked(ctx, folder)
}

func (c *IndexCache) buildLocked(ctx context.Context, folder string) (*domain.BuildReport, error) {
	idx, report, err := c.builder.Build(ctx, folder)
	if err != nil {
		return nil, err
	}
	c.publish(idx, folder)
	return report, nil
}

// loadVerified loads the persisted index and rejects one built with a
// different embedding model, since its vectors are not comparable.
func (c *IndexCache) loadVerified(ctx context.Context) (*vectorindex.Index, error) {
	idx, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if c.modelID != "" && idx.Manifest().EmbeddingModel != c.modelID {
		return nil, domain.NewCorruptIndexError(fmt.Errorf(
			"index built with embedding model %q, configured model is %q",
			idx.Manifest().EmbeddingModel, c.modelID))
	}
	return idx, nil
}

func (c *IndexCache) publish(idx *vectorindex.Index, folder string) {
	c.current.Store(&activeIndex{index: idx, folder: folder})
}

func reportFor(idx *vectorindex.Index, folder string, source domain.IndexSource) *domain.BuildReport {
	m := idx.Manifest()
	return &domain.BuildReport{
		Folder:    folder,
		Source:    source,
		BuildID:   m.BuildID,
		Documents: m.DocumentCount,
		Chunks:    m.ChunkCount,
		Skipped:   []domain.SkippedFile{},
		CreatedAt: m.CreatedAt,
	}
}

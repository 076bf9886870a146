package jobs

import (
	"context"
	"log"
	"sync"

	"github.com/cloo-solutions/sopbot/internal/domain"
)

const (
	// MaxRetries is the maximum number of attempts for one rebuild request
	MaxRetries = 3
)

// Rebuilder rebuilds the active index from its folder.
type Rebuilder interface {
	Rebuild(ctx context.Context, folder string) (*domain.BuildReport, error)
}

// RebuildWorker coalesces rebuild requests. Any number of requests between
// two polls result in a single rebuild.
type RebuildWorker struct {
	rebuilder Rebuilder
	folder    string

	mu      sync.Mutex
	pending bool
	retries int
}

// NewRebuildWorker creates a RebuildWorker that rebuilds folder, whichever
// index happens to be active when the request is processed.
func NewRebuildWorker(rebuilder Rebuilder, folder string) *RebuildWorker {
	return &RebuildWorker{rebuilder: rebuilder, folder: folder}
}

// RequestRebuild marks the index as stale.
func (w *RebuildWorker) RequestRebuild() {
	w.mu.Lock()
	w.pending = true
	w.mu.Unlock()
}

// Pending reports whether a rebuild is waiting for the next poll.
func (w *RebuildWorker) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

// ProcessJobs implements the JobProcessor interface
func (w *RebuildWorker) ProcessJobs(ctx context.Context) error {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return nil
	}
	w.pending = false
	w.mu.Unlock()

	report, err := w.rebuilder.Rebuild(ctx, w.folder)
	if err == nil {
		w.mu.Lock()
		w.retries = 0
		w.mu.Unlock()
		log.Printf("worker: rebuilt index for %s (%d documents, %d chunks)", report.Folder, report.Documents, report.Chunks)
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.retries++
	if w.retries < MaxRetries {
		log.Printf("worker: rebuild failed (attempt %d/%d), retrying: %v", w.retries, MaxRetries, err)
		w.pending = true
		return err
	}
	log.Printf("worker: rebuild failed after %d attempts, giving up until the next change: %v", w.retries, err)
	w.retries = 0
	return err
}

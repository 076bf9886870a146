package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"

	"github.com/cloo-solutions/sopbot/internal/domain"
	"github.com/cloo-solutions/sopbot/internal/telemetry"
	"github.com/cloo-solutions/sopbot/internal/vectorindex"
)

// ObjectStore is the subset of S3Client used to mirror index bundles.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// MirroredStore keeps the index bundle on local disk and copies every saved
// bundle to object storage. A host with no local bundle restores it from the
// mirror on Load.
type MirroredStore struct {
	local   *vectorindex.DirStore
	objects ObjectStore
	prefix  string
}

func NewMirroredStore(local *vectorindex.DirStore, objects ObjectStore, prefix string) *MirroredStore {
	return &MirroredStore{local: local, objects: objects, prefix: prefix}
}

func (s *MirroredStore) key(file string) string {
	return path.Join(s.prefix, file)
}

// Save writes the bundle locally and then uploads it. Upload failures are
// logged and do not fail the save; the local bundle is authoritative.
func (s *MirroredStore) Save(ctx context.Context, idx *vectorindex.Index) error {
	if err := s.local.Save(ctx, idx); err != nil {
		return err
	}

	if err := s.upload(ctx); err != nil {
		log.Printf("index: WARNING: mirror upload failed: %v", err)
		telemetry.CaptureError(ctx, err)
		return nil
	}
	log.Printf("index: mirrored bundle to %s", s.prefix)
	return nil
}

func (s *MirroredStore) upload(ctx context.Context) error {
	// Vectors go first so a reader never finds a manifest without its payload.
	for _, file := range vectorindex.BundleFiles {
		data, err := os.ReadFile(filepath.Join(s.local.Dir(), file))
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		if err := s.objects.PutObject(ctx, s.key(file), data); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the local bundle, downloading it from the mirror first when
// there is none on disk.
func (s *MirroredStore) Load(ctx context.Context) (*vectorindex.Index, error) {
	idx, err := s.local.Load(ctx)
	if !errors.Is(err, domain.ErrIndexNotFound) {
		return idx, err
	}

	if err := s.download(ctx); err != nil {
		return nil, err
	}
	log.Printf("index: restored bundle from mirror %s", s.prefix)
	return s.local.Load(ctx)
}

func (s *MirroredStore) download(ctx context.Context) error {
	files := make(map[string][]byte, len(vectorindex.BundleFiles))
	for _, file := range vectorindex.BundleFiles {
		data, err := s.objects.GetObject(ctx, s.key(file))
		if err != nil {
			if errors.Is(err, ErrObjectNotFound) {
				return domain.ErrIndexNotFound
			}
			return domain.NewStorageError(err)
		}
		files[file] = data
	}

	dir := s.local.Dir()
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return domain.NewStorageError(err)
	}
	tmp, err := os.MkdirTemp(parent, filepath.Base(dir)+".download-")
	if err != nil {
		return domain.NewStorageError(err)
	}
	defer os.RemoveAll(tmp)

	for name, data := range files {
		if err := os.WriteFile(filepath.Join(tmp, name), data, 0o644); err != nil {
			return domain.NewStorageError(err)
		}
	}

	// A directory without a manifest is an interrupted bundle.
	if err := os.RemoveAll(dir); err != nil {
		return domain.NewStorageError(err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		return domain.NewStorageError(err)
	}
	return nil
}

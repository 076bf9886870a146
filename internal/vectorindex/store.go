package vectorindex

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/cloo-solutions/sopbot/internal/domain"
)

const (
	ManifestFile = "manifest.json"
	VectorsFile  = "vectors.gob"
)

// BundleFiles lists the files that make up a persisted index, in the order
// they must be written.
var BundleFiles = []string{VectorsFile, ManifestFile}

// Store persists and restores a whole index. Implementations replace the
// stored index atomically on Save. Load returns domain.ErrIndexNotFound when
// nothing is stored and a CorruptIndexError when the stored data is unusable.
type Store interface {
	Save(ctx context.Context, idx *Index) error
	Load(ctx context.Context) (*Index, error)
}

type payload struct {
	Chunks  []domain.Chunk
	Vectors [][]float32
}

// DirStore keeps an index as a bundle directory holding manifest.json and
// vectors.gob.
type DirStore struct {
	dir string
}

func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Dir returns the bundle directory.
func (s *DirStore) Dir() string {
	return s.dir
}

// Save writes the bundle into a sibling temporary directory and swaps it in
// with renames, so readers never observe a partially written bundle.
func (s *DirStore) Save(ctx context.Context, idx *Index) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload{Chunks: idx.chunks, Vectors: idx.vectors}); err != nil {
		return fmt.Errorf("failed to encode index payload: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())

	manifest := idx.manifest
	manifest.PayloadSHA256 = hex.EncodeToString(sum[:])
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	parent := filepath.Dir(s.dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("failed to create index parent dir: %w", err)
	}

	tmp, err := os.MkdirTemp(parent, filepath.Base(s.dir)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp index dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := writeFileSync(filepath.Join(tmp, VectorsFile), buf.Bytes()); err != nil {
		return err
	}
	if err := writeFileSync(filepath.Join(tmp, ManifestFile), manifestJSON); err != nil {
		return err
	}

	old := ""
	if _, err := os.Stat(s.dir); err == nil {
		old = s.dir + ".old-" + manifest.BuildID
		if err := os.Rename(s.dir, old); err != nil {
			return fmt.Errorf("failed to move previous index aside: %w", err)
		}
	}

	if err := os.Rename(tmp, s.dir); err != nil {
		if old != "" {
			_ = os.Rename(old, s.dir)
		}
		return fmt.Errorf("failed to install index: %w", err)
	}

	if old != "" {
		if err := os.RemoveAll(old); err != nil {
			log.Printf("index: failed to remove previous bundle %s: %v", old, err)
		}
	}

	log.Printf("index: saved %d chunks to %s (build %s)", manifest.ChunkCount, s.dir, manifest.BuildID)
	return nil
}

// ReadManifest reads only the manifest of the stored bundle.
func (s *DirStore) ReadManifest() (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ManifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrIndexNotFound
		}
		return nil, domain.NewCorruptIndexError(fmt.Errorf("read manifest: %w", err))
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, domain.NewCorruptIndexError(fmt.Errorf("parse manifest: %w", err))
	}
	return &m, nil
}

// Load reads and verifies the stored bundle.
func (s *DirStore) Load(ctx context.Context) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	manifest, err := s.ReadManifest()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, VectorsFile))
	if err != nil {
		return nil, domain.NewCorruptIndexError(fmt.Errorf("read vectors: %w", err))
	}

	if manifest.PayloadSHA256 != "" {
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != manifest.PayloadSHA256 {
			return nil, domain.NewCorruptIndexError(errors.New("vectors checksum mismatch"))
		}
	}

	var p payload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return nil, domain.NewCorruptIndexError(fmt.Errorf("decode vectors: %w", err))
	}

	return Restore(*manifest, p.Chunks, p.Vectors)
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

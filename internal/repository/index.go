package repository

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/sopbot/internal/domain"
	"github.com/cloo-solutions/sopbot/internal/vectorindex"
)

// IndexRepository stores index builds in Postgres. Each Save inserts a new
// build and flips it active in one transaction; Load returns the active build.
type IndexRepository struct {
	pool *pgxpool.Pool
}

func NewIndexRepository(pool *pgxpool.Pool) *IndexRepository {
	return &IndexRepository{pool: pool}
}

// Save implements vectorindex.Store.
func (r *IndexRepository) Save(ctx context.Context, idx *vectorindex.Index) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	if err := saveBuild(ctx, tx, idx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	m := idx.Manifest()
	log.Printf("index: saved %d chunks to postgres (build %s)", m.ChunkCount, m.BuildID)
	return nil
}

func saveBuild(ctx context.Context, tx pgx.Tx, idx *vectorindex.Index) error {
	m := idx.Manifest()
	_, err := tx.Exec(ctx,
		`INSERT INTO index_builds
			(build_id, version, embedding_model, dimension, chunk_count, document_count, source_folder, chunk_size, chunk_overlap, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.BuildID, m.Version, m.EmbeddingModel, m.Dimension, m.ChunkCount, m.DocumentCount,
		m.SourceFolder, m.ChunkSize, m.ChunkOverlap, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}

	batch := &pgx.Batch{}
	vectors := idx.Vectors()
	for i, c := range idx.Chunks() {
		batch.Queue(
			`INSERT INTO index_chunks (build_id, position, source_path, chunk_index, content, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			m.BuildID, i, c.SourcePath, c.Index, c.Text, pgvector.NewVector(vectors[i]),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE index_builds SET active = FALSE WHERE active`); err != nil {
		return fmt.Errorf("deactivate previous build: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE index_builds SET active = TRUE WHERE build_id = $1`, m.BuildID); err != nil {
		return fmt.Errorf("activate build: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM index_builds WHERE NOT active`); err != nil {
		return fmt.Errorf("prune previous builds: %w", err)
	}
	return nil
}

// activeManifest returns the manifest of the active build, or
// domain.ErrIndexNotFound when nothing has been saved.
func activeManifest(ctx context.Context, db dbtx) (*vectorindex.Manifest, error) {
	var m vectorindex.Manifest
	err := db.QueryRow(ctx,
		`SELECT build_id::text, version, embedding_model, dimension, chunk_count, document_count,
		        source_folder, chunk_size, chunk_overlap, created_at
		 FROM index_builds WHERE active`,
	).Scan(&m.BuildID, &m.Version, &m.EmbeddingModel, &m.Dimension, &m.ChunkCount, &m.DocumentCount,
		&m.SourceFolder, &m.ChunkSize, &m.ChunkOverlap, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIndexNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Load implements vectorindex.Store.
func (r *IndexRepository) Load(ctx context.Context) (*vectorindex.Index, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	m, err := activeManifest(ctx, tx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx,
		`SELECT source_path, chunk_index, content, embedding::text
		 FROM index_chunks WHERE build_id = $1
		 ORDER BY position ASC`,
		m.BuildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks := make([]domain.Chunk, 0, m.ChunkCount)
	vectors := make([][]float32, 0, m.ChunkCount)
	for rows.Next() {
		var c domain.Chunk
		var raw string
		if err := rows.Scan(&c.SourcePath, &c.Index, &c.Text, &raw); err != nil {
			return nil, err
		}
		var vec pgvector.Vector
		if err := vec.Scan(raw); err != nil {
			return nil, domain.NewCorruptIndexError(fmt.Errorf("parse embedding: %w", err))
		}
		chunks = append(chunks, c)
		vectors = append(vectors, vec.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return vectorindex.Restore(*m, chunks, vectors)
}

package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/vantor/ragserve/internal/model"
)

// ChunkRepo persists embedded document chunks and answers similarity queries.
// It is the single source of truth for corpus sync state; the stored
// (source, content_hash) pair drives change detection.
type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) Insert(ctx context.Context, chunk *model.DocumentChunk) error {
	const query = `
		INSERT INTO document_chunks (content, embedding, source, content_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		chunk.Content,
		pgvector.NewVector(chunk.Embedding),
		chunk.Metadata.Source,
		chunk.Metadata.ContentHash,
		time.Now().Unix(),
	)
	return err
}

// TopKSimilar returns up to k chunks ordered by descending cosine similarity
// to the query embedding.
func (r *ChunkRepo) TopKSimilar(ctx context.Context, embedding []float32, k int) ([]model.DocumentChunk, error) {
	const query = `
		SELECT content, source, content_hash
		FROM document_chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []model.DocumentChunk
	for rows.Next() {
		var chunk model.DocumentChunk
		if err := rows.Scan(&chunk.Content, &chunk.Metadata.Source, &chunk.Metadata.ContentHash); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepo) ExistsForSource(ctx context.Context, source string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM document_chunks WHERE source = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, source).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// HashForSource returns the stored content hash for a source, or "" when the
// source has no chunks.
func (r *ChunkRepo) HashForSource(ctx context.Context, source string) (string, error) {
	const query = `SELECT content_hash FROM document_chunks WHERE source = $1 LIMIT 1`
	var hash string
	if err := r.db.QueryRowContext(ctx, query, source).Scan(&hash); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return hash, nil
}

func (r *ChunkRepo) DeleteForSource(ctx context.Context, source string) (int64, error) {
	const query = `DELETE FROM document_chunks WHERE source = $1`
	res, err := r.db.ExecContext(ctx, query, source)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/vantor/ragserve/internal/ai"
	"github.com/vantor/ragserve/internal/corpus"
	"github.com/vantor/ragserve/internal/metrics"
	"github.com/vantor/ragserve/internal/model"
)

// ChunkStore is the persistence capability corpus sync writes through.
type ChunkStore interface {
	Insert(ctx context.Context, chunk *model.DocumentChunk) error
	ExistsForSource(ctx context.Context, source string) (bool, error)
	HashForSource(ctx context.Context, source string) (string, error)
	DeleteForSource(ctx context.Context, source string) (int64, error)
}

// CorpusSyncService diffs markdown documents against the chunk store by
// content hash and re-embeds only what changed. Safe to run repeatedly; an
// unchanged corpus costs one existence check and one hash read per file.
type CorpusSyncService struct {
	chunks   ChunkStore
	embedder ai.IEmbedder
	splitter *corpus.Splitter
}

func NewCorpusSyncService(chunks ChunkStore, embedder ai.IEmbedder, splitter *corpus.Splitter) *CorpusSyncService {
	return &CorpusSyncService{chunks: chunks, embedder: embedder, splitter: splitter}
}

// Sync processes every markdown file directly under dir. Per-file failures
// are logged and skipped so one broken document never blocks the rest.
func (s *CorpusSyncService) Sync(ctx context.Context, dir string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("dir", dir))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read corpus dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := s.syncFile(ctx, path); err != nil {
			metrics.CorpusSyncFiles.WithLabelValues("error").Inc()
			logger.Error("sync file failed", zap.String("path", path), zap.Error(err))
			continue
		}
	}
	logger.Info("corpus sync finished")
	return nil
}

func (s *CorpusSyncService) syncFile(ctx context.Context, path string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("path", path))
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	currentHash := corpus.ContentHash(string(content))

	exists, err := s.chunks.ExistsForSource(ctx, path)
	if err != nil {
		return fmt.Errorf("check existing chunks: %w", err)
	}
	if exists {
		storedHash, err := s.chunks.HashForSource(ctx, path)
		if err != nil {
			return fmt.Errorf("read stored hash: %w", err)
		}
		if storedHash == currentHash {
			metrics.CorpusSyncFiles.WithLabelValues("unchanged").Inc()
			logger.Debug("document unchanged, skipping")
			return nil
		}
		deleted, err := s.chunks.DeleteForSource(ctx, path)
		if err != nil {
			return fmt.Errorf("delete stale chunks: %w", err)
		}
		logger.Info("document changed, re-indexing", zap.Int64("deleted_chunks", deleted))
	}

	texts := s.splitter.Split(string(content))
	if len(texts) == 0 {
		metrics.CorpusSyncFiles.WithLabelValues("empty").Inc()
		logger.Warn("document produced no chunks")
		return nil
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	for i, text := range texts {
		chunk := &model.DocumentChunk{
			Content:   text,
			Embedding: vectors[i],
			Metadata: model.ChunkMetadata{
				Source:      path,
				ContentHash: currentHash,
			},
		}
		if err := s.chunks.Insert(ctx, chunk); err != nil {
			// Don't leave a half-written chunk set behind: a later run
			// would see the current hash and skip the file forever.
			if _, delErr := s.chunks.DeleteForSource(ctx, path); delErr != nil {
				logger.Error("cleanup after failed insert also failed", zap.Error(delErr))
			}
			return fmt.Errorf("store chunk %d: %w", i, err)
		}
	}
	metrics.CorpusSyncFiles.WithLabelValues("indexed").Inc()
	logger.Info("document indexed", zap.Int("chunks", len(texts)))
	return nil
}

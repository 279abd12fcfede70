package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vantor/ragserve/internal/corpus"
	"github.com/vantor/ragserve/internal/model"
)

type fakeChunkStore struct {
	mu      sync.Mutex
	chunks  map[string][]model.DocumentChunk // source -> chunk set
	inserts int
	deletes int
	failing bool
}

func newFakeChunkStore() *fakeChunkStore {
	return &fakeChunkStore{chunks: make(map[string][]model.DocumentChunk)}
}

func (s *fakeChunkStore) Insert(_ context.Context, chunk *model.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("store down")
	}
	s.inserts++
	s.chunks[chunk.Metadata.Source] = append(s.chunks[chunk.Metadata.Source], *chunk)
	return nil
}

func (s *fakeChunkStore) ExistsForSource(_ context.Context, source string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks[source]) > 0, nil
}

func (s *fakeChunkStore) HashForSource(_ context.Context, source string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.chunks[source]
	if len(set) == 0 {
		return "", nil
	}
	return set[0].Metadata.ContentHash, nil
}

func (s *fakeChunkStore) DeleteForSource(_ context.Context, source string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.chunks[source]))
	delete(s.chunks, source)
	s.deletes++
	return n, nil
}

func (s *fakeChunkStore) TopKSimilar(_ context.Context, _ []float32, k int) ([]model.DocumentChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.DocumentChunk
	for _, set := range s.chunks {
		out = append(out, set...)
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

type fakeEmbedder struct {
	calls int
	fail  bool
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.fail {
		return nil, errors.New("embedder down")
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i]))}
	}
	return vectors, nil
}

func (e *fakeEmbedder) ModelName() string { return "fake-embed" }

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestSync(store *fakeChunkStore, embedder *fakeEmbedder) *CorpusSyncService {
	return NewCorpusSyncService(store, embedder, corpus.NewSplitter(1000, 200))
}

func TestSyncIndexesNewDocuments(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "about.md", "# About\n\nSome background text.\n")
	writeDoc(t, dir, "notes.txt", "not markdown, ignored")

	store := newFakeChunkStore()
	svc := newTestSync(store, &fakeEmbedder{})
	require.NoError(t, svc.Sync(context.Background(), dir))

	require.Greater(t, store.inserts, 0)
	set := store.chunks[path]
	require.NotEmpty(t, set)
	for _, chunk := range set {
		require.Equal(t, path, chunk.Metadata.Source)
		require.Equal(t, corpus.ContentHash("# About\n\nSome background text.\n"), chunk.Metadata.ContentHash)
	}
	require.Len(t, store.chunks, 1, "non-markdown files must be ignored")
}

func TestSyncIsIdempotentForUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "about.md", "# About\n\nStable content.\n")

	store := newFakeChunkStore()
	embedder := &fakeEmbedder{}
	svc := newTestSync(store, embedder)

	require.NoError(t, svc.Sync(context.Background(), dir))
	firstInserts := store.inserts
	firstEmbeds := embedder.calls

	require.NoError(t, svc.Sync(context.Background(), dir))
	require.Equal(t, firstInserts, store.inserts, "second run must write nothing")
	require.Equal(t, firstEmbeds, embedder.calls, "second run must not re-embed")
}

func TestSyncReplacesChangedDocumentCompletely(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "about.md", "# About\n\nOriginal body.\n")

	store := newFakeChunkStore()
	svc := newTestSync(store, &fakeEmbedder{})
	require.NoError(t, svc.Sync(context.Background(), dir))

	newContent := "# About\n\nRewritten body with different text entirely.\n"
	writeDoc(t, dir, "about.md", newContent)
	require.NoError(t, svc.Sync(context.Background(), dir))

	require.Equal(t, 1, store.deletes, "old chunk set must be deleted")
	newHash := corpus.ContentHash(newContent)
	for _, chunk := range store.chunks[path] {
		require.Equal(t, newHash, chunk.Metadata.ContentHash, "no orphaned chunks from the old version")
	}
}

func TestSyncContinuesPastFailingFiles(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.md", "# A\n\nalpha\n")
	writeDoc(t, dir, "b.md", "# B\n\nbeta\n")

	store := newFakeChunkStore()
	embedder := &fakeEmbedder{fail: true}
	svc := newTestSync(store, embedder)

	// Embedder down: every file fails, but Sync itself succeeds.
	require.NoError(t, svc.Sync(context.Background(), dir))
	require.Equal(t, 0, store.inserts)
	require.Equal(t, 2, embedder.calls)
}

func TestSyncCleansUpAfterPartialInsertFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "a.md", "# A\n\nalpha\n")

	store := newFakeChunkStore()
	store.failing = true
	svc := newTestSync(store, &fakeEmbedder{})
	require.NoError(t, svc.Sync(context.Background(), dir))

	require.Empty(t, store.chunks[path], "failed index must not leave chunks behind")

	// Store recovers: the file is indexed on the next run.
	store.failing = false
	require.NoError(t, svc.Sync(context.Background(), dir))
	require.NotEmpty(t, store.chunks[path])
}

func TestSyncMissingDirectory(t *testing.T) {
	store := newFakeChunkStore()
	svc := newTestSync(store, &fakeEmbedder{})
	require.Error(t, svc.Sync(context.Background(), filepath.Join(t.TempDir(), "missing")))
}

package model

type ChunkMetadata struct {
	Source      string `json:"source"`
	ContentHash string `json:"content_hash"`
}

// DocumentChunk is one embedded slice of a corpus document. All chunks from
// the same file share Source and ContentHash; the hash identifies the file
// revision they were cut from.
type DocumentChunk struct {
	ID        int64         `json:"id"`
	Content   string        `json:"content"`
	Embedding []float32     `json:"embedding"`
	Metadata  ChunkMetadata `json:"metadata"`
	CreatedAt int64         `json:"created_at"`
}

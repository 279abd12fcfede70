package ai

import (
	"context"
	"time"

	"github.com/vantor/ragserve/internal/model"
)

type timeoutChatter struct {
	inner IChatter
	d     time.Duration
}

// NewTimeoutChatter caps the total duration of a stream, including all
// fragment deliveries. Zero or negative d disables the cap.
func NewTimeoutChatter(inner IChatter, d time.Duration) IChatter {
	if d <= 0 {
		return inner
	}
	return &timeoutChatter{inner: inner, d: d}
}

func (t *timeoutChatter) ChatStream(ctx context.Context, messages []model.ChatMessage, fn StreamFunc) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.ChatStream(ctx, messages, fn)
}

type timeoutEmbedder struct {
	inner IEmbedder
	d     time.Duration
}

func NewTimeoutEmbedder(inner IEmbedder, d time.Duration) IEmbedder {
	if d <= 0 {
		return inner
	}
	return &timeoutEmbedder{inner: inner, d: d}
}

func (t *timeoutEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.Embed(ctx, text)
}

func (t *timeoutEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.EmbedBatch(ctx, texts)
}

func (t *timeoutEmbedder) ModelName() string {
	return t.inner.ModelName()
}

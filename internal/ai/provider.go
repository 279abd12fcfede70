package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vantor/ragserve/internal/model"
)

var ErrUnavailable = errors.New("ai provider unavailable")

// StreamFunc receives one content fragment per call, in generation order.
// Returning an error aborts the upstream stream.
type StreamFunc func(fragment string) error

type IChatProvider interface {
	Name() string
	// ChatStream drives a streaming completion for the message list at zero
	// sampling temperature and feeds each fragment to fn.
	ChatStream(ctx context.Context, modelName string, messages []model.ChatMessage, fn StreamFunc) error
}

type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, modelName string, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, modelName string, texts []string) ([][]float32, error)
}

type IChatter interface {
	ChatStream(ctx context.Context, messages []model.ChatMessage, fn StreamFunc) error
}

type IEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

type chatter struct {
	provider IChatProvider
	model    string
}

func NewChatter(p IChatProvider, modelName string) IChatter {
	return &chatter{provider: p, model: modelName}
}

func (c *chatter) ChatStream(ctx context.Context, messages []model.ChatMessage, fn StreamFunc) error {
	return c.provider.ChatStream(ctx, c.model, messages, fn)
}

type embedder struct {
	provider IEmbedProvider
	model    string
}

func NewEmbedder(p IEmbedProvider, modelName string) IEmbedder {
	return &embedder{provider: p, model: modelName}
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.provider.Embed(ctx, e.model, text)
}

func (e *embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.provider.EmbedBatch(ctx, e.model, texts)
}

func (e *embedder) ModelName() string {
	return e.model
}

type ChatFactory func(args interface{}) (IChatProvider, error)
type EmbedFactory func(args interface{}) (IEmbedProvider, error)

var (
	chatRegistry  = map[string]ChatFactory{}
	embedRegistry = map[string]EmbedFactory{}
)

func Register(name string, factory ChatFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	chatRegistry[key] = factory
}

func RegisterEmbed(name string, factory EmbedFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	embedRegistry[key] = factory
}

func NewChatProvider(name string, args interface{}) (IChatProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := chatRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.embed_provider is required")
	}
	factory := embedRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embed provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, out interface{}) error {
	if args == nil {
		return nil
	}
	var data []byte
	switch v := args.(type) {
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		encoded, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("encode provider args: %w", err)
		}
		data = encoded
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode provider args: %w", err)
	}
	return nil
}

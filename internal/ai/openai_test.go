package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vantor/ragserve/internal/model"
)

func TestOpenAIChatStreamDeliversFragmentsInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		body := "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"!\"}}]}\n\n" +
			"data: [DONE]\n\n"
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	provider := &openAIProvider{apiKey: "test", baseURL: server.URL}
	var got []string
	err := provider.ChatStream(context.Background(), "test-model",
		[]model.ChatMessage{{Role: model.RoleUser, Content: "hi"}},
		func(fragment string) error {
			got = append(got, fragment)
			return nil
		})
	require.NoError(t, err)
	require.Equal(t, []string{"Hel", "lo", "!"}, got)
}

func TestOpenAIChatStreamStopsWhenCallbackFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n" +
			"data: [DONE]\n\n"
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	provider := &openAIProvider{apiKey: "test", baseURL: server.URL}
	abort := errors.New("consumer gone")
	calls := 0
	err := provider.ChatStream(context.Background(), "test-model",
		[]model.ChatMessage{{Role: model.RoleUser, Content: "hi"}},
		func(string) error {
			calls++
			return abort
		})
	require.ErrorIs(t, err, abort)
	require.Equal(t, 1, calls)
}

func TestOpenAIChatStreamWithoutKey(t *testing.T) {
	provider := &openAIProvider{baseURL: defaultOpenAIBaseURL}
	err := provider.ChatStream(context.Background(), "m", nil, func(string) error { return nil })
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIEmbedBatchPreservesInputOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		// Vectors returned out of order; index must drive the ordering.
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0.2]},
			{"index":0,"embedding":[0.1]},
			{"index":2,"embedding":[0.3]}
		]}`))
	}))
	defer server.Close()

	provider := &openAIEmbedProvider{apiKey: "test", baseURL: server.URL}
	vectors, err := provider.EmbedBatch(context.Background(), "embed-model", []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{0.1}, {0.2}, {0.3}}, vectors)
}

func TestOpenAIEmbedBatchCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1]}]}`))
	}))
	defer server.Close()

	provider := &openAIEmbedProvider{apiKey: "test", baseURL: server.URL}
	_, err := provider.EmbedBatch(context.Background(), "embed-model", []string{"a", "b"})
	require.Error(t, err)
}

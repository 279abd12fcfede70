package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/vantor/ragserve/internal/ai"
	"github.com/vantor/ragserve/internal/metrics"
	"github.com/vantor/ragserve/internal/model"
	"github.com/vantor/ragserve/internal/pkg/errs"
)

const (
	// topKChunks is how many similar chunks feed the system prompt.
	topKChunks = 4
	// maxContextMessages bounds the prior-turn window; older turns are
	// silently dropped.
	maxContextMessages = 10

	// contentFramePrefix tags a content frame on the wire. Other frame
	// types may use different prefixes later; "0:" is reserved for content.
	contentFramePrefix = "0:"

	logWriteTimeout = 10 * time.Second
)

// ChunkSearcher is the retrieval capability the orchestrator needs.
type ChunkSearcher interface {
	TopKSimilar(ctx context.Context, embedding []float32, k int) ([]model.DocumentChunk, error)
}

// ChatLogWriter persists completed exchanges.
type ChatLogWriter interface {
	Insert(ctx context.Context, entry *model.ChatLog) error
}

type ChatService struct {
	chatter    ai.IChatter
	embedder   ai.IEmbedder
	chunks     ChunkSearcher
	logs       ChatLogWriter
	queryCache *expirable.LRU[string, []float32]
}

func NewChatService(chatter ai.IChatter, embedder ai.IEmbedder, chunks ChunkSearcher, logs ChatLogWriter) *ChatService {
	return &ChatService{
		chatter:    chatter,
		embedder:   embedder,
		chunks:     chunks,
		logs:       logs,
		queryCache: expirable.NewLRU[string, []float32](2048, nil, time.Hour),
	}
}

// StreamChat runs one chat exchange: retrieve context, assemble the message
// window, stream fragments through emit as content frames, then persist the
// transcript. A client disconnect mid-stream stops upstream consumption and
// logs the partial transcript; it is not an error. Any other stream failure
// is reported as a generic generation error with nothing persisted.
func (s *ChatService) StreamChat(ctx context.Context, req *model.ChatRequest, emit func(frame string) error) error {
	start := time.Now()
	docContext := s.fetchRelevantContext(ctx, req.Message)
	systemPrompt := buildSystemPrompt(docContext)
	messages := buildMessages(systemPrompt, req)

	var transcript strings.Builder
	err := s.chatter.ChatStream(ctx, messages, func(fragment string) error {
		transcript.WriteString(fragment)
		frame, err := encodeContentFrame(fragment)
		if err != nil {
			return err
		}
		return emit(frame)
	})
	metrics.ChatStreamDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.ChatStreams.WithLabelValues("success").Inc()
		s.logExchange(ctx, req, transcript.String(), false)
		return nil
	case errs.IsClientGone(err) || errors.Is(err, context.Canceled):
		metrics.ChatStreams.WithLabelValues("client_gone").Inc()
		logutil.GetLogger(ctx).Info("client disconnected mid-stream",
			zap.String("session_id", req.SessionID),
			zap.Int("transcript_len", transcript.Len()),
		)
		s.logExchange(ctx, req, transcript.String(), true)
		return errs.ErrClientGone
	default:
		metrics.ChatStreams.WithLabelValues("error").Inc()
		logutil.GetLogger(ctx).Error("chat stream failed",
			zap.String("session_id", req.SessionID), zap.Error(err))
		return fmt.Errorf("%w: %v", errs.ErrGeneration, err)
	}
}

// fetchRelevantContext is best-effort: any failure degrades to an empty
// context string and is never surfaced to the caller.
func (s *ChatService) fetchRelevantContext(ctx context.Context, message string) string {
	logger := logutil.GetLogger(ctx)
	embedding, err := s.embedQuery(ctx, message)
	if err != nil {
		logger.Warn("context retrieval degraded: query embedding failed", zap.Error(err))
		return ""
	}
	chunks, err := s.chunks.TopKSimilar(ctx, embedding, topKChunks)
	if err != nil {
		logger.Warn("context retrieval degraded: similarity search failed", zap.Error(err))
		return ""
	}
	if len(chunks) == 0 {
		logger.Debug("no relevant context found")
		return ""
	}
	var sb strings.Builder
	for _, chunk := range chunks {
		sb.WriteString(chunk.Content)
		sb.WriteString("\n\n")
	}
	logger.Debug("context assembled", zap.Int("chunks", len(chunks)))
	return sb.String()
}

func (s *ChatService) embedQuery(ctx context.Context, message string) ([]float32, error) {
	key := queryCacheKey(message)
	if cached, ok := s.queryCache.Get(key); ok {
		return cached, nil
	}
	embedding, err := s.embedder.Embed(ctx, message)
	if err != nil {
		return nil, err
	}
	s.queryCache.Add(key, embedding)
	return embedding, nil
}

func queryCacheKey(message string) string {
	hash := sha256.Sum256([]byte(message))
	return hex.EncodeToString(hash[:])
}

// logExchange writes the chat log off the request path so a slow insert never
// delays the already-delivered response. Failures are logged, never surfaced.
func (s *ChatService) logExchange(ctx context.Context, req *model.ChatRequest, assistantMessage string, partial bool) {
	entry := &model.ChatLog{
		SessionID:        req.SessionID,
		UserMessage:      req.Message,
		AssistantMessage: assistantMessage,
		Partial:          partial,
		Timestamp:        req.Timestamp,
	}
	logger := logutil.GetLogger(ctx).With(zap.String("session_id", req.SessionID))
	go func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), logWriteTimeout)
		defer cancel()
		if err := s.logs.Insert(writeCtx, entry); err != nil {
			logger.Error("failed to persist chat log", zap.Error(err))
		}
	}()
}

func buildSystemPrompt(docContext string) string {
	var sb strings.Builder
	sb.WriteString(`You are a professional AI assistant, designed to provide engaging, personalized interactions based on my experiences and writings. Your responses should:
1. Be accurate, and rely solely on verified information from the given context or previous conversations when relevant.
2. Be concise, direct and clear and avoid unnecessary verbosity.
3. Maintain continuity by referencing previous exchanges where applicable.
4. Show personality while remaining professional and courteous.
5. Clearly indicate when you are uncertain rather than guessing.
6. Decline to share sensitive information or generate harmful content.
7. When constructing a response message, always use proper markdown formatting.
8. When listing items, always use proper markdown formatting.
`)
	if docContext != "" {
		sb.WriteString("\nUse the following context to inform your responses:\n")
		sb.WriteString(docContext)
		sb.WriteString("\nWhile you can reference this context, maintain a natural conversational flow. ")
		sb.WriteString("If you're unsure about something, acknowledge it explicitly.")
	} else {
		sb.WriteString("\nNo additional document context is available. If the current conversation or previous messages ")
		sb.WriteString("do not provide sufficient context to answer a query, do not hallucinate or fabricate information. ")
		sb.WriteString("Instead, clearly indicate that you lack sufficient context to provide an accurate response.")
	}
	return sb.String()
}

// buildMessages assembles system prompt, the most recent prior turns in
// original order, and the new user message last. The new message is always
// appended even if it repeats the last prior turn.
func buildMessages(systemPrompt string, req *model.ChatRequest) []model.ChatMessage {
	prior := req.Messages
	if len(prior) > maxContextMessages {
		prior = prior[len(prior)-maxContextMessages:]
	}
	messages := make([]model.ChatMessage, 0, len(prior)+2)
	messages = append(messages, model.ChatMessage{Role: model.RoleSystem, Content: systemPrompt})
	messages = append(messages, prior...)
	messages = append(messages, model.ChatMessage{Role: model.RoleUser, Content: req.Message})
	return messages
}

func encodeContentFrame(fragment string) (string, error) {
	encoded, err := json.Marshal(fragment)
	if err != nil {
		return "", err
	}
	return contentFramePrefix + string(encoded) + "\n", nil
}

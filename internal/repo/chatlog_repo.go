package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/vantor/ragserve/internal/model"
	"github.com/vantor/ragserve/internal/pkg/dbutil"
)

// ChatLogRepo is append-only; entries are never updated or deleted.
type ChatLogRepo struct {
	db *sql.DB
}

func NewChatLogRepo(db *sql.DB) *ChatLogRepo {
	return &ChatLogRepo{db: db}
}

func (r *ChatLogRepo) Insert(ctx context.Context, entry *model.ChatLog) error {
	data := map[string]interface{}{
		"session_id":        entry.SessionID,
		"user_message":      entry.UserMessage,
		"assistant_message": entry.AssistantMessage,
		"partial":           entry.Partial,
		"ts":                entry.Timestamp,
		"created_at":        time.Now().Unix(),
	}
	sqlStr, args, err := builder.BuildInsert("chat_logs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

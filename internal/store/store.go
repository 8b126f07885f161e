// Package store persists completed translations to PostgreSQL. Writes are
// fire-and-forget so persistence latency and outages never affect the
// request path; with a nil pool the store is a no-op.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cxchat/lingo-gateway/internal/types"
)

const recordTimeout = 2 * time.Second

// Record is one persisted translation.
type Record struct {
	ID             uuid.UUID
	ConversationID string
	ClientID       string
	SourceLang     string
	TargetLang     string
	SourceText     string
	TranslatedText string
	Backend        string
	CacheHit       bool
	CreatedAt      time.Time
}

// Store writes and reads translation history.
type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// RecordTranslation persists a completed translation asynchronously. The
// insert runs on a bounded background context; failures are logged and
// dropped.
func (s *Store) RecordTranslation(msg types.Message, res types.TranslationResult) {
	if s.db == nil {
		return
	}

	id := uuid.New()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		_, err := s.db.Exec(ctx, `
			INSERT INTO translations
				(id, conversation_id, client_id, source_lang, target_lang,
				 source_text, translated_text, backend, cache_hit, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		`, id, msg.ConversationID, msg.ClientID, res.ResolvedSourceLang, res.TargetLang,
			msg.Text, res.TranslatedText, res.Backend, res.CacheHit)
		if err != nil {
			slog.Warn("failed to record translation", "id", id, "error", err)
		}
	}()
}

// RecentByConversation returns the newest translations for a conversation,
// most recent first.
func (s *Store) RecentByConversation(ctx context.Context, conversationID string, limit int) ([]Record, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, conversation_id, client_id, source_lang, target_lang,
		       source_text, translated_text, backend, cache_hit, created_at
		FROM translations
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query translations: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.ID, &r.ConversationID, &r.ClientID, &r.SourceLang, &r.TargetLang,
			&r.SourceText, &r.TranslatedText, &r.Backend, &r.CacheHit, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

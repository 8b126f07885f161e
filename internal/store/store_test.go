package store

import (
	"context"
	"testing"

	"github.com/cxchat/lingo-gateway/internal/types"
)

func TestStore_NilPoolIsNoOp(t *testing.T) {
	s := New(nil)

	// Must not panic or block.
	s.RecordTranslation(types.Message{ConversationID: "conv-1", Text: "Hola"},
		types.TranslationResult{TranslatedText: "Hello"})

	records, err := s.RecentByConversation(context.Background(), "conv-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if records != nil {
		t.Fatalf("expected no records from nil pool, got %d", len(records))
	}
}

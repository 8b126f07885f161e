package types

import "time"

// Message is the canonical internal representation of an inbound chat message.
// It is created on ingestion and never mutated.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Text           string    `json:"text"`
	SourceLang     string    `json:"source_lang,omitempty"` // declared by the client, may be empty
	TargetLang     string    `json:"target_lang"`
	ClientID       string    `json:"client_id,omitempty"`
	ReceivedAt     time.Time `json:"-"`
}

// TranslationRequest is derived from a Message once the source language is
// resolved. It is owned by the coordinator for the lifetime of one operation.
type TranslationRequest struct {
	Text       string
	SourceLang string
	TargetLang string
}

package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cxchat/lingo-gateway/internal/config"
	"github.com/cxchat/lingo-gateway/internal/httputil"
	"github.com/cxchat/lingo-gateway/internal/language"
	"github.com/cxchat/lingo-gateway/internal/limiter"
	"github.com/cxchat/lingo-gateway/internal/store"
	"github.com/cxchat/lingo-gateway/internal/types"
)

// Handler holds dependencies for the translation HTTP handlers.
type Handler struct {
	coord *Coordinator
	cfg   func() *config.Config
	store *store.Store
}

func NewHandler(coord *Coordinator, cfg func() *config.Config, st *store.Store) *Handler {
	return &Handler{coord: coord, cfg: cfg, store: st}
}

type translateRequest struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	SourceLang     string `json:"source_lang"`
	TargetLang     string `json:"target_lang"`
}

type translateResponse struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversation_id,omitempty"`
	TranslatedText string  `json:"translated_text"`
	SourceLang     string  `json:"source_lang"`
	TargetLang     string  `json:"target_lang"`
	Confidence     float64 `json:"confidence"`
	Backend        string  `json:"backend"`
	CacheHit       bool    `json:"cache_hit"`
}

// Translate handles POST /v1/translate.
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	var req translateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	msg := types.Message{
		ID:             req.ID,
		ConversationID: req.ConversationID,
		Text:           req.Text,
		SourceLang:     req.SourceLang,
		TargetLang:     req.TargetLang,
		ClientID:       limiter.ClientID(r),
		ReceivedAt:     receivedAt,
	}

	res, err := h.coord.Translate(r.Context(), msg)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Client went away; nothing useful to write.
			return
		}
		slog.Warn("translation failed",
			"request_id", reqID,
			"message_id", msg.ID,
			"kind", types.Kind(err),
			"error", err,
		)
		httputil.WriteForError(w, reqID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(translateResponse{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		TranslatedText: res.TranslatedText,
		SourceLang:     res.ResolvedSourceLang,
		TargetLang:     res.TargetLang,
		Confidence:     res.Confidence,
		Backend:        res.Backend,
		CacheHit:       res.CacheHit,
	})
}

type languageEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ListLanguages handles GET /v1/languages.
func (h *Handler) ListLanguages(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg()
	langs := make([]languageEntry, 0, len(cfg.Translation.Languages))
	for _, code := range cfg.Translation.Languages {
		code = language.Normalize(code)
		langs = append(langs, languageEntry{Code: code, Name: language.Name(code)})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"languages":           langs,
		"default_target_lang": cfg.Translation.DefaultTargetLang,
	})
}

// ConversationHistory handles GET /v1/conversations/{id}/translations.
func (h *Handler) ConversationHistory(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	conversationID := chi.URLParam(r, "id")
	if conversationID == "" {
		httputil.WriteBadRequestError(w, reqID, "conversation id is required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	records, err := h.store.RecentByConversation(r.Context(), conversationID, limit)
	if err != nil {
		slog.Error("failed to load conversation history",
			"request_id", reqID,
			"conversation_id", conversationID,
			"error", err,
		)
		httputil.WriteInternalError(w, reqID, "failed to load conversation history")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"conversation_id": conversationID,
		"translations":    records,
	})
}

package coordinator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cxchat/lingo-gateway/internal/config"
	"github.com/cxchat/lingo-gateway/internal/httputil"
	"github.com/cxchat/lingo-gateway/internal/store"
)

func newTestHandler(t *testing.T, cfg *config.Config, backends ...*fakeBackend) *Handler {
	t.Helper()
	p := newPipeline(t, cfg, backends...)
	return NewHandler(p.coord, func() *config.Config { return cfg }, store.New(nil))
}

func TestHandler_Translate(t *testing.T) {
	cfg := testConfig()
	h := newTestHandler(t, cfg, &fakeBackend{name: "universal"})

	body := `{"conversation_id":"conv-1","text":"Hola","source_lang":"es","target_lang":"en"}`
	r := httptest.NewRequest(http.MethodPost, "/v1/translate", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Translate(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp translateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TranslatedText != "translated:Hola" {
		t.Errorf("unexpected translation %q", resp.TranslatedText)
	}
	if resp.SourceLang != "es" || resp.TargetLang != "en" {
		t.Errorf("unexpected language pair %s->%s", resp.SourceLang, resp.TargetLang)
	}
	if resp.ID == "" {
		t.Error("expected a generated message id")
	}
	if resp.CacheHit {
		t.Error("first request must not be a cache hit")
	}
}

func TestHandler_TranslateInvalidJSON(t *testing.T) {
	h := newTestHandler(t, testConfig(), &fakeBackend{name: "universal"})

	r := httptest.NewRequest(http.MethodPost, "/v1/translate", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.Translate(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandler_TranslateErrorEnvelope(t *testing.T) {
	h := newTestHandler(t, testConfig(), &fakeBackend{name: "universal"})

	body := `{"text":"Hola","source_lang":"es","target_lang":"xx"}`
	r := httptest.NewRequest(http.MethodPost, "/v1/translate", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Translate(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var resp httputil.APIError
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Kind != "unsupported_language_pair" {
		t.Errorf("expected kind unsupported_language_pair, got %q", resp.Error.Kind)
	}
}

func TestHandler_ListLanguages(t *testing.T) {
	cfg := testConfig()
	cfg.Translation.DefaultTargetLang = "en"
	h := newTestHandler(t, cfg, &fakeBackend{name: "universal"})

	r := httptest.NewRequest(http.MethodGet, "/v1/languages", nil)
	w := httptest.NewRecorder()
	h.ListLanguages(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Languages []struct {
			Code string `json:"code"`
			Name string `json:"name"`
		} `json:"languages"`
		DefaultTargetLang string `json:"default_target_lang"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Languages) != len(cfg.Translation.Languages) {
		t.Fatalf("expected %d languages, got %d", len(cfg.Translation.Languages), len(resp.Languages))
	}
	if resp.DefaultTargetLang != "en" {
		t.Errorf("expected default target en, got %q", resp.DefaultTargetLang)
	}
}

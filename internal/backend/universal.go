package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cxchat/lingo-gateway/internal/config"
	"github.com/cxchat/lingo-gateway/internal/language"
	"github.com/cxchat/lingo-gateway/internal/types"
)

// Universal translates through an OpenAI-compatible chat-completions
// endpoint. A system prompt names both languages; temperature is pinned to 0
// so repeated calls for the same text stay deterministic.
type Universal struct {
	cfg    config.BackendConfig
	client *http.Client
	langs  map[string]bool
}

func NewUniversal(cfg config.BackendConfig, client *http.Client, serviceLangs []string) *Universal {
	langSet := cfg.Languages
	if len(langSet) == 0 {
		langSet = serviceLangs
	}
	langs := make(map[string]bool, len(langSet))
	for _, l := range langSet {
		langs[language.Normalize(l)] = true
	}
	return &Universal{cfg: cfg, client: client, langs: langs}
}

func (u *Universal) Name() string { return u.cfg.Name }

// Supports accepts any pair whose sides are both in the backend's language
// set. An empty set means no restriction.
func (u *Universal) Supports(sourceLang, targetLang string) bool {
	if sourceLang == "" || targetLang == "" || sourceLang == targetLang {
		return false
	}
	if len(u.langs) == 0 {
		return true
	}
	return u.langs[language.Normalize(sourceLang)] && u.langs[language.Normalize(targetLang)]
}

func (u *Universal) Translate(ctx context.Context, req types.TranslationRequest) (*types.TranslationResult, error) {
	if !u.Supports(req.SourceLang, req.TargetLang) {
		return nil, fmt.Errorf("%s: %s->%s: %w", u.cfg.Name, req.SourceLang, req.TargetLang, types.ErrUnsupportedLanguagePair)
	}

	body := chatCompletionsRequest{
		Model: u.cfg.Model,
		Messages: []chatMessage{
			{
				Role: "system",
				Content: fmt.Sprintf(
					"You are a translation engine. Translate the user message from %s to %s. Reply with the translation only, no explanations.",
					language.Name(req.SourceLang), language.Name(req.TargetLang),
				),
			},
			{Role: "user", Content: req.Text},
		},
		Temperature: 0,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	url := strings.TrimSuffix(u.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if u.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+u.cfg.APIKey)
	}
	for k, v := range u.cfg.Headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := u.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", u.cfg.Name, types.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w: %v", u.cfg.Name, types.ErrBackendUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s: %w", u.cfg.Name, resp.StatusCode, truncate(raw, 200), types.ErrBackendUnavailable)
	}

	var ccResp chatCompletionsResponse
	if err := json.Unmarshal(raw, &ccResp); err != nil {
		return nil, fmt.Errorf("%s: unmarshal response: %w: %v", u.cfg.Name, types.ErrBackendUnavailable, err)
	}
	if len(ccResp.Choices) == 0 {
		return nil, fmt.Errorf("%s: empty choices: %w", u.cfg.Name, types.ErrBackendUnavailable)
	}

	return &types.TranslationResult{
		TranslatedText:     strings.TrimSpace(ccResp.Choices[0].Message.Content),
		ResolvedSourceLang: req.SourceLang,
		TargetLang:         req.TargetLang,
		Backend:            u.cfg.Name,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

type chatCompletionsRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

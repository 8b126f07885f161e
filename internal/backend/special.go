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

// Special talks to a pair-model server that hosts one dedicated translation
// model per "src-tgt" pair. It only supports the pairs it was configured
// with, which makes it a natural high-priority backend in front of the
// universal LLM fallback.
type Special struct {
	cfg    config.BackendConfig
	client *http.Client
	pairs  map[string]bool
}

func NewSpecial(cfg config.BackendConfig, client *http.Client) *Special {
	pairs := make(map[string]bool, len(cfg.Pairs))
	for _, p := range cfg.Pairs {
		parts := strings.SplitN(p, "-", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		pairs[language.Normalize(parts[0])+"-"+language.Normalize(parts[1])] = true
	}
	return &Special{cfg: cfg, client: client, pairs: pairs}
}

func (s *Special) Name() string { return s.cfg.Name }

func (s *Special) Supports(sourceLang, targetLang string) bool {
	return s.pairs[language.Normalize(sourceLang)+"-"+language.Normalize(targetLang)]
}

func (s *Special) Translate(ctx context.Context, req types.TranslationRequest) (*types.TranslationResult, error) {
	pair := language.Normalize(req.SourceLang) + "-" + language.Normalize(req.TargetLang)
	if !s.pairs[pair] {
		return nil, fmt.Errorf("%s: no model for %s: %w", s.cfg.Name, pair, types.ErrUnsupportedLanguagePair)
	}

	body := pairModelRequest{Text: req.Text, Model: pair}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal pair-model request: %w", err)
	}

	url := strings.TrimSuffix(s.cfg.BaseURL, "/") + "/translate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range s.cfg.Headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", s.cfg.Name, types.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w: %v", s.cfg.Name, types.ErrBackendUnavailable, err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// Model server dropped the pair since config was loaded
		return nil, fmt.Errorf("%s: model %s gone: %w", s.cfg.Name, pair, types.ErrUnsupportedLanguagePair)
	default:
		return nil, fmt.Errorf("%s: status %d: %s: %w", s.cfg.Name, resp.StatusCode, truncate(raw, 200), types.ErrBackendUnavailable)
	}

	var pmResp pairModelResponse
	if err := json.Unmarshal(raw, &pmResp); err != nil {
		return nil, fmt.Errorf("%s: unmarshal response: %w: %v", s.cfg.Name, types.ErrBackendUnavailable, err)
	}

	return &types.TranslationResult{
		TranslatedText:     pmResp.TranslationText,
		ResolvedSourceLang: req.SourceLang,
		TargetLang:         req.TargetLang,
		Backend:            s.cfg.Name,
	}, nil
}

type pairModelRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

type pairModelResponse struct {
	TranslationText string `json:"translation_text"`
}

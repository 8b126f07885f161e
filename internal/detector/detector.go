// Package detector infers the source language of a chat message.
package detector

import (
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/cxchat/lingo-gateway/internal/language"
)

// Result is a best-guess language code with a confidence in [0,1].
type Result struct {
	Lang       string
	Confidence float64
}

// Detector wraps whatlanggo detection with the service's allowed-language
// set. Detection never fails: anything that cannot be classified comes back
// with zero confidence and the coordinator applies its fallback chain.
type Detector struct {
	allowed       map[string]bool
	minTextLength int
}

func New(allowedLangs []string, minTextLength int) *Detector {
	allowed := make(map[string]bool, len(allowedLangs))
	for _, l := range allowedLangs {
		allowed[language.Normalize(l)] = true
	}
	if minTextLength <= 0 {
		minTextLength = 1
	}
	return &Detector{allowed: allowed, minTextLength: minTextLength}
}

// Detect returns the most likely language of text. Short texts are not worth
// classifying and come back with zero confidence. A detected language outside
// the allowed set is reported with zero confidence so the caller falls back
// instead of routing an unservable pair.
func (d *Detector) Detect(text string) Result {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < d.minTextLength {
		return Result{Lang: "", Confidence: 0}
	}

	info := whatlanggo.Detect(text)
	code := language.Normalize(info.Lang.Iso6391())

	confidence := info.Confidence
	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < 0 || code == "" {
		return Result{Lang: "", Confidence: 0}
	}
	if !info.IsReliable() {
		confidence = confidence / 2
	}
	if len(d.allowed) > 0 && !d.allowed[code] {
		return Result{Lang: code, Confidence: 0}
	}

	return Result{Lang: code, Confidence: confidence}
}

// Allowed reports whether a language code is in the configured set.
func (d *Detector) Allowed(code string) bool {
	if len(d.allowed) == 0 {
		return true
	}
	return d.allowed[language.Normalize(code)]
}

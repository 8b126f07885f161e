package types

import "errors"

// Sentinel errors for the translation pipeline. Handlers map these to stable
// error kinds in the HTTP envelope, so callers can tell "try later"
// (limiter_rejected, backend_unavailable) from "translation impossible"
// (unsupported_language_pair, translation_unavailable).
var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrUnsupportedLanguagePair = errors.New("unsupported language pair")
	ErrBackendUnavailable      = errors.New("backend unavailable")
	ErrTranslationUnavailable  = errors.New("translation unavailable")
	ErrLimiterRejected         = errors.New("limiter rejected")
	ErrPolicyBlocked           = errors.New("blocked by policy")
)

const (
	KindInvalidInput            = "invalid_input"
	KindUnsupportedLanguagePair = "unsupported_language_pair"
	KindBackendUnavailable      = "backend_unavailable"
	KindTranslationUnavailable  = "translation_unavailable"
	KindLimiterRejected         = "limiter_rejected"
	KindPolicyBlocked           = "policy_blocked"
	KindInternal                = "internal_error"
)

// Kind returns the stable error kind for a pipeline error.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrUnsupportedLanguagePair):
		return KindUnsupportedLanguagePair
	case errors.Is(err, ErrLimiterRejected):
		return KindLimiterRejected
	case errors.Is(err, ErrPolicyBlocked):
		return KindPolicyBlocked
	case errors.Is(err, ErrTranslationUnavailable):
		return KindTranslationUnavailable
	case errors.Is(err, ErrBackendUnavailable):
		return KindBackendUnavailable
	default:
		return KindInternal
	}
}

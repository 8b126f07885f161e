// Package httputil writes the gateway's JSON error envelope. Every error
// response carries a stable machine-readable kind from the error taxonomy
// plus the request id, so clients can branch on kind without parsing
// messages.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/cxchat/lingo-gateway/internal/types"
)

// APIError is the gateway error response envelope.
type APIError struct {
	Error APIErrorBody `json:"error"`
}

type APIErrorBody struct {
	Message   string `json:"message"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, requestID string, statusCode int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIError{
		Error: APIErrorBody{
			Message:   message,
			Kind:      kind,
			RequestID: requestID,
		},
	})
}

func WriteBadRequestError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadRequest, types.KindInvalidInput, message)
}

func WriteUnsupportedPairError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadRequest, types.KindUnsupportedLanguagePair, message)
}

func WriteRateLimitError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusTooManyRequests, types.KindLimiterRejected, message)
}

func WriteServiceUnavailableError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusServiceUnavailable, types.KindBackendUnavailable, message)
}

func WriteTranslationUnavailableError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusServiceUnavailable, types.KindTranslationUnavailable, message)
}

func WritePolicyBlockedError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, 451, types.KindPolicyBlocked, message)
}

func WriteInternalError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusInternalServerError, types.KindInternal, message)
}

// WriteForError maps err through the error taxonomy and writes the
// matching envelope.
func WriteForError(w http.ResponseWriter, requestID string, err error) {
	kind := types.Kind(err)
	switch kind {
	case types.KindInvalidInput:
		WriteBadRequestError(w, requestID, err.Error())
	case types.KindUnsupportedLanguagePair:
		WriteUnsupportedPairError(w, requestID, err.Error())
	case types.KindLimiterRejected:
		w.Header().Set("Retry-After", "1")
		WriteRateLimitError(w, requestID, err.Error())
	case types.KindBackendUnavailable:
		WriteServiceUnavailableError(w, requestID, err.Error())
	case types.KindTranslationUnavailable:
		WriteTranslationUnavailableError(w, requestID, err.Error())
	case types.KindPolicyBlocked:
		WritePolicyBlockedError(w, requestID, err.Error())
	default:
		WriteInternalError(w, requestID, "internal error")
	}
}

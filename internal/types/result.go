package types

// TranslationResult is the outcome of one translation operation. Immutable
// once produced; safe to store in the cache and return to multiple waiters.
type TranslationResult struct {
	TranslatedText     string  `json:"translated_text"`
	ResolvedSourceLang string  `json:"resolved_source_lang"`
	TargetLang         string  `json:"target_lang"`
	Confidence         float64 `json:"confidence"`
	Backend            string  `json:"backend"`
	CacheHit           bool    `json:"cache_hit"`
}

// WithCacheHit returns a copy flagged as served from cache. The stored entry
// itself is never mutated.
func (r TranslationResult) WithCacheHit() TranslationResult {
	r.CacheHit = true
	return r
}

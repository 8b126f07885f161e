package config

import "time"

// BackendsConfig declares the translation backends in priority order: the
// coordinator tries the first entry that supports the language pair and
// fails over down the list.
type BackendsConfig struct {
	Backends []BackendConfig `yaml:"backends"`
}

type BackendConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"` // "universal" (LLM) or "special" (pair-model server)
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key,omitempty"`

	// Model is the chat model name for universal backends.
	Model string `yaml:"model,omitempty"`
	// Pairs lists "src-tgt" pairs a special backend serves.
	Pairs []string `yaml:"pairs,omitempty"`
	// Languages restricts a universal backend to a language subset;
	// empty means the service-wide allowed set.
	Languages []string `yaml:"languages,omitempty"`

	MaxConcurrent int               `yaml:"max_concurrent"`
	Timeout       time.Duration     `yaml:"timeout"`
	Headers       map[string]string `yaml:"headers,omitempty"`
}

// Package backend adapts translation providers behind one capability
// interface. The canonical request/response types live in internal/types;
// each adapter hides its provider's wire format.
package backend

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cxchat/lingo-gateway/internal/config"
	"github.com/cxchat/lingo-gateway/internal/types"
)

// Backend is a translation provider. Translate must be idempotent and
// side-effect free from the caller's perspective.
type Backend interface {
	Name() string
	Supports(sourceLang, targetLang string) bool
	Translate(ctx context.Context, req types.TranslationRequest) (*types.TranslationResult, error)
}

// Registry holds backends in configured priority order.
type Registry struct {
	mu       sync.RWMutex
	ordered  []string
	backends map[string]Backend
}

func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

func (r *Registry) Register(name string, b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backends[name]; !ok {
		r.ordered = append(r.ordered, name)
	}
	r.backends[name] = b
}

func (r *Registry) Get(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b, ok
}

// Replace swaps the registry's contents for other's under the lock.
// Callers holding a slice from Ordered keep their snapshot.
func (r *Registry) Replace(other *Registry) {
	other.mu.RLock()
	ordered := make([]string, len(other.ordered))
	copy(ordered, other.ordered)
	backends := make(map[string]Backend, len(other.backends))
	for name, b := range other.backends {
		backends[name] = b
	}
	other.mu.RUnlock()

	r.mu.Lock()
	r.ordered = ordered
	r.backends = backends
	r.mu.Unlock()
}

// Ordered returns backends in priority order.
func (r *Registry) Ordered() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Backend, 0, len(r.ordered))
	for _, name := range r.ordered {
		out = append(out, r.backends[name])
	}
	return out
}

// BuildFromConfig builds the registry from the backends config, preserving
// list order as failover priority.
func BuildFromConfig(cfg *config.BackendsConfig, serviceLangs []string) *Registry {
	registry := NewRegistry()
	for _, bc := range cfg.Backends {
		client := &http.Client{
			Timeout: bc.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        bc.MaxConcurrent,
				MaxIdleConnsPerHost: bc.MaxConcurrent,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}

		var b Backend
		switch bc.Type {
		case "special":
			b = NewSpecial(bc, client)
		case "universal":
			b = NewUniversal(bc, client, serviceLangs)
		default:
			// Unknown types are treated as OpenAI-compatible LLM endpoints
			b = NewUniversal(bc, client, serviceLangs)
		}
		registry.Register(bc.Name, b)
	}
	return registry
}

package guard

import (
	"context"
	"fmt"

	"github.com/cxchat/lingo-gateway/internal/language"
	"github.com/cxchat/lingo-gateway/internal/types"
)

// PairGuard rejects requests whose target language is missing or outside
// the service's allowed set, and requests declaring a source language the
// service does not handle. An empty source passes: it gets resolved by
// detection later.
type PairGuard struct {
	allowed func() []string
}

// NewPairGuard builds a pair guard. allowed returns the current allowed
// language codes and is consulted on every check, so config reloads take
// effect without rebuilding the guard.
func NewPairGuard(allowed func() []string) *PairGuard {
	return &PairGuard{allowed: allowed}
}

func (g *PairGuard) Name() string  { return "pairs" }
func (g *PairGuard) Enabled() bool { return true }

func (g *PairGuard) Check(ctx context.Context, msg *types.Message) Result {
	target := language.Normalize(msg.TargetLang)
	if target == "" {
		return Result{
			Action:    ActionBlock,
			GuardName: g.Name(),
			Message:   "target language is required",
		}
	}
	if !g.contains(target) {
		return Result{
			Action:    ActionBlock,
			GuardName: g.Name(),
			Message:   fmt.Sprintf("target language %q is not supported", msg.TargetLang),
		}
	}

	if source := language.Normalize(msg.SourceLang); source != "" && !g.contains(source) {
		return Result{
			Action:    ActionBlock,
			GuardName: g.Name(),
			Message:   fmt.Sprintf("source language %q is not supported", msg.SourceLang),
		}
	}

	return Result{Action: ActionPass, GuardName: g.Name()}
}

func (g *PairGuard) contains(code string) bool {
	for _, c := range g.allowed() {
		if language.Normalize(c) == code {
			return true
		}
	}
	return false
}

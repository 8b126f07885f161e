// Package guard runs pre-translation admission checks. Guards inspect the
// resolved request before any backend work happens and can block it with a
// stable reason.
package guard

import (
	"context"

	"github.com/cxchat/lingo-gateway/internal/types"
)

// Action represents the guard decision.
type Action string

const (
	ActionPass  Action = "pass"
	ActionBlock Action = "block"
)

// Result is returned by each guard.
type Result struct {
	Action    Action
	GuardName string
	Message   string
}

// Guard is the interface all admission guards implement.
type Guard interface {
	Name() string
	Enabled() bool
	Check(ctx context.Context, msg *types.Message) Result
}

// Chain runs guards in order, stopping on the first Block.
type Chain struct {
	guards []Guard
}

func NewChain(guards ...Guard) *Chain {
	return &Chain{guards: guards}
}

// Run executes all enabled guards in order. Returns all results and a
// pointer to the first blocking result (nil if no guard blocked).
func (c *Chain) Run(ctx context.Context, msg *types.Message) ([]Result, *Result) {
	var results []Result
	for _, g := range c.guards {
		if !g.Enabled() {
			continue
		}
		r := g.Check(ctx, msg)
		results = append(results, r)
		if r.Action == ActionBlock {
			return results, &r
		}
	}
	return results, nil
}

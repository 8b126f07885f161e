package guard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/rego"

	"github.com/cxchat/lingo-gateway/internal/config"
	"github.com/cxchat/lingo-gateway/internal/types"
)

// PolicyInput is the data sent to OPA for evaluation.
type PolicyInput struct {
	Client  PolicyClient  `json:"client"`
	Request PolicyRequest `json:"request"`
	Time    PolicyTime    `json:"time"`
}

type PolicyClient struct {
	ID           string `json:"id"`
	Conversation string `json:"conversation"`
}

type PolicyRequest struct {
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	TextLength int    `json:"text_length"`
}

type PolicyTime struct {
	Hour int    `json:"hour"`
	Day  string `json:"day"`
}

// PolicyGuard implements Guard using OPA. Evaluation errors block the
// request (fail closed).
type PolicyGuard struct {
	mu       sync.RWMutex
	prepared *rego.PreparedEvalQuery
	cfg      func() config.PolicyConfig
}

// NewPolicyGuard creates a policy guard. Call Load() to compile policies.
func NewPolicyGuard(cfg func() config.PolicyConfig) *PolicyGuard {
	return &PolicyGuard{cfg: cfg}
}

func (g *PolicyGuard) Name() string  { return "policy" }
func (g *PolicyGuard) Enabled() bool { return g.cfg().Enabled }

// Load compiles Rego modules from the bundle path.
func (g *PolicyGuard) Load() error {
	cfg := g.cfg()
	modules, err := LoadRegoFiles(cfg.BundlePath)
	if err != nil {
		return fmt.Errorf("load rego files: %w", err)
	}
	if len(modules) == 0 {
		slog.Warn("no rego files found", "path", cfg.BundlePath)
		return nil
	}
	if err := g.LoadFromModules(modules); err != nil {
		return err
	}
	slog.Info("opa policies loaded", "modules", len(modules))
	return nil
}

// LoadFromModules compiles policies from provided module sources (useful for testing).
func (g *PolicyGuard) LoadFromModules(modules map[string]string) error {
	opts := []func(*rego.Rego){
		rego.Query("[data.lingo.policy.allow, data.lingo.policy.reason]"),
	}
	for name, src := range modules {
		opts = append(opts, rego.Module(name, src))
	}

	prepared, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return fmt.Errorf("prepare rego: %w", err)
	}

	g.mu.Lock()
	g.prepared = &prepared
	g.mu.Unlock()
	return nil
}

// Evaluate runs the policy against the given input.
func (g *PolicyGuard) Evaluate(ctx context.Context, input PolicyInput) (bool, string, error) {
	g.mu.RLock()
	prepared := g.prepared
	g.mu.RUnlock()

	if prepared == nil {
		// No policies loaded, fail closed
		return false, "no policies loaded", nil
	}

	cfg := g.cfg()
	timeout := cfg.EvaluationTimeout
	if timeout == 0 {
		timeout = 100 * time.Millisecond
	}

	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := prepared.Eval(evalCtx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Sprintf("policy evaluation error: %v", err), err
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, "no policy result", nil
	}

	// Result is [allow, reason]
	arr, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok || len(arr) < 2 {
		return false, "unexpected policy result format", nil
	}

	allowed, _ := arr[0].(bool)
	reason, _ := arr[1].(string)

	return allowed, reason, nil
}

// Check implements Guard.
func (g *PolicyGuard) Check(ctx context.Context, msg *types.Message) Result {
	now := time.Now().UTC()
	input := PolicyInput{
		Client: PolicyClient{
			ID:           msg.ClientID,
			Conversation: msg.ConversationID,
		},
		Request: PolicyRequest{
			SourceLang: msg.SourceLang,
			TargetLang: msg.TargetLang,
			TextLength: len(msg.Text),
		},
		Time: PolicyTime{
			Hour: now.Hour(),
			Day:  now.Weekday().String(),
		},
	}

	allowed, reason, err := g.Evaluate(ctx, input)
	if err != nil {
		slog.Error("policy evaluation failed", "error", err)
		// Fail closed
		return Result{
			Action:    ActionBlock,
			GuardName: g.Name(),
			Message:   "Policy evaluation failed: " + err.Error(),
		}
	}

	if !allowed {
		return Result{
			Action:    ActionBlock,
			GuardName: g.Name(),
			Message:   "Request denied by policy: " + reason,
		}
	}

	return Result{Action: ActionPass, GuardName: g.Name()}
}

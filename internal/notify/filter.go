package notify

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// Filter wraps a compiled CEL program evaluated per notification. When the
// expression is empty the filter is disabled and Eval always returns true.
type Filter struct {
	prog    cel.Program
	enabled bool
}

// NewFilter compiles a subscription filter expression.
func NewFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("channel", cel.StringType),
		cel.Variable("digest", cel.StringType),
		cel.Variable("emitted_ms", cel.IntType),
		// Rendered board as parsed JSON (list of {userId, score, rank})
		cel.Variable("top", cel.DynType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return Filter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Eval evaluates the expression against a notification. Evaluation errors
// drop the notification rather than failing the subscription.
func (f Filter) Eval(n *Notification) bool {
	if !f.enabled {
		return true
	}
	var top any
	if b, err := json.Marshal(n.TopN); err == nil {
		_ = json.Unmarshal(b, &top)
	}
	out, _, err := f.prog.Eval(map[string]any{
		"channel":    n.Channel,
		"digest":     n.Digest,
		"emitted_ms": n.EmittedAt.UnixMilli(),
		"top":        top,
		"now_ms":     time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

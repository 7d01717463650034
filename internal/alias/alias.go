// Package alias implements the AliasedQueue external collaborator: a named,
// write-only target that forwards an incoming item to one or more real
// queues. Reads never resolve against an alias; that invariant is enforced
// one layer up, by the facade that dispatches on name resolution.
package alias

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// Config describes one alias: its name, the set of queue names it forwards
// to, and an optional CEL predicate restricting which writes reach its
// targets. The one predicate applies to every target alike.
type Config struct {
	Name    string
	Targets []string
	// Filter, when non-empty, is a CEL expression evaluated against the
	// item's header map. A target only receives the write when Filter
	// evaluates true; an empty Filter means "always true".
	Filter string
}

// Forwarder delivers one item to a single real queue by name. The collection
// supplies this so AliasedQueue never needs direct registry access.
type Forwarder func(ctx context.Context, target string, data []byte, expiresAtMs int64) (bool, error)

// Queue is the AliasedQueue implementation: mutable config, a compiled
// filter, and a forwarding callback.
type Queue struct {
	mu     sync.RWMutex
	cfg    Config
	filter predicate
	fwd    Forwarder

	totalWrites  uint64
	totalTargets uint64
}

// New compiles cfg.Filter (if present) and returns a ready Queue.
func New(cfg Config, fwd Forwarder) (*Queue, error) {
	f, err := newPredicate(cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("alias %q: compile filter: %w", cfg.Name, err)
	}
	return &Queue{cfg: cfg, filter: f, fwd: fwd}, nil
}

// SetConfig swaps the alias's config and recompiles its filter in place,
// mirroring PhysicalQueue's in-place config-swap contract.
func (q *Queue) SetConfig(cfg Config) error {
	f, err := newPredicate(cfg.Filter)
	if err != nil {
		return fmt.Errorf("alias %q: compile filter: %w", cfg.Name, err)
	}
	q.mu.Lock()
	q.cfg = cfg
	q.filter = f
	q.mu.Unlock()
	return nil
}

// Config returns a copy of the alias's current configuration.
func (q *Queue) Config() Config {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.cfg
}

// Add forwards data to every target whose filter predicate passes, given the
// item's header map (possibly nil/empty when no filter is configured).
// Delivery to each target is independent: one target failing does not abort
// delivery to the others. Add reports true iff at least one target accepted
// the write.
func (q *Queue) Add(ctx context.Context, data []byte, expiresAtMs int64, headers map[string]string) bool {
	q.mu.RLock()
	targets := append([]string(nil), q.cfg.Targets...)
	f := q.filter
	q.mu.RUnlock()

	delivered := false
	for _, t := range targets {
		if !f.eval(headers) {
			continue
		}
		ok, err := q.fwd(ctx, t, data, expiresAtMs)
		if err != nil {
			continue
		}
		if ok {
			delivered = true
			q.mu.Lock()
			q.totalTargets++
			q.mu.Unlock()
		}
	}
	q.mu.Lock()
	q.totalWrites++
	q.mu.Unlock()
	return delivered
}

// DumpStats returns a small counter snapshot in the (key, value) string-pair
// shape the rest of the queue-ish contracts use.
func (q *Queue) DumpStats() map[string]string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return map[string]string{
		"targets":       fmt.Sprintf("%d", len(q.cfg.Targets)),
		"total_writes":  fmt.Sprintf("%d", q.totalWrites),
		"total_targets": fmt.Sprintf("%d", q.totalTargets),
		"has_filter":    fmt.Sprintf("%t", q.filter.enabled),
	}
}

// predicate wraps a compiled CEL program evaluated against a string header
// map, defaulting to "always true" when no expression was configured.
type predicate struct {
	prog    cel.Program
	enabled bool
}

func newPredicate(expr string) (predicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return predicate{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("headers", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return predicate{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return predicate{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return predicate{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return predicate{}, err
	}
	return predicate{prog: prog, enabled: true}, nil
}

func (p predicate) eval(headers map[string]string) bool {
	if !p.enabled {
		return true
	}
	if headers == nil {
		headers = map[string]string{}
	}
	out, _, err := p.prog.Eval(map[string]any{"headers": headers})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

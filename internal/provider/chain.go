package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// DefaultTimeout bounds a single provider call when its Spec has none.
const DefaultTimeout = 30 * time.Second

// Chain is the fallback executor for one capability kind. It is immutable
// after construction and safe for concurrent use.
type Chain[In, Out any] struct {
	kind    Kind
	entries []Entry[In, Out]
}

// NewChain orders entries by ascending priority (ties keep declaration
// order) and rejects entries of another kind or duplicate priorities.
func NewChain[In, Out any](kind Kind, entries ...Entry[In, Out]) (*Chain[In, Out], error) {
	sorted := make([]Entry[In, Out], len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Spec.Priority < sorted[j].Spec.Priority
	})

	seen := make(map[int]string, len(sorted))
	for _, e := range sorted {
		if e.Adapter == nil {
			return nil, fmt.Errorf("provider %q: nil adapter", e.Spec.Name)
		}
		if e.Spec.Kind != "" && e.Spec.Kind != kind {
			return nil, fmt.Errorf("provider %q is %s, chain is %s", e.Spec.Name, e.Spec.Kind, kind)
		}
		if other, dup := seen[e.Spec.Priority]; dup {
			return nil, fmt.Errorf("providers %q and %q share priority %d", other, e.Spec.Name, e.Spec.Priority)
		}
		seen[e.Spec.Priority] = e.Spec.Name
	}

	return &Chain[In, Out]{kind: kind, entries: sorted}, nil
}

// Kind returns the capability served by the chain.
func (c *Chain[In, Out]) Kind() Kind { return c.kind }

// Specs returns the chain's specs in attempt order.
func (c *Chain[In, Out]) Specs() []Spec {
	specs := make([]Spec, len(c.entries))
	for i, e := range c.entries {
		specs[i] = e.Spec
	}
	return specs
}

// Names returns provider names in attempt order.
func (c *Chain[In, Out]) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Spec.Name
	}
	return names
}

// Len returns the number of providers in the chain.
func (c *Chain[In, Out]) Len() int { return len(c.entries) }

// Run invokes each provider once, in order, and returns the first success.
// Every failure advances to the next provider. When the chain is exhausted
// the error is an *ExhaustedError. If ctx ends, Run stops and returns the
// context error without trying further providers.
func (c *Chain[In, Out]) Run(ctx context.Context, in In) (*Result[Out], error) {
	if len(c.entries) == 0 {
		return nil, &ExhaustedError{Kind: c.kind}
	}

	attempts := make([]Attempt, 0, len(c.entries))
	failures := make([]Failure, 0, len(c.entries))

	for _, e := range c.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		out, callErr := c.invoke(ctx, e, in)
		latency := time.Since(start)

		if callErr != nil {
			return nil, callErr
		}

		attempt := Attempt{Provider: e.Spec.Name, Priority: e.Spec.Priority, Latency: latency}
		if out.Failure == nil {
			attempts = append(attempts, attempt)
			slog.Info("provider succeeded",
				"kind", c.kind,
				"provider", e.Spec.Name,
				"attempt", len(attempts),
				"latency_ms", latency.Milliseconds(),
			)
			return &Result[Out]{Value: out.Value, Provider: e.Spec.Name, Attempts: attempts}, nil
		}

		f := *out.Failure
		attempt.Failure = &f
		attempts = append(attempts, attempt)
		failures = append(failures, f)
		logFailure(c.kind, f, latency)
	}

	return nil, &ExhaustedError{Kind: c.kind, Failures: failures, Attempts: attempts}
}

// invoke runs one adapter call under the per-call timeout. The returned
// error is non-nil only when the parent context ended during the call.
func (c *Chain[In, Out]) invoke(ctx context.Context, e Entry[In, Out], in In) (Outcome[Out], error) {
	timeout := e.Spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := e.Adapter.Invoke(callCtx, e.Spec, in)
	if out.Failure == nil {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	f := *out.Failure
	f.Provider = e.Spec.Name
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		f.Kind = Timeout
		if f.Err == nil {
			f.Err = fmt.Errorf("no response within %s", timeout)
		}
	}
	f.Retriable = f.Kind.Retriable()
	out.Failure = &f
	return out, nil
}

func logFailure(kind Kind, f Failure, latency time.Duration) {
	attrs := []any{
		"kind", kind,
		"provider", f.Provider,
		"error_kind", f.Kind,
		"retriable", f.Retriable,
		"latency_ms", latency.Milliseconds(),
		"error", f.Err,
	}
	if f.Kind == AuthenticationFailed {
		slog.Error("provider rejected credentials, trying next provider", attrs...)
		return
	}
	slog.Warn("provider failed, trying next provider", attrs...)
}

// WithPostprocess returns a chain whose successful values pass through fn
// before the chain accepts them. An fn error turns that attempt into a
// MalformedResponse failure, so the chain moves on to the next provider.
func (c *Chain[In, Out]) WithPostprocess(fn func(Out) (Out, error)) *Chain[In, Out] {
	entries := make([]Entry[In, Out], len(c.entries))
	for i, e := range c.entries {
		inner := e.Adapter
		entries[i] = Entry[In, Out]{
			Spec: e.Spec,
			Adapter: AdapterFunc[In, Out](func(ctx context.Context, spec Spec, in In) Outcome[Out] {
				out := inner.Invoke(ctx, spec, in)
				if out.Failure != nil {
					return out
				}
				v, err := fn(out.Value)
				if err != nil {
					return Fail[Out](MalformedResponse, err)
				}
				return Succeed(v)
			}),
		}
	}
	return &Chain[In, Out]{kind: c.kind, entries: entries}
}

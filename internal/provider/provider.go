package provider

import (
	"context"
	"fmt"
	"time"
)

// Kind is the capability a provider implements.
type Kind string

const (
	KindTextTransform  Kind = "text-transform"
	KindVoiceSynthesis Kind = "voice-synthesis"
)

// ErrorKind classifies a provider failure. Every kind advances the chain;
// the kind only drives diagnostics and log severity.
type ErrorKind string

const (
	RateLimited          ErrorKind = "rate_limited"
	QuotaExceeded        ErrorKind = "quota_exceeded"
	AuthenticationFailed ErrorKind = "authentication_failed"
	Timeout              ErrorKind = "timeout"
	MalformedResponse    ErrorKind = "malformed_response"
	NetworkError         ErrorKind = "network_error"
)

// Retriable reports whether a later call to the same provider could succeed.
// It describes the provider, not the chain.
func (k ErrorKind) Retriable() bool {
	switch k {
	case RateLimited, Timeout, NetworkError:
		return true
	default:
		return false
	}
}

// Spec is one entry of a fallback chain. Lower Priority is tried first.
type Spec struct {
	Name        string        `json:"name"`
	Priority    int           `json:"priority"`
	Kind        Kind          `json:"kind"`
	Model       string        `json:"model,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

// Failure is a classified, expected upstream failure.
type Failure struct {
	Provider  string
	Kind      ErrorKind
	Retriable bool
	Err       error
}

func (f Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Provider, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Provider, f.Kind, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Outcome is the tagged result of one adapter invocation: exactly one of
// Value or Failure is meaningful.
type Outcome[T any] struct {
	Value   T
	Failure *Failure
}

// OK reports whether the outcome is a success.
func (o Outcome[T]) OK() bool { return o.Failure == nil }

// Succeed wraps a successful value.
func Succeed[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Fail builds a failed outcome of the given kind.
func Fail[T any](kind ErrorKind, err error) Outcome[T] {
	return Outcome[T]{Failure: &Failure{Kind: kind, Retriable: kind.Retriable(), Err: err}}
}

// Adapter wraps one upstream service behind a uniform capability call.
// Invoke performs a single upstream call and must report ordinary upstream
// failures as a Failure outcome rather than panicking or blocking past ctx.
type Adapter[In, Out any] interface {
	Invoke(ctx context.Context, spec Spec, in In) Outcome[Out]
}

// AdapterFunc lets a plain function act as an Adapter.
type AdapterFunc[In, Out any] func(ctx context.Context, spec Spec, in In) Outcome[Out]

func (f AdapterFunc[In, Out]) Invoke(ctx context.Context, spec Spec, in In) Outcome[Out] {
	return f(ctx, spec, in)
}

// Entry binds a Spec to the adapter that serves it.
type Entry[In, Out any] struct {
	Spec    Spec
	Adapter Adapter[In, Out]
}

// Attempt records one provider invocation made by a chain.
type Attempt struct {
	Provider string        `json:"provider"`
	Priority int           `json:"priority"`
	Latency  time.Duration `json:"latency"`
	Failure  *Failure      `json:"-"`
}

// Result is a successful chain run.
type Result[Out any] struct {
	Value    Out
	Provider string
	Attempts []Attempt
}

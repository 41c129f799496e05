package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrNoProviders is returned when a chain has no configured entries.
var ErrNoProviders = errors.New("no providers configured")

// ExhaustedError is the aggregate failure of a chain: one Failure per
// attempted provider, in attempt order. Attempts holds the same calls with
// their priority and latency.
type ExhaustedError struct {
	Kind     Kind
	Failures []Failure
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("%s: %v", e.Kind, ErrNoProviders)
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s (%s)", f.Provider, f.Kind)
	}
	return fmt.Sprintf("all %s providers failed: %s", e.Kind, strings.Join(parts, ", "))
}

func (e *ExhaustedError) Unwrap() []error {
	if len(e.Failures) == 0 {
		return []error{ErrNoProviders}
	}
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// ClassifyStatus maps an upstream HTTP status code to an ErrorKind.
func ClassifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return RateLimited
	case code == http.StatusPaymentRequired:
		return QuotaExceeded
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return AuthenticationFailed
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return Timeout
	case code >= 500:
		return NetworkError
	default:
		return MalformedResponse
	}
}

// ClassifyTransport maps an error raised before any HTTP status was read.
func ClassifyTransport(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}
	return NetworkError
}

// LooksLikeQuota reports whether an upstream message talks about billing or
// usage limits rather than short-term throttling.
func LooksLikeQuota(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "quota") || strings.Contains(msg, "billing") ||
		strings.Contains(msg, "insufficient_quota") || strings.Contains(msg, "credit")
}

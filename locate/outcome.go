// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

package locate

import (
	"context"
	"fmt"
)

// OutcomeKind is the closed set of ways a single provider attempt can
// end.
type OutcomeKind int

const (
	// OutcomeSuccess means the provider produced a valid fix.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeUnavailable means the provider's service is absent or
	// unreachable (daemon not installed, endpoint returning 5xx).
	OutcomeUnavailable
	// OutcomePermissionDenied means the service refused to authorize
	// this caller.
	OutcomePermissionDenied
	// OutcomeTimeout means no response arrived within the deadline.
	OutcomeTimeout
	// OutcomeMalformed means a response arrived but was unparsable or
	// carried out-of-range coordinates.
	OutcomeMalformed
	// OutcomeNetworkError means the network itself failed (DNS,
	// connection refused, transport timeout).
	OutcomeNetworkError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomePermissionDenied:
		return "permission denied"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeMalformed:
		return "malformed response"
	case OutcomeNetworkError:
		return "network error"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the tagged result of a single provider attempt. Fix is
// set only when Kind is OutcomeSuccess; Err carries the underlying
// cause for diagnostics and is never inspected for control flow.
type Outcome struct {
	Kind OutcomeKind
	Fix  *Fix
	Err  error
}

// Success wraps a fix in a successful outcome.
func Success(fix *Fix) Outcome {
	return Outcome{Kind: OutcomeSuccess, Fix: fix}
}

// Failure builds a failed outcome of the given kind.
func Failure(kind OutcomeKind, err error) Outcome {
	return Outcome{Kind: kind, Err: err}
}

// Provider is a single source of position fixes. Fetch performs
// exactly one attempt, resolving every internal error into an Outcome;
// it must honor ctx cancellation and release any session resources on
// every exit path.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) Outcome
}

// ErrorKind classifies an overall resolution failure. Callers only
// ever see this and the mapped exit code, never provider-internal
// detail.
type ErrorKind int

const (
	// ErrNone means the resolution succeeded.
	ErrNone ErrorKind = iota
	// ErrNetworkFailure covers fallback network outages and generic
	// failures such as malformed data from both providers.
	ErrNetworkFailure
	// ErrServiceUnavailable means the native location service is
	// absent or unresponsive and the fallback could not compensate.
	ErrServiceUnavailable
	// ErrPermissionDenied means location access was disallowed and no
	// usable fallback remained.
	ErrPermissionDenied
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrNetworkFailure:
		return "network failure - check internet connection"
	case ErrServiceUnavailable:
		return "location service unavailable - install geoclue-2.0 package"
	case ErrPermissionDenied:
		return "permission denied - location services disabled"
	default:
		return fmt.Sprintf("error(%d)", int(k))
	}
}

// Result is the final outcome of one resolution. Exactly one of Fix or
// Kind!=ErrNone is meaningful; Source names the provider that produced
// the fix.
type Result struct {
	Fix    *Fix
	Source string
	Kind   ErrorKind
}

// Resolved reports whether the resolution produced a fix.
func (r Result) Resolved() bool {
	return r.Kind == ErrNone && r.Fix != nil
}

// classifyBoth maps the pair of failed attempts to a single ErrorKind.
// A fallback network outage wins because it is the actionable problem;
// otherwise the primary's classification decides, since the primary is
// the path expected to work.
func classifyBoth(primary, fallback OutcomeKind) ErrorKind {
	if fallback == OutcomeNetworkError {
		return ErrNetworkFailure
	}

	switch primary {
	case OutcomePermissionDenied:
		return ErrPermissionDenied
	case OutcomeUnavailable, OutcomeTimeout:
		return ErrServiceUnavailable
	default:
		// Malformed data on both sides collapses into the generic
		// failure code.
		return ErrNetworkFailure
	}
}

// classifyPrimaryOnly maps a failed forced-primary attempt to an
// ErrorKind. A timeout counts as the service being unavailable, not as
// a network problem.
func classifyPrimaryOnly(primary OutcomeKind) ErrorKind {
	switch primary {
	case OutcomePermissionDenied:
		return ErrPermissionDenied
	case OutcomeUnavailable, OutcomeTimeout:
		return ErrServiceUnavailable
	default:
		return ErrNetworkFailure
	}
}

// classifyFallbackOnly maps a failed forced-fallback attempt to an
// ErrorKind. Every fallback failure is a flavor of network failure.
func classifyFallbackOnly(OutcomeKind) ErrorKind {
	return ErrNetworkFailure
}

// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

package locate

import "testing"

func TestClassifyBoth(t *testing.T) {
	tests := []struct {
		name     string
		primary  OutcomeKind
		fallback OutcomeKind
		want     ErrorKind
	}{
		{
			name:     "primary unavailable, fallback network outage",
			primary:  OutcomeUnavailable,
			fallback: OutcomeNetworkError,
			want:     ErrNetworkFailure,
		},
		{
			name:     "both unreachable",
			primary:  OutcomeUnavailable,
			fallback: OutcomeUnavailable,
			want:     ErrServiceUnavailable,
		},
		{
			name:     "primary timeout, fallback endpoint down",
			primary:  OutcomeTimeout,
			fallback: OutcomeUnavailable,
			want:     ErrServiceUnavailable,
		},
		{
			name:     "primary timeout, fallback network outage",
			primary:  OutcomeTimeout,
			fallback: OutcomeNetworkError,
			want:     ErrNetworkFailure,
		},
		{
			name:     "permission denied, fallback endpoint down",
			primary:  OutcomePermissionDenied,
			fallback: OutcomeUnavailable,
			want:     ErrPermissionDenied,
		},
		{
			name:     "permission denied, fallback malformed",
			primary:  OutcomePermissionDenied,
			fallback: OutcomeMalformed,
			want:     ErrPermissionDenied,
		},
		{
			name:     "permission denied, fallback network outage",
			primary:  OutcomePermissionDenied,
			fallback: OutcomeNetworkError,
			want:     ErrNetworkFailure,
		},
		{
			name:     "both malformed collapses to generic failure",
			primary:  OutcomeMalformed,
			fallback: OutcomeMalformed,
			want:     ErrNetworkFailure,
		},
		{
			name:     "primary unavailable, fallback malformed",
			primary:  OutcomeUnavailable,
			fallback: OutcomeMalformed,
			want:     ErrServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyBoth(tt.primary, tt.fallback); got != tt.want {
				t.Errorf("classifyBoth(%v, %v) = %v, want %v", tt.primary, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestClassifyPrimaryOnly(t *testing.T) {
	tests := []struct {
		name    string
		primary OutcomeKind
		want    ErrorKind
	}{
		{"unavailable", OutcomeUnavailable, ErrServiceUnavailable},
		{"timeout is unavailable, not a network failure", OutcomeTimeout, ErrServiceUnavailable},
		{"permission denied", OutcomePermissionDenied, ErrPermissionDenied},
		{"malformed", OutcomeMalformed, ErrNetworkFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyPrimaryOnly(tt.primary); got != tt.want {
				t.Errorf("classifyPrimaryOnly(%v) = %v, want %v", tt.primary, got, tt.want)
			}
		})
	}
}

func TestClassifyFallbackOnly(t *testing.T) {
	for _, kind := range []OutcomeKind{OutcomeUnavailable, OutcomeTimeout, OutcomeMalformed, OutcomeNetworkError} {
		if got := classifyFallbackOnly(kind); got != ErrNetworkFailure {
			t.Errorf("classifyFallbackOnly(%v) = %v, want %v", kind, got, ErrNetworkFailure)
		}
	}
}

func TestResultResolved(t *testing.T) {
	fix := &Fix{Latitude: 1, Longitude: 2}

	if !(Result{Fix: fix, Source: "geoclue"}).Resolved() {
		t.Error("result with fix should be resolved")
	}

	if (Result{Kind: ErrNetworkFailure}).Resolved() {
		t.Error("failed result should not be resolved")
	}

	if (Result{}).Resolved() {
		t.Error("empty result should not be resolved")
	}
}

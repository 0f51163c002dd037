// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

package locate

import "testing"

func TestExitCode(t *testing.T) {
	fix := &Fix{Latitude: 55.58, Longitude: 12.92}

	tests := []struct {
		name   string
		result Result
		want   int
	}{
		{"resolved", Result{Fix: fix, Source: "ip"}, ExitOK},
		{"network failure", Result{Kind: ErrNetworkFailure}, ExitFailure},
		{"service unavailable", Result{Kind: ErrServiceUnavailable}, ExitServiceUnavailable},
		{"permission denied", Result{Kind: ErrPermissionDenied}, ExitPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.result); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

// A failed resolution must never map to exit 0, whatever the kind.
func TestExitCodeNeverZeroOnFailure(t *testing.T) {
	for _, kind := range []ErrorKind{ErrNetworkFailure, ErrServiceUnavailable, ErrPermissionDenied} {
		code := ExitCode(Result{Kind: kind})
		if code == ExitOK {
			t.Errorf("ExitCode(%v) = 0, want non-zero", kind)
		}
		if code != ExitFailure && code != ExitServiceUnavailable && code != ExitPermissionDenied {
			t.Errorf("ExitCode(%v) = %d, want one of 1, 70, 77", kind, code)
		}
	}
}

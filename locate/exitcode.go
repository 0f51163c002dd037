// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

package locate

// Process exit statuses. 70 and 77 follow sysexits.h conventions
// (EX_SOFTWARE, EX_NOPERM) as used by the desktop tooling this CLI is
// scripted against.
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitServiceUnavailable = 70
	ExitPermissionDenied   = 77
)

// ExitCode maps a resolution result to the process exit status.
func ExitCode(r Result) int {
	if r.Resolved() {
		return ExitOK
	}

	switch r.Kind {
	case ErrServiceUnavailable:
		return ExitServiceUnavailable
	case ErrPermissionDenied:
		return ExitPermissionDenied
	default:
		return ExitFailure
	}
}

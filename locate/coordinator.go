// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

package locate

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Mode selects which provider path the resolver takes.
type Mode string

const (
	// ModeAuto tries the native service first and falls back to IP
	// geolocation.
	ModeAuto Mode = "auto"
	// ModeNative forces the OS location service (GeoClue2, or
	// CoreLocation on macOS), never falling back.
	ModeNative Mode = "native"
	// ModeIP forces IP geolocation, skipping the native service.
	ModeIP Mode = "ip"
)

// ParseMode parses a provider selector. The concrete service names
// ("geoclue", "corelocation") and the roles the two providers play
// ("primary", "fallback") are accepted as aliases.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "auto", "":
		return ModeAuto, nil
	case "native", "geoclue", "corelocation", "primary":
		return ModeNative, nil
	case "ip", "fallback":
		return ModeIP, nil
	default:
		return "", fmt.Errorf("unknown provider %q (want auto, geoclue, corelocation or ip)", s)
	}
}

// DefaultPrimaryTimeout bounds the wait for a native fix when no
// timeout is configured.
const DefaultPrimaryTimeout = 5 * time.Second

// Resolver orchestrates the primary-then-fallback sequence. The two
// attempts are strictly sequential; the primary runs under its own
// deadline and the fallback client carries its own shorter one, so a
// resolution never blocks past the sum of the two.
type Resolver struct {
	Primary        Provider
	Fallback       Provider
	Mode           Mode
	PrimaryTimeout time.Duration
	Logger         *slog.Logger
}

// Resolve performs exactly one resolution. At most one provider's fix
// ever reaches the result; partial fixes are never merged.
func (r *Resolver) Resolve(ctx context.Context) Result {
	switch r.Mode {
	case ModeNative:
		return r.resolvePrimaryOnly(ctx)
	case ModeIP:
		return r.resolveFallbackOnly(ctx)
	default:
		return r.resolveAuto(ctx)
	}
}

func (r *Resolver) resolveAuto(ctx context.Context) Result {
	primary := r.fetchPrimary(ctx)
	if primary.Kind == OutcomeSuccess {
		return Result{Fix: primary.Fix, Source: r.Primary.Name()}
	}

	r.logAttempt(r.Primary, primary)
	if primary.Kind == OutcomePermissionDenied {
		// Permission denial on the native service is not fatal: the
		// IP fallback needs no authorization.
		r.logger().Warn("falling back to IP-based location")
	}

	fallback := r.Fallback.Fetch(ctx)
	if fallback.Kind == OutcomeSuccess {
		return Result{Fix: fallback.Fix, Source: r.Fallback.Name()}
	}

	r.logAttempt(r.Fallback, fallback)

	return Result{Kind: classifyBoth(primary.Kind, fallback.Kind)}
}

func (r *Resolver) resolvePrimaryOnly(ctx context.Context) Result {
	primary := r.fetchPrimary(ctx)
	if primary.Kind == OutcomeSuccess {
		return Result{Fix: primary.Fix, Source: r.Primary.Name()}
	}

	r.logAttempt(r.Primary, primary)

	return Result{Kind: classifyPrimaryOnly(primary.Kind)}
}

func (r *Resolver) resolveFallbackOnly(ctx context.Context) Result {
	fallback := r.Fallback.Fetch(ctx)
	if fallback.Kind == OutcomeSuccess {
		return Result{Fix: fallback.Fix, Source: r.Fallback.Name()}
	}

	r.logAttempt(r.Fallback, fallback)

	return Result{Kind: classifyFallbackOnly(fallback.Kind)}
}

// fetchPrimary runs the primary attempt under its bounded deadline.
func (r *Resolver) fetchPrimary(ctx context.Context) Outcome {
	timeout := r.PrimaryTimeout
	if timeout <= 0 {
		timeout = DefaultPrimaryTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return r.Primary.Fetch(ctx)
}

func (r *Resolver) logAttempt(p Provider, o Outcome) {
	r.logger().Debug("provider attempt failed",
		"provider", p.Name(),
		"outcome", o.Kind.String(),
		"err", o.Err)
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}

	return slog.Default()
}

// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !darwin

package locate

import "log/slog"

// NewNativeProvider returns the OS location provider for this
// platform: the GeoClue2 session client everywhere but macOS.
func NewNativeProvider(cfg PrimaryConfig, logger *slog.Logger) Provider {
	return &GeoClueProvider{
		DesktopID:     cfg.DesktopID,
		AccuracyLevel: cfg.AccuracyLevel,
		Logger:        logger,
	}
}

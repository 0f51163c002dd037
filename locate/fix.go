// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

// Package locate resolves the host's geographic coordinates, preferring
// the native OS location service and falling back to IP geolocation.
package locate

import (
	"fmt"
	"time"
)

// Fix is a single resolved position. Accuracy and Timestamp are
// optional: IP geolocation supplies neither, and GeoClue may omit
// either of them.
type Fix struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	AccuracyM *float64   `json:"accuracy_m,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Provider  string     `json:"provider"`
}

// Validate verifies that the coordinates are within the valid global
// ranges.
func (f *Fix) Validate() error {
	if f.Latitude < -90 || f.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90 (got: %f)", f.Latitude)
	}

	if f.Longitude < -180 || f.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180 (got: %f)", f.Longitude)
	}

	return nil
}

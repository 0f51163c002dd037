// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

package locate

import "testing"

func TestFixValidate(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{"valid", 55.58, 12.92, false},
		{"extreme south-west corner", -90, -180, false},
		{"extreme north-east corner", 90, 180, false},
		{"null island", 0, 0, false},
		{"latitude too high", 90.1, 0, true},
		{"latitude too low", -91, 0, true},
		{"longitude too high", 0, 180.5, true},
		{"longitude too low", 0, -181, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fix := &Fix{Latitude: tt.lat, Longitude: tt.lon}
			err := fix.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

package locate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uber/h3-go/v4"
)

// Style selects the output rendering of a fix.
type Style string

// Recognized output styles.
const (
	// StylePlain prints "<lat> <lon>", followed by accuracy and
	// timestamp in parentheses when present.
	StylePlain Style = "plain"
	// StyleMachine prints exactly two numeric fields, splittable on
	// whitespace.
	StyleMachine Style = "machine"
	// StyleJSON prints the fix as a JSON object.
	StyleJSON Style = "json"
	// StyleCSV prints one comma-separated record.
	StyleCSV Style = "csv"
	// StyleEnv prints eval-able GEOLOC_* assignments.
	StyleEnv Style = "env"
	// StyleH3 prints the H3 cell containing the fix.
	StyleH3 Style = "h3"
)

// DefaultH3Resolution is the cell resolution used by StyleH3 unless
// overridden (~0.1 km² cells).
const DefaultH3Resolution = 9

// ParseStyle parses a --format value.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case StylePlain, StyleMachine, StyleJSON, StyleCSV, StyleEnv, StyleH3:
		return Style(s), nil
	case "":
		return StylePlain, nil
	default:
		return "", fmt.Errorf("unknown format %q (want plain, machine, json, csv, env or h3)", s)
	}
}

// Format renders a fix in the given style. It is a pure function: no
// side effects, and the same fix always renders to the same text.
// h3Resolution only applies to StyleH3 and must be in 0..15; zero is
// the coarsest valid resolution, not a default marker.
func Format(fix *Fix, style Style, h3Resolution int) (string, error) {
	switch style {
	case StyleMachine:
		return coordinateFields(fix), nil
	case StylePlain, "":
		return formatPlain(fix), nil
	case StyleJSON:
		encoded, err := json.Marshal(fix)
		if err != nil {
			return "", fmt.Errorf("encoding fix: %w", err)
		}

		return string(encoded), nil
	case StyleCSV:
		return formatCSV(fix), nil
	case StyleEnv:
		return formatEnv(fix), nil
	case StyleH3:
		return formatH3(fix, h3Resolution)
	default:
		return "", fmt.Errorf("unknown format %q", string(style))
	}
}

// coordinateFields renders latitude and longitude with the shortest
// representation that round-trips to the same float64 values.
func coordinateFields(fix *Fix) string {
	return formatFloat(fix.Latitude) + " " + formatFloat(fix.Longitude)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPlain(fix *Fix) string {
	base := coordinateFields(fix)

	var extras []string
	if fix.AccuracyM != nil {
		extras = append(extras, fmt.Sprintf("±%.0fm", *fix.AccuracyM))
	}
	if fix.Timestamp != nil {
		extras = append(extras, fix.Timestamp.UTC().Format(time.RFC3339))
	}

	if len(extras) == 0 {
		return base
	}

	return base + " (" + strings.Join(extras, ", ") + ")"
}

func formatCSV(fix *Fix) string {
	fields := []string{formatFloat(fix.Latitude), formatFloat(fix.Longitude), "", "", fix.Provider}
	if fix.AccuracyM != nil {
		fields[2] = formatFloat(*fix.AccuracyM)
	}
	if fix.Timestamp != nil {
		fields[3] = fix.Timestamp.UTC().Format(time.RFC3339)
	}

	return strings.Join(fields, ",")
}

func formatEnv(fix *Fix) string {
	lines := []string{
		"GEOLOC_LATITUDE=" + formatFloat(fix.Latitude),
		"GEOLOC_LONGITUDE=" + formatFloat(fix.Longitude),
	}
	if fix.AccuracyM != nil {
		lines = append(lines, "GEOLOC_ACCURACY_M="+formatFloat(*fix.AccuracyM))
	}
	if fix.Timestamp != nil {
		lines = append(lines, "GEOLOC_TIMESTAMP="+fix.Timestamp.UTC().Format(time.RFC3339))
	}
	if fix.Provider != "" {
		lines = append(lines, "GEOLOC_PROVIDER="+fix.Provider)
	}

	return strings.Join(lines, "\n")
}

func formatH3(fix *Fix, resolution int) (string, error) {
	if resolution < 0 || resolution > 15 {
		return "", fmt.Errorf("h3 resolution must be between 0 and 15 (got: %d)", resolution)
	}

	cell, err := h3.LatLngToCell(h3.NewLatLng(fix.Latitude, fix.Longitude), resolution)
	if err != nil {
		return "", fmt.Errorf("converting to h3 cell at res %d: %w", resolution, err)
	}

	return cell.String(), nil
}

// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

package locate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	geoClueService     = "org.freedesktop.GeoClue2"
	geoClueManagerPath = "/org/freedesktop/GeoClue2/Manager"

	geoClueManagerIface  = "org.freedesktop.GeoClue2.Manager"
	geoClueClientIface   = "org.freedesktop.GeoClue2.Client"
	geoClueLocationIface = "org.freedesktop.GeoClue2.Location"
)

// DefaultDesktopID identifies this caller to GeoClue. The matching
// .desktop file must be installed for the daemon to authorize the
// session.
const DefaultDesktopID = "geoloc"

// DefaultAccuracyLevel is the GClueAccuracyLevel requested from the
// daemon.
const DefaultAccuracyLevel uint32 = 4

// GeoClueProvider obtains a fix from the GeoClue2 daemon over the
// D-Bus system bus. Each Fetch opens a private bus connection, runs a
// single client session and tears both down before returning, so no
// subscription outlives the call.
type GeoClueProvider struct {
	// DesktopID overrides DefaultDesktopID when set.
	DesktopID string

	// AccuracyLevel overrides DefaultAccuracyLevel when non-zero.
	AccuracyLevel uint32

	Logger *slog.Logger
}

// Name implements Provider.
func (g *GeoClueProvider) Name() string { return "geoclue" }

// Fetch implements Provider. The deadline carried by ctx bounds the
// whole session, including the wait for the first location update.
func (g *GeoClueProvider) Fetch(ctx context.Context) Outcome {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return Failure(OutcomeUnavailable, fmt.Errorf("connecting to system bus: %w", err))
	}
	defer conn.Close()

	manager := conn.Object(geoClueService, geoClueManagerPath)

	var clientPath dbus.ObjectPath
	if err := manager.CallWithContext(ctx, geoClueManagerIface+".GetClient", 0).Store(&clientPath); err != nil {
		return Failure(classifyDBusError(ctx, fmt.Errorf("GetClient: %w", err)))
	}

	client := conn.Object(geoClueService, clientPath)

	desktopID := g.DesktopID
	if desktopID == "" {
		desktopID = DefaultDesktopID
	}
	if err := client.SetProperty(geoClueClientIface+".DesktopId", dbus.MakeVariant(desktopID)); err != nil {
		return Failure(classifyDBusError(ctx, fmt.Errorf("setting DesktopId: %w", err)))
	}

	accuracy := g.AccuracyLevel
	if accuracy == 0 {
		accuracy = DefaultAccuracyLevel
	}
	if err := client.SetProperty(geoClueClientIface+".RequestedAccuracyLevel", dbus.MakeVariant(accuracy)); err != nil {
		return Failure(classifyDBusError(ctx, fmt.Errorf("setting RequestedAccuracyLevel: %w", err)))
	}

	// Subscribe before Start so the first LocationUpdated cannot be
	// missed.
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(clientPath),
		dbus.WithMatchInterface(geoClueClientIface),
		dbus.WithMatchMember("LocationUpdated"),
	); err != nil {
		return Failure(OutcomeUnavailable, fmt.Errorf("subscribing to location updates: %w", err))
	}

	signals := make(chan *dbus.Signal, 8)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	if err := client.CallWithContext(ctx, geoClueClientIface+".Start", 0).Err; err != nil {
		return Failure(classifyDBusError(ctx, fmt.Errorf("Start: %w", err)))
	}
	// Stop on every exit path so a dangling session does not keep the
	// daemon alive.
	defer client.Call(geoClueClientIface+".Stop", 0)

	g.logger().Debug("geoclue session started", "client", string(clientPath))

	locationPath, failed := g.waitForLocation(ctx, client, signals)
	if failed != nil {
		return *failed
	}

	return g.readLocation(ctx, conn, locationPath)
}

// waitForLocation returns the object path of the first usable location
// the session announces, or a failed outcome when the deadline
// expires first.
func (g *GeoClueProvider) waitForLocation(ctx context.Context, client dbus.BusObject, signals <-chan *dbus.Signal) (dbus.ObjectPath, *Outcome) {
	// The daemon may already hold a cached fix.
	if variant, err := client.GetProperty(geoClueClientIface + ".Location"); err == nil {
		if path, ok := variant.Value().(dbus.ObjectPath); ok && locationPathSet(path) {
			return path, nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			failed := Failure(OutcomeTimeout, fmt.Errorf("waiting for fix: %w", ctx.Err()))

			return "", &failed
		case sig, ok := <-signals:
			if !ok {
				failed := Failure(OutcomeUnavailable, errors.New("bus connection closed"))

				return "", &failed
			}
			if sig.Name != geoClueClientIface+".LocationUpdated" || len(sig.Body) != 2 {
				continue
			}
			if path, ok := sig.Body[1].(dbus.ObjectPath); ok && locationPathSet(path) {
				return path, nil
			}
		}
	}
}

// readLocation reads the coordinate properties off the announced
// location object. Accuracy and Timestamp are optional; their absence
// is not an error.
func (g *GeoClueProvider) readLocation(ctx context.Context, conn *dbus.Conn, path dbus.ObjectPath) Outcome {
	location := conn.Object(geoClueService, path)

	lat, err := floatProperty(location, geoClueLocationIface+".Latitude")
	if err != nil {
		return Failure(classifyReadError(ctx, fmt.Errorf("reading latitude: %w", err)))
	}

	lon, err := floatProperty(location, geoClueLocationIface+".Longitude")
	if err != nil {
		return Failure(classifyReadError(ctx, fmt.Errorf("reading longitude: %w", err)))
	}

	fix := &Fix{Latitude: lat, Longitude: lon, Provider: g.Name()}
	if err := fix.Validate(); err != nil {
		return Failure(OutcomeMalformed, err)
	}

	if accuracy, err := floatProperty(location, geoClueLocationIface+".Accuracy"); err == nil && accuracy > 0 {
		fix.AccuracyM = &accuracy
	}
	if ts, ok := timestampProperty(location); ok {
		fix.Timestamp = &ts
	}

	return Success(fix)
}

func (g *GeoClueProvider) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}

	return slog.Default()
}

// locationPathSet reports whether GeoClue has announced a real
// location object; "/" is the daemon's "no location yet" marker.
func locationPathSet(path dbus.ObjectPath) bool {
	return path != "" && path != "/"
}

func floatProperty(obj dbus.BusObject, name string) (float64, error) {
	variant, err := obj.GetProperty(name)
	if err != nil {
		return 0, err
	}

	value, ok := variant.Value().(float64)
	if !ok {
		return 0, fmt.Errorf("property %s is %T, not float64", name, variant.Value())
	}

	return value, nil
}

// timestampProperty decodes the (tt) seconds/microseconds pair GeoClue
// exposes. A missing or oddly-typed property yields ok=false rather
// than an error.
func timestampProperty(obj dbus.BusObject) (time.Time, bool) {
	variant, err := obj.GetProperty(geoClueLocationIface + ".Timestamp")
	if err != nil {
		return time.Time{}, false
	}

	pair, ok := variant.Value().([]interface{})
	if !ok || len(pair) != 2 {
		return time.Time{}, false
	}

	seconds, okSec := pair[0].(uint64)
	micros, okMicro := pair[1].(uint64)
	if !okSec || !okMicro || seconds == 0 {
		return time.Time{}, false
	}

	return time.Unix(int64(seconds), int64(micros)*1000).UTC(), true
}

// classifyDBusError turns a failed bus call into a provider outcome
// kind. Authorization refusals map to permission denial; everything
// else means the service cannot serve us, except when our own deadline
// expired first.
func classifyDBusError(ctx context.Context, err error) (OutcomeKind, error) {
	if ctx.Err() != nil {
		return OutcomeTimeout, err
	}

	var busErr dbus.Error
	if errors.As(err, &busErr) {
		if strings.Contains(busErr.Name, "NotAuthorized") ||
			busErr.Name == "org.freedesktop.DBus.Error.AccessDenied" {
			return OutcomePermissionDenied, err
		}
	}

	return OutcomeUnavailable, err
}

// classifyReadError handles failures while reading an already
// announced location: the service responded, so an unreadable property
// is a malformed response unless the deadline expired.
func classifyReadError(ctx context.Context, err error) (OutcomeKind, error) {
	if ctx.Err() != nil {
		return OutcomeTimeout, err
	}

	return OutcomeMalformed, err
}

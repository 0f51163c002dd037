// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin

package locate

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Foundation -framework CoreLocation

#import <Foundation/Foundation.h>
#import <CoreLocation/CoreLocation.h>

#define GEOLOC_PENDING  0
#define GEOLOC_FIXED    1
#define GEOLOC_FAILED   2
#define GEOLOC_TIMEOUT  3
#define GEOLOC_DENIED   4
#define GEOLOC_DISABLED 5

static double fixLatitude = 0;
static double fixLongitude = 0;
static double fixAccuracy = -1;
static double fixUnixTime = 0;
static int fixStatus = GEOLOC_PENDING;
static char fixError[256];

@interface GeolocDelegate : NSObject <CLLocationManagerDelegate>
@end

@implementation GeolocDelegate

- (void)locationManager:(CLLocationManager *)manager didUpdateLocations:(NSArray<CLLocation *> *)locations {
    CLLocation *location = [locations lastObject];
    if (location) {
        fixLatitude = location.coordinate.latitude;
        fixLongitude = location.coordinate.longitude;
        fixAccuracy = location.horizontalAccuracy;
        fixUnixTime = [location.timestamp timeIntervalSince1970];
        fixStatus = GEOLOC_FIXED;
    }
}

- (void)locationManager:(CLLocationManager *)manager didFailWithError:(NSError *)error {
    if ([error.domain isEqualToString:kCLErrorDomain] && error.code == kCLErrorDenied) {
        fixStatus = GEOLOC_DENIED;
        return;
    }
    snprintf(fixError, sizeof(fixError), "%s (code %ld)",
             [error.localizedDescription UTF8String], (long)error.code);
    fixStatus = GEOLOC_FAILED;
}

@end

// geolocRequestFix blocks the calling thread pumping its run loop until
// the delegate reports a terminal status or the timeout elapses.
void geolocRequestFix(double timeoutSeconds) {
    fixStatus = GEOLOC_PENDING;
    fixAccuracy = -1;
    fixUnixTime = 0;
    fixError[0] = '\0';

    if (![CLLocationManager locationServicesEnabled]) {
        fixStatus = GEOLOC_DISABLED;
        return;
    }

    @autoreleasepool {
        GeolocDelegate *delegate = [[GeolocDelegate alloc] init];
        CLLocationManager *manager = [[CLLocationManager alloc] init];
        manager.delegate = delegate;
        manager.desiredAccuracy = kCLLocationAccuracyHundredMeters;

        [manager requestWhenInUseAuthorization];
        [manager startUpdatingLocation];

        NSDate *deadline = [NSDate dateWithTimeIntervalSinceNow:timeoutSeconds];
        while (fixStatus == GEOLOC_PENDING && [deadline timeIntervalSinceNow] > 0) {
            [[NSRunLoop currentRunLoop] runMode:NSDefaultRunLoopMode
                                     beforeDate:[NSDate dateWithTimeIntervalSinceNow:0.2]];
        }

        [manager stopUpdatingLocation];
        manager.delegate = nil;

        if (fixStatus == GEOLOC_PENDING) {
            fixStatus = GEOLOC_TIMEOUT;
        }
    }
}

double geolocLatitude(void)  { return fixLatitude; }
double geolocLongitude(void) { return fixLongitude; }
double geolocAccuracy(void)  { return fixAccuracy; }
double geolocUnixTime(void)  { return fixUnixTime; }
int geolocStatus(void)       { return fixStatus; }
const char* geolocError(void) { return fixError; }
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Session statuses reported by the bridge.
const (
	clStatusFixed    = 1
	clStatusFailed   = 2
	clStatusTimeout  = 3
	clStatusDenied   = 4
	clStatusDisabled = 5
)

// CoreLocationProvider obtains a fix from the macOS CoreLocation
// framework. The bridge state is process-global, so sessions are
// serialized.
type CoreLocationProvider struct {
	Logger *slog.Logger
}

// NewNativeProvider returns the OS location provider for this
// platform. The GeoClue session settings have no CoreLocation
// counterpart and are ignored here.
func NewNativeProvider(_ PrimaryConfig, logger *slog.Logger) Provider {
	return &CoreLocationProvider{Logger: logger}
}

// Name implements Provider.
func (c *CoreLocationProvider) Name() string { return "corelocation" }

var coreLocationMu sync.Mutex

// clSession is the raw result of one bridge call.
type clSession struct {
	status   int
	lat, lon float64
	accuracy float64
	unixTime float64
	errText  string
}

// Fetch implements Provider. The framework delegate needs a pumped run
// loop, so the session runs on a locked OS thread; the deadline carried
// by ctx bounds the wait either way.
func (c *CoreLocationProvider) Fetch(ctx context.Context) Outcome {
	timeout := DefaultPrimaryTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return Failure(OutcomeTimeout, fmt.Errorf("waiting for fix: %w", context.DeadlineExceeded))
	}

	done := make(chan clSession, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		coreLocationMu.Lock()
		defer coreLocationMu.Unlock()

		C.geolocRequestFix(C.double(timeout.Seconds()))
		done <- clSession{
			status:   int(C.geolocStatus()),
			lat:      float64(C.geolocLatitude()),
			lon:      float64(C.geolocLongitude()),
			accuracy: float64(C.geolocAccuracy()),
			unixTime: float64(C.geolocUnixTime()),
			errText:  C.GoString(C.geolocError()),
		}
	}()

	select {
	case <-ctx.Done():
		// The bridge times out on its own shortly after; the session
		// goroutine drains into the buffered channel.
		return Failure(OutcomeTimeout, fmt.Errorf("waiting for fix: %w", ctx.Err()))
	case session := <-done:
		return c.sessionOutcome(session)
	}
}

func (c *CoreLocationProvider) sessionOutcome(session clSession) Outcome {
	switch session.status {
	case clStatusFixed:
		fix := &Fix{Latitude: session.lat, Longitude: session.lon, Provider: c.Name()}
		if err := fix.Validate(); err != nil {
			return Failure(OutcomeMalformed, err)
		}
		if session.accuracy > 0 {
			fix.AccuracyM = &session.accuracy
		}
		if session.unixTime > 0 {
			ts := time.Unix(int64(session.unixTime), 0).UTC()
			fix.Timestamp = &ts
		}

		c.logger().Debug("corelocation fix received", "accuracy", session.accuracy)

		return Success(fix)
	case clStatusDenied:
		return Failure(OutcomePermissionDenied, errors.New("location access denied"))
	case clStatusDisabled:
		return Failure(OutcomeUnavailable, errors.New("location services disabled"))
	case clStatusTimeout:
		return Failure(OutcomeTimeout, errors.New("no fix before the deadline"))
	case clStatusFailed:
		return Failure(OutcomeUnavailable, fmt.Errorf("location request failed: %s", session.errText))
	default:
		return Failure(OutcomeUnavailable, fmt.Errorf("unexpected session status %d", session.status))
	}
}

func (c *CoreLocationProvider) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return slog.Default()
}

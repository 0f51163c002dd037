// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

package locate

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIPAPITestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}

func TestIPAPIFetchSuccess(t *testing.T) {
	var gotUserAgent string

	server := newIPAPITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","country":"Sweden","lat":55.58,"lon":12.92,"query":"192.0.2.1"}`))
	})

	provider := NewIPAPIProvider(IPAPIOptions{
		Endpoint:  server.URL,
		UserAgent: "geoloc/test",
	})

	outcome := provider.Fetch(context.Background())

	require.Equal(t, OutcomeSuccess, outcome.Kind, "outcome err: %v", outcome.Err)
	require.NotNil(t, outcome.Fix)
	assert.Equal(t, 55.58, outcome.Fix.Latitude)
	assert.Equal(t, 12.92, outcome.Fix.Longitude)
	assert.Equal(t, "ip", outcome.Fix.Provider)
	assert.Nil(t, outcome.Fix.AccuracyM, "IP geolocation supplies no accuracy")
	assert.Nil(t, outcome.Fix.Timestamp, "IP geolocation supplies no timestamp")
	assert.Equal(t, "geoloc/test", gotUserAgent)
}

func TestIPAPIFetchClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    OutcomeKind
	}{
		{
			name:   "explicit failure status",
			status: http.StatusOK,
			body:   `{"status":"fail","message":"private range"}`,
			want:   OutcomeMalformed,
		},
		{
			name:   "missing coordinate fields",
			status: http.StatusOK,
			body:   `{"status":"success","country":"Sweden"}`,
			want:   OutcomeMalformed,
		},
		{
			name:   "latitude out of range",
			status: http.StatusOK,
			body:   `{"status":"success","lat":123.4,"lon":12.92}`,
			want:   OutcomeMalformed,
		},
		{
			name:   "longitude out of range",
			status: http.StatusOK,
			body:   `{"status":"success","lat":55.58,"lon":-181}`,
			want:   OutcomeMalformed,
		},
		{
			name:   "unparsable body",
			status: http.StatusOK,
			body:   `<html>not json</html>`,
			want:   OutcomeMalformed,
		},
		{
			name:   "endpoint down",
			status: http.StatusServiceUnavailable,
			body:   "",
			want:   OutcomeUnavailable,
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   "",
			want:   OutcomeUnavailable,
		},
		{
			name:   "unexpected client error",
			status: http.StatusNotFound,
			body:   "",
			want:   OutcomeMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newIPAPITestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			provider := NewIPAPIProvider(IPAPIOptions{Endpoint: server.URL})
			outcome := provider.Fetch(context.Background())

			assert.Equal(t, tt.want, outcome.Kind)
			assert.Nil(t, outcome.Fix)
			assert.Error(t, outcome.Err)
		})
	}
}

func TestIPAPIFetchConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := server.URL
	server.Close()

	provider := NewIPAPIProvider(IPAPIOptions{Endpoint: endpoint})
	outcome := provider.Fetch(context.Background())

	assert.Equal(t, OutcomeNetworkError, outcome.Kind)
}

func TestIPAPIFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	server := newIPAPITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	provider := NewIPAPIProvider(IPAPIOptions{
		Endpoint: server.URL,
		Timeout:  50 * time.Millisecond,
	})

	start := time.Now()
	outcome := provider.Fetch(context.Background())

	assert.Equal(t, OutcomeNetworkError, outcome.Kind)
	assert.Less(t, time.Since(start), 2*time.Second, "timeout must bound the request")
}

func TestIPAPIFetchHTTPTrace(t *testing.T) {
	server := newIPAPITestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","lat":55.58,"lon":12.92}`))
	})

	var trace bytes.Buffer
	provider := NewIPAPIProvider(IPAPIOptions{
		Endpoint:  server.URL,
		HTTPTrace: &trace,
		TraceBody: true,
	})

	outcome := provider.Fetch(context.Background())

	require.Equal(t, OutcomeSuccess, outcome.Kind, "outcome err: %v", outcome.Err)
	assert.True(t, strings.Contains(trace.String(), "> GET"), "trace should contain the request line, got: %s", trace.String())
	assert.True(t, strings.Contains(trace.String(), "< RESPONSE: ["), "trace should contain the timed response, got: %s", trace.String())
}

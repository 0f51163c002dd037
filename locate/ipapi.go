// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

package locate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/geoloc-cli/geoloc/utils/httputils"
)

// DefaultIPAPIEndpoint is the fixed IP-geolocation endpoint. Plain
// HTTP: the free tier of ip-api.com does not serve TLS, and the
// request carries no sensitive data.
const DefaultIPAPIEndpoint = "http://ip-api.com/json"

// DefaultFallbackTimeout bounds the whole fallback request so it can
// never hang the program.
const DefaultFallbackTimeout = 5 * time.Second

// IPAPIOptions configures the fallback provider.
type IPAPIOptions struct {
	// Endpoint overrides DefaultIPAPIEndpoint when set.
	Endpoint string

	// Timeout overrides DefaultFallbackTimeout when positive.
	Timeout time.Duration

	// UserAgent is sent with the request.
	UserAgent string

	// HTTPTrace enables dumping of the HTTP transaction when non-nil.
	HTTPTrace io.Writer

	// TraceBody includes response bodies in the trace.
	TraceBody bool
}

// IPAPIProvider resolves a coarse fix from the caller's public IP
// address. It needs no OS permission, only network reachability.
type IPAPIProvider struct {
	endpoint string
	client   *http.Client
}

// NewIPAPIProvider creates the fallback provider.
func NewIPAPIProvider(opts IPAPIOptions) *IPAPIProvider {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultIPAPIEndpoint
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFallbackTimeout
	}

	var transport http.RoundTripper = http.DefaultTransport
	if opts.UserAgent != "" {
		transport = &httputils.AppendRequestHeadersRoundTripper{
			Transport: transport,
			Headers:   map[string]string{"User-Agent": opts.UserAgent},
		}
	}
	if opts.HTTPTrace != nil {
		transport = &httputils.LoggingRoundTripper{
			Transport: transport,
			Writer:    opts.HTTPTrace,
			DumpBody:  opts.TraceBody,
		}
	}

	return &IPAPIProvider{
		endpoint: endpoint,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Name implements Provider.
func (p *IPAPIProvider) Name() string { return "ip" }

type ipAPIResponse struct {
	Status  string   `json:"status"` // "success" or "fail"
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

// Fetch implements Provider. Transport failures (DNS, refused
// connections, timeouts) are network errors; an endpoint that answers
// but cannot serve (5xx, 429) is unavailable; anything else that is
// not a usable coordinate pair is a malformed response.
func (p *IPAPIProvider) Fetch(ctx context.Context) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return Failure(OutcomeNetworkError, fmt.Errorf("building request: %w", err))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Failure(OutcomeNetworkError, fmt.Errorf("geolocation request failed: %w", err))
	}

	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return Failure(OutcomeUnavailable, fmt.Errorf("endpoint returned status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return Failure(OutcomeMalformed, fmt.Errorf("endpoint returned status %d", resp.StatusCode))
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Failure(OutcomeMalformed, fmt.Errorf("decoding response: %w", err))
	}

	if body.Status != "" && body.Status != "success" {
		return Failure(OutcomeMalformed, fmt.Errorf("endpoint reported failure: %s", body.Message))
	}

	if body.Lat == nil || body.Lon == nil {
		return Failure(OutcomeMalformed, errors.New("response missing lat/lon fields"))
	}

	fix := &Fix{Latitude: *body.Lat, Longitude: *body.Lon, Provider: p.Name()}
	if err := fix.Validate(); err != nil {
		return Failure(OutcomeMalformed, err)
	}

	return Success(fix)
}

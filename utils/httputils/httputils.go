// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides round trippers shared by the HTTP
// provider clients.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"
)

// LoggingRoundTripper dumps each HTTP transaction to Writer. Bodies
// are included only when DumpBody is set; long dumps are truncated so
// a trace never floods the terminal.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
}

const (
	traceMaxLines = 256
	traceMaxChars = 512
)

// prefixed trims a dump to a printable excerpt, one marker per line.
func prefixed(dump []byte, marker rune) string {
	lines := strings.Split(string(dump), "\n")
	if len(lines) > traceMaxLines {
		lines = append(lines[:traceMaxLines], "…")
	}

	for i, line := range lines {
		if len(line) > traceMaxChars {
			line = line[:traceMaxChars] + "…"
		}
		lines[i] = fmt.Sprintf("%c %s", marker, line)
	}

	return strings.Join(lines, "\n") + "\n"
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	reqDump, err := httputil.DumpRequestOut(req, t.DumpBody)
	if err != nil {
		return nil, fmt.Errorf("tracing HTTP request: %w", err)
	}
	fmt.Fprint(t.Writer, prefixed(reqDump, '>'))

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	respDump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return nil, fmt.Errorf("tracing HTTP response: %w", err)
	}
	fmt.Fprintf(t.Writer, "< RESPONSE: [%v]\n%s", time.Since(start), prefixed(respDump, '<'))

	return resp, nil
}

// AppendRequestHeadersRoundTripper adds headers to every outgoing
// request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	return t.Transport.RoundTrip(req)
}

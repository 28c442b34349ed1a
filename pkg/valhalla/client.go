// Package valhalla provides a client for the Valhalla routing engine HTTP API.
package valhalla

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/pharmalink/pharmalink/internal/model"
)

// Client defines the routing engine operations used by the trip pipeline.
type Client interface {
	// Route computes a trip along the given locations for one costing model.
	// A response with a nil Trip means the engine found no route; that is not
	// an error.
	Route(ctx context.Context, req RouteRequest) (*RouteResponse, error)
	// Status checks the engine's status endpoint.
	Status(ctx context.Context) error
}

// RouteRequest is the body of a POST /route call.
type RouteRequest struct {
	ID             string           `json:"id,omitempty"`
	Locations      []model.Location `json:"locations"`
	Costing        model.Mode       `json:"costing"`
	Units          string           `json:"units,omitempty"`
	DirectionsType string           `json:"directions_type,omitempty"`
}

// RouteResponse is the engine's answer to a route request. Trip is nil when
// the engine could not find a route for the requested costing model.
type RouteResponse struct {
	ID   string `json:"id,omitempty"`
	Trip *Trip  `json:"trip,omitempty"`
}

// Found reports whether the response carries trip data.
func (r *RouteResponse) Found() bool {
	return r != nil && r.Trip != nil
}

// Trip is the computed trip with its legs and overall summary.
type Trip struct {
	Legs    []Leg             `json:"legs"`
	Summary model.TripSummary `json:"summary"`
}

// Leg is a single leg of a trip between two consecutive locations.
type Leg struct {
	Summary model.TripSummary `json:"summary"`
}

// valhallaError is the engine's JSON error body, returned with HTTP 400 when
// no path exists between locations.
type valhallaError struct {
	ErrorCode int    `json:"error_code"`
	Error     string `json:"error"`
	Status    string `json:"status"`
}

// Error code the engine uses for "no path could be found for input".
const errCodeNoRoute = 442

// StatusError is returned for unexpected HTTP status codes, so callers can
// decide whether the failure is worth retrying.
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("valhalla: %s returned status %d", e.Endpoint, e.StatusCode)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.timeout = d
	}
}

// WithMaxConnections caps the simultaneous connections to the engine.
func WithMaxConnections(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.maxConns = n
		}
	}
}

// WithLimiter installs a rate limiter applied before every request.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	baseURL  string
	timeout  time.Duration
	maxConns int
	limiter  *rate.Limiter
	http     *http.Client
}

// NewClient creates a Valhalla client for the given base URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL:  baseURL,
		timeout:  600 * time.Second,
		maxConns: 100,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		transport := &http.Transport{
			MaxConnsPerHost:     c.maxConns,
			MaxIdleConnsPerHost: c.maxConns,
			IdleConnTimeout:     90 * time.Second,
		}
		c.http = &http.Client{
			Timeout:   c.timeout,
			Transport: transport,
		}
	}
	return c
}

// Route implements Client.
func (c *httpClient) Route(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "valhalla: rate limit")
		}
	}

	if req.Units == "" {
		req.Units = "kilometers"
	}
	if req.DirectionsType == "" {
		req.DirectionsType = "none"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "valhalla: marshal route request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/route", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "valhalla: build route request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "valhalla: route request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "valhalla: read route response")
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var routeResp RouteResponse
		if err := json.Unmarshal(respBody, &routeResp); err != nil {
			return nil, eris.Wrap(err, "valhalla: parse route response")
		}
		return &routeResp, nil

	case http.StatusBadRequest:
		// The engine answers 400 with a structured error body when no path
		// exists; surface that as an explicit no-route response.
		var vErr valhallaError
		if err := json.Unmarshal(respBody, &vErr); err == nil && vErr.ErrorCode == errCodeNoRoute {
			return &RouteResponse{ID: req.ID}, nil
		}
		return nil, eris.Errorf("valhalla: route rejected: %s", string(respBody))

	default:
		return nil, &StatusError{StatusCode: resp.StatusCode, Endpoint: "route"}
	}
}

// Status implements Client.
func (c *httpClient) Status(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return eris.Wrap(err, "valhalla: build status request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "valhalla: status request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Endpoint: "status"}
	}
	return nil
}

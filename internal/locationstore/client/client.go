// Package client talks to the location store over REST. It is the
// tracking.LocationStore used by devices and the headless tracker.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gigwork_maps/internal/tracking"
	"gigwork_maps/platform/apperr"
	"gigwork_maps/platform/config"
	"gigwork_maps/platform/geo"

	"github.com/google/uuid"
)

const defaultTimeout = 10 * time.Second

// Client implements tracking.LocationStore against the REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client from config.
func New(cfg config.LocationStoreConfig) *Client {
	timeout := cfg.GetUpstreamTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.GetLocationAPIBaseURL(), "/"),
		token:   cfg.GetLocationAPIToken(),
		http:    &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of the client that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

type updateRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type locationResponse struct {
	Latitude          *float64        `json:"latitude"`
	Longitude         *float64        `json:"longitude"`
	LocationUpdatedAt json.RawMessage `json:"locationUpdatedAt"`
}

// PublishOwn uploads the device's current position.
func (c *Client) PublishOwn(ctx context.Context, coord geo.Coordinate) error {
	if !coord.IsValid() {
		return apperr.Validation("refusing to publish an unknown position")
	}
	body, err := json.Marshal(updateRequest{Latitude: coord.Latitude, Longitude: coord.Longitude})
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPut, "/users/me/location", body)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError("publish location", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// PeerLocation reads the last published position of userID. A peer that
// never shared a location yields the sentinel coordinate and no error.
func (c *Client) PeerLocation(ctx context.Context, userID uuid.UUID) (tracking.PeerLocation, error) {
	resp, err := c.do(ctx, http.MethodGet, "/users/"+userID.String()+"/location", nil)
	if err != nil {
		return tracking.PeerLocation{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return tracking.PeerLocation{}, nil
	default:
		return tracking.PeerLocation{}, statusError("peer location", resp)
	}

	var payload locationResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return tracking.PeerLocation{}, apperr.Malformed("location store returned malformed payload", err)
	}

	loc := tracking.PeerLocation{UpdatedAt: geo.ParseFlexibleTime(payload.LocationUpdatedAt)}
	if payload.Latitude != nil && payload.Longitude != nil {
		coord := geo.Coordinate{Latitude: *payload.Latitude, Longitude: *payload.Longitude}
		if coord.IsValid() {
			loc.Coordinate = coord
		}
	}
	return loc, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Unavailable("location store unreachable", err)
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	_, _ = io.Copy(io.Discard, resp.Body)
	err := fmt.Errorf("%s: status %d", op, resp.StatusCode)
	if resp.StatusCode == http.StatusUnauthorized {
		return apperr.Wrap(apperr.KindUnauthorized, "location store rejected credentials", err)
	}
	return apperr.Unavailable("location store error", err)
}

var _ tracking.LocationStore = (*Client)(nil)

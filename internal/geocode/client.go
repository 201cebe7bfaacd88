package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gigwork_maps/platform/apperr"
	"gigwork_maps/platform/config"
	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	serviceName    = "nominatim"
	defaultTimeout = 10 * time.Second
)

var placeIDPattern = regexp.MustCompile(`^[NWR][0-9]+$`)

// Client talks to a Nominatim-compatible geocoding service.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	countryCodes string
	limit        int
	limiter      *rate.Limiter
	timeout      time.Duration
	group        singleflight.Group
	log          *logger.Logger
}

var _ Geocoder = (*Client)(nil)

// NewClient creates a geocoding client. The public Nominatim instance allows
// one request per second, so outgoing calls wait on a shared limiter.
func NewClient(cfg config.GeocodeConfig, log *logger.Logger) *Client {
	limit := rate.Inf
	if rps := cfg.GetGeocodeRatePerSecond(); rps > 0 {
		limit = rate.Limit(rps)
	}

	timeout := cfg.GetUpstreamTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		timeout:      timeout,
		baseURL:      strings.TrimRight(cfg.GetGeocodeBaseURL(), "/"),
		userAgent:    cfg.GetGeocodeUserAgent(),
		countryCodes: cfg.GetGeocodeCountryCodes(),
		limit:        cfg.GetGeocodeLimit(),
		limiter:      rate.NewLimiter(limit, 1),
		log:          log,
	}
}

// Autocomplete returns up to limit suggestions for text.
func (c *Client) Autocomplete(ctx context.Context, text string, limit int) ([]AddressSuggestion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = c.limit
	}

	key := "search:" + strconv.Itoa(limit) + ":" + strings.ToLower(text)
	places, err := c.shared(ctx, key, func(ctx context.Context) ([]nominatimPlace, error) {
		return c.search(ctx, text, limit)
	})
	if err != nil {
		return nil, err
	}

	suggestions := make([]AddressSuggestion, 0, len(places))
	for _, p := range places {
		suggestions = append(suggestions, p.toSuggestion())
	}
	return suggestions, nil
}

// Geocode resolves a free-text address to the best matching coordinate.
func (c *Client) Geocode(ctx context.Context, address string) (geo.Coordinate, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return geo.Coordinate{}, apperr.Validation("address is required")
	}

	places, err := c.shared(ctx, "geocode:"+strings.ToLower(address), func(ctx context.Context) ([]nominatimPlace, error) {
		return c.search(ctx, address, 1)
	})
	if err != nil {
		return geo.Coordinate{}, err
	}
	return firstCoordinate(places)
}

// PlaceDetails resolves a place id of the form N123, W456 or R789.
func (c *Client) PlaceDetails(ctx context.Context, placeID string) (geo.Coordinate, error) {
	placeID = strings.ToUpper(strings.TrimSpace(placeID))
	if !placeIDPattern.MatchString(placeID) {
		return geo.Coordinate{}, apperr.Validation("invalid place id")
	}

	places, err := c.shared(ctx, "lookup:"+placeID, func(ctx context.Context) ([]nominatimPlace, error) {
		params := url.Values{}
		params.Set("osm_ids", placeID)
		params.Set("format", "json")
		return c.get(ctx, "/lookup", params)
	})
	if err != nil {
		return geo.Coordinate{}, err
	}
	return firstCoordinate(places)
}

// shared coalesces identical in-flight calls. The upstream call is detached
// from any single caller's cancellation and bounded by the client timeout;
// each caller stops waiting when its own ctx is done.
func (c *Client) shared(ctx context.Context, key string, fn func(context.Context) ([]nominatimPlace, error)) ([]nominatimPlace, error) {
	ch := c.group.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return fn(callCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]nominatimPlace), nil
	}
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]nominatimPlace, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(limit))
	if c.countryCodes != "" {
		params.Set("countrycodes", c.countryCodes)
	}
	return c.get(ctx, "/search", params)
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]nominatimPlace, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperr.Unavailable("geocoding rate limit wait aborted", err)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.UpstreamFailure(serviceName, path, err)
		return nil, apperr.Unavailable("geocoding service unavailable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		c.log.Warn("nominatim throttled request", "path", path)
		return nil, apperr.Unavailable("geocoding service throttled", nil)
	default:
		err := fmt.Errorf("upstream status %d", resp.StatusCode)
		c.log.UpstreamFailure(serviceName, path, err)
		return nil, apperr.Unavailable("geocoding service unavailable", err)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		c.log.UpstreamFailure(serviceName, path, err)
		return nil, apperr.Malformed("unexpected geocoding payload", err)
	}
	return places, nil
}

func firstCoordinate(places []nominatimPlace) (geo.Coordinate, error) {
	if len(places) == 0 {
		return geo.Coordinate{}, ErrNoResult
	}
	coord, err := places[0].coordinate()
	if err != nil {
		return geo.Coordinate{}, apperr.Malformed("unparseable geocoding coordinate", err)
	}
	return coord, nil
}

type nominatimAddress struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	Suburb      string `json:"suburb"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	Postcode    string `json:"postcode"`
}

// nominatimPlace mirrors the relevant parts of the search and lookup payloads.
type nominatimPlace struct {
	PlaceID     int64            `json:"place_id"`
	OSMType     string           `json:"osm_type"`
	OSMID       int64            `json:"osm_id"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	DisplayName string           `json:"display_name"`
	Address     nominatimAddress `json:"address"`
}

func (p nominatimPlace) coordinate() (geo.Coordinate, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	coord := geo.Coordinate{Latitude: lat, Longitude: lon}
	if !coord.IsValid() {
		return geo.Coordinate{}, fmt.Errorf("coordinate out of range: %v,%v", lat, lon)
	}
	return coord, nil
}

// osmRef builds the lookup id (N/W/R prefix plus OSM id).
func (p nominatimPlace) osmRef() string {
	if p.OSMType == "" || p.OSMID == 0 {
		return ""
	}
	return strings.ToUpper(p.OSMType[:1]) + strconv.FormatInt(p.OSMID, 10)
}

func (p nominatimPlace) toSuggestion() AddressSuggestion {
	s := AddressSuggestion{
		ShortAddress: shortAddress(p),
		FullAddress:  p.DisplayName,
		PlaceID:      p.osmRef(),
	}
	if p.PlaceID != 0 {
		s.ID = strconv.FormatInt(p.PlaceID, 10)
	} else {
		s.ID = uuid.NewString()
	}
	if coord, err := p.coordinate(); err == nil {
		s.Coordinate = &coord
	}
	return s
}

func shortAddress(p nominatimPlace) string {
	if p.Address.Road != "" {
		return strings.TrimSpace(p.Address.HouseNumber + " " + p.Address.Road)
	}
	first, _, _ := strings.Cut(p.DisplayName, ",")
	return strings.TrimSpace(first)
}

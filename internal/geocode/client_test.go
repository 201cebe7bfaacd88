package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gigwork_maps/platform/apperr"
	"gigwork_maps/platform/logger"
)

type testConfig struct {
	baseURL string
}

func (c testConfig) GetGeocodeBaseURL() string         { return c.baseURL }
func (c testConfig) GetGeocodeUserAgent() string       { return "GigworkMapsTest/1.0" }
func (c testConfig) GetGeocodeCountryCodes() string    { return "vn" }
func (c testConfig) GetGeocodeLimit() int              { return 5 }
func (c testConfig) GetGeocodeRatePerSecond() float64  { return 0 }
func (c testConfig) GetGeocodeCacheTTL() time.Duration { return time.Hour }
func (c testConfig) GetUpstreamTimeout() time.Duration { return 2 * time.Second }

const searchPayload = `[
  {"place_id": 101, "osm_type": "node", "osm_id": 555, "lat": "10.7769", "lon": "106.7009",
   "display_name": "12, Nguyễn Huệ, Bến Nghé, Quận 1, Hồ Chí Minh, Việt Nam",
   "address": {"house_number": "12", "road": "Nguyễn Huệ", "city": "Hồ Chí Minh"}},
  {"place_id": 0, "osm_type": "way", "osm_id": 777, "lat": "10.78", "lon": "106.69",
   "display_name": "Chợ Bến Thành, Quận 1, Hồ Chí Minh", "address": {}}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(testConfig{baseURL: srv.URL}, logger.Nop())
}

func TestAutocompleteBuildsSuggestions(t *testing.T) {
	var gotUA, gotCountry, gotLimit string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotUA = r.Header.Get("User-Agent")
		gotCountry = r.URL.Query().Get("countrycodes")
		gotLimit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(searchPayload))
	})

	suggestions, err := client.Autocomplete(context.Background(), "nguyen hue", 3)
	if err != nil {
		t.Fatalf("Autocomplete returned error: %v", err)
	}
	if gotUA != "GigworkMapsTest/1.0" || gotCountry != "vn" || gotLimit != "3" {
		t.Fatalf("unexpected request ua=%q country=%q limit=%q", gotUA, gotCountry, gotLimit)
	}
	if len(suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(suggestions))
	}

	first := suggestions[0]
	if first.ID != "101" || first.PlaceID != "N555" || first.ShortAddress != "12 Nguyễn Huệ" {
		t.Fatalf("unexpected first suggestion %+v", first)
	}
	if first.Coordinate == nil || first.Coordinate.Latitude != 10.7769 {
		t.Fatalf("expected coordinate on first suggestion, got %+v", first.Coordinate)
	}

	second := suggestions[1]
	if second.ID == "" || second.PlaceID != "W777" || second.ShortAddress != "Chợ Bến Thành" {
		t.Fatalf("unexpected second suggestion %+v", second)
	}
}

func TestPlaceDetailsUsesLookup(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lookup" || r.URL.Query().Get("osm_ids") != "N555" {
			t.Errorf("unexpected lookup request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`[{"lat": "10.7769", "lon": "106.7009"}]`))
	})

	coord, err := client.PlaceDetails(context.Background(), "n555")
	if err != nil {
		t.Fatalf("PlaceDetails returned error: %v", err)
	}
	if coord.Longitude != 106.7009 {
		t.Fatalf("unexpected coordinate %+v", coord)
	}
}

func TestPlaceDetailsRejectsUnknownFormat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected for invalid place id")
	})

	_, err := client.PlaceDetails(context.Background(), "ChIJ123")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGeocodeErrorKinds(t *testing.T) {
	cases := []struct {
		name string
		body string
		code int
		want func(error) bool
	}{
		{"empty", `[]`, http.StatusOK, func(err error) bool { return errors.Is(err, ErrNoResult) }},
		{"server error", ``, http.StatusInternalServerError, func(err error) bool { return apperr.Is(err, apperr.KindUnavailable) }},
		{"bad json", `{"oops":`, http.StatusOK, func(err error) bool { return apperr.Is(err, apperr.KindMalformed) }},
		{"bad coordinate", `[{"lat":"abc","lon":"1"}]`, http.StatusOK, func(err error) bool { return apperr.Is(err, apperr.KindMalformed) }},
		{"sentinel coordinate", `[{"lat":"0","lon":"0"}]`, http.StatusOK, func(err error) bool { return apperr.Is(err, apperr.KindMalformed) }},
	}

	for _, tc := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.code)
			_, _ = w.Write([]byte(tc.body))
		})

		_, err := client.Geocode(context.Background(), "somewhere")
		if !tc.want(err) {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}
}

func TestGeocodeRequiresAddress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected")
	})
	if _, err := client.Geocode(context.Background(), "   "); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	var requests atomic.Int32
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		arrived <- struct{}{}
		<-release
		_, _ = w.Write([]byte(searchPayload))
	})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := client.Autocomplete(ctxA, "nguyen hue", 5)
		errA <- err
	}()
	<-arrived

	type result struct {
		n   int
		err error
	}
	resB := make(chan result, 1)
	go func() {
		s, err := client.Autocomplete(context.Background(), "Nguyen Hue", 5)
		resB <- result{len(s), err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancelled caller to see context.Canceled, got %v", err)
	}

	close(release)
	got := <-resB
	if got.err != nil || got.n != 2 {
		t.Fatalf("expected 2 suggestions for the waiting caller, got %d err=%v", got.n, got.err)
	}
	if n := requests.Load(); n != 1 {
		t.Fatalf("expected one upstream request, got %d", n)
	}
}

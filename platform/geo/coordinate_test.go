package geo

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestCoordinateValidity(t *testing.T) {
	cases := []struct {
		name  string
		coord Coordinate
		valid bool
	}{
		{"sentinel", Coordinate{}, false},
		{"zero latitude", Coordinate{Latitude: 0, Longitude: 105.8}, false},
		{"zero longitude", Coordinate{Latitude: 21.0, Longitude: 0}, false},
		{"out of range latitude", Coordinate{Latitude: 91, Longitude: 105.8}, false},
		{"out of range longitude", Coordinate{Latitude: 21, Longitude: 181}, false},
		{"nan", Coordinate{Latitude: math.NaN(), Longitude: 105.8}, false},
		{"hanoi", Coordinate{Latitude: 21.0285, Longitude: 105.8542}, true},
		{"southern hemisphere", Coordinate{Latitude: -33.86, Longitude: 151.2}, true},
	}

	for _, tc := range cases {
		if got := tc.coord.IsValid(); got != tc.valid {
			t.Fatalf("%s: expected valid=%v, got %v", tc.name, tc.valid, got)
		}
	}
}

func TestBoundsSkipsSentinel(t *testing.T) {
	cs := []Coordinate{
		{Latitude: 10.77, Longitude: 106.70},
		{},
		{Latitude: 10.80, Longitude: 106.65},
	}

	bound, ok := Bounds(cs)
	if !ok {
		t.Fatalf("expected bounds for two valid coordinates")
	}
	box := NewBoundBox(bound)
	if box.SouthWest.Latitude != 10.77 || box.NorthEast.Latitude != 10.80 {
		t.Fatalf("unexpected latitude span %+v", box)
	}
	if box.SouthWest.Longitude != 106.65 || box.NorthEast.Longitude != 106.70 {
		t.Fatalf("unexpected longitude span %+v", box)
	}
	if box.Contains(Coordinate{}) {
		t.Fatalf("sentinel must not fall inside bounds of real coordinates")
	}
}

func TestBoundsWithOnlySentinels(t *testing.T) {
	if _, ok := Bounds([]Coordinate{{}, {}}); ok {
		t.Fatalf("expected no bounds when every coordinate is the sentinel")
	}
}

func TestCentroid(t *testing.T) {
	c, ok := Centroid([]Coordinate{
		{Latitude: 10, Longitude: 100},
		{Latitude: 20, Longitude: 110},
		{},
	})
	if !ok {
		t.Fatalf("expected centroid")
	}
	if !ApproxEqual(c, Coordinate{Latitude: 15, Longitude: 105}, 1e-9) {
		t.Fatalf("unexpected centroid %+v", c)
	}
}

func TestDistanceMeters(t *testing.T) {
	hanoi := Coordinate{Latitude: 21.0285, Longitude: 105.8542}
	hcmc := Coordinate{Latitude: 10.8231, Longitude: 106.6297}

	d := DistanceMeters(hanoi, hcmc)
	if d < 1_130_000 || d > 1_150_000 {
		t.Fatalf("expected roughly 1140km, got %.0fm", d)
	}
}

func TestParseTimestampUnitConvention(t *testing.T) {
	seconds := ParseTimestamp(1_700_000_000)
	if seconds.Unix() != 1_700_000_000 {
		t.Fatalf("expected seconds interpretation, got %v", seconds)
	}

	millis := ParseTimestamp(1_700_000_000_000)
	if millis.Unix() != 1_700_000_000 {
		t.Fatalf("expected milliseconds interpretation, got %v", millis)
	}

	if !ParseTimestamp(0).IsZero() {
		t.Fatalf("expected zero time for zero input")
	}
}

func TestParseFlexibleTime(t *testing.T) {
	want := time.Unix(1_700_000_000, 0).UTC()

	inputs := []string{
		`1700000000`,
		`1700000000000`,
		`"1700000000"`,
		`"2023-11-14T22:13:20Z"`,
	}
	for _, in := range inputs {
		got := ParseFlexibleTime(json.RawMessage(in))
		if !got.Equal(want) {
			t.Fatalf("input %s: expected %v, got %v", in, want, got)
		}
	}

	if !ParseFlexibleTime(json.RawMessage(`null`)).IsZero() {
		t.Fatalf("expected zero time for null")
	}
	if !ParseFlexibleTime(json.RawMessage(`"not a time"`)).IsZero() {
		t.Fatalf("expected zero time for garbage")
	}
}

func TestParseTimestampRejectsNonFiniteAndHugeValues(t *testing.T) {
	for _, v := range []float64{math.Inf(1), math.Inf(-1), math.NaN(), 1e30, MaxMillis + 1} {
		if got := ParseTimestamp(v); !got.IsZero() {
			t.Fatalf("ParseTimestamp(%v) = %v, want zero time", v, got)
		}
	}
	for _, in := range []string{`"Inf"`, `"+Inf"`, `"NaN"`, `"1e30"`} {
		if got := ParseFlexibleTime(json.RawMessage(in)); !got.IsZero() {
			t.Fatalf("ParseFlexibleTime(%s) = %v, want zero time", in, got)
		}
	}
	if got := ParseTimestamp(MaxMillis); got.Year() != 9999 {
		t.Fatalf("expected the upper bound to parse, got %v", got)
	}
}

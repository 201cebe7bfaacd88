package geo

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// SecondsThreshold separates epoch seconds from epoch milliseconds. Location
// payloads carry no unit, so a numeric value below 1e11 is read as seconds
// and anything else as milliseconds.
const SecondsThreshold = 1e11

// MaxMillis is 9999-12-31T23:59:59.999Z; larger values are not timestamps.
const MaxMillis = 253402300799999

// ParseTimestamp converts a unitless epoch number into a time.
// Zero, negative, non-finite and out-of-range values yield the zero time.
func ParseTimestamp(v float64) time.Time {
	if math.IsNaN(v) || v <= 0 || v > MaxMillis {
		return time.Time{}
	}
	if v < SecondsThreshold {
		sec := int64(v)
		nsec := int64((v - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC()
	}
	return time.UnixMilli(int64(v)).UTC()
}

// ParseFlexibleTime accepts a JSON number, a numeric string or an RFC3339
// string. Null, empty and unparseable values yield the zero time.
func ParseFlexibleTime(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return ParseTimestamp(num)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return time.Time{}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}
	}
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return ParseTimestamp(n)
	}
	if t, err := time.Parse(time.RFC3339Nano, text); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

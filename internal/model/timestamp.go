package model

import (
	"bytes"
	"strconv"
	"time"

	"github.com/kart-io/catalog-console/pkg/utils/json"
)

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp is a leniently parsed point in time.
//
// The catalog service may emit RFC3339 strings, zone-less local date-times or
// epoch milliseconds. Values that match none of them are kept in Raw so they
// can still be displayed; they never fail decoding of the enclosing object.
type Timestamp struct {
	Time time.Time
	Raw  string
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp parses v with the accepted layouts, falling back to Raw.
func ParseTimestamp(v string) Timestamp {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return Timestamp{Time: t}
		}
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return Timestamp{Time: time.UnixMilli(ms).UTC()}
	}
	return Timestamp{Raw: v}
}

// IsZero reports whether the timestamp carries neither a time nor a raw value.
func (t Timestamp) IsZero() bool {
	return t.Time.IsZero() && t.Raw == ""
}

// String formats the time as RFC3339, or returns the raw value when unparsed.
func (t Timestamp) String() string {
	if t.Time.IsZero() {
		return t.Raw
	}
	return t.Time.Format(time.RFC3339)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	switch {
	case !t.Time.IsZero():
		return json.Marshal(t.Time.Format(time.RFC3339Nano))
	case t.Raw != "":
		return json.Marshal(t.Raw)
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	if data[0] != '"' {
		*t = ParseTimestamp(string(data))
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == "" {
		*t = Timestamp{}
		return nil
	}
	*t = ParseTimestamp(v)
	return nil
}

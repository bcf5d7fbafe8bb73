package analytics

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// dateLayouts are tried in order. Layouts without an offset are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

var errBadDate = errors.New("unrecognized date-time")

// ParseDateTime parses the date-time forms accepted on query strings and
// ingestion payloads.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errBadDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errBadDate
}

// DecodeTimestamp reads the timestamp of an ingestion payload. It accepts a
// date-time string in any ParseDateTime form or a number of milliseconds since
// the Unix epoch. An absent, null or empty value yields the zero time.
func DecodeTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, errBadDate
		}
		if strings.TrimSpace(s) == "" {
			return time.Time{}, nil
		}
		return ParseDateTime(s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return time.Time{}, errBadDate
	}
	ms, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return time.Time{}, errBadDate
		}
		ms = int64(f)
	}
	return time.UnixMilli(ms).UTC(), nil
}

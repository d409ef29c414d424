package records

import (
	"encoding/json"
	"time"
)

type dateKind int

const (
	zoned dateKind = iota
	naive
	dateOnly
)

// dateLayouts are tried in order. The first layout that parses wins.
var dateLayouts = []struct {
	layout string
	kind   dateKind
}{
	{time.RFC3339, zoned},
	{"2006-01-02T15:04:05Z0700", zoned},
	{"2006-01-02 15:04:05Z07:00", zoned},
	{"2006-01-02T15:04:05", naive},
	{"2006-01-02 15:04:05", naive},
	{"2006-01-02T15:04", naive},
	{"2006-01-02", dateOnly},
	{"January 2, 2006 3:04 PM", naive},
	{"January 2, 2006 3:04 pm", naive},
	{"January 2, 2006", dateOnly},
	{"Jan 2, 2006", dateOnly},
	{"Jan. 2, 2006", dateOnly},
	{"2 January 2006", dateOnly},
	{"1/2/2006", dateOnly},
}

// Date is a publication date. It holds either a parsed instant or, when no
// known layout matched, the raw text exactly as found on the page.
type Date struct {
	t    time.Time
	kind dateKind
	raw  string
}

// ParseDate normalizes a date string. It returns nil for blank input and a
// raw (unparsed) Date when none of the layouts match.
func ParseDate(s string) *Date {
	s = CleanText(s)
	if s == "" {
		return nil
	}

	for _, l := range dateLayouts {
		t, err := time.Parse(l.layout, s)
		if err == nil {
			return &Date{t: t, kind: l.kind}
		}
	}

	return &Date{raw: s}
}

// NewDate wraps an already parsed instant.
func NewDate(t time.Time) *Date {
	return &Date{t: t, kind: zoned}
}

// Time returns the parsed instant. ok is false for raw dates.
func (d Date) Time() (t time.Time, ok bool) {
	if d.raw != "" {
		return time.Time{}, false
	}
	return d.t, true
}

// Parsed reports whether the date was recognized by one of the layouts.
func (d Date) Parsed() bool {
	return d.raw == ""
}

// String returns the ISO-8601 form of a parsed date, or the raw text.
func (d Date) String() string {
	if d.raw != "" {
		return d.raw
	}

	switch d.kind {
	case dateOnly:
		return d.t.Format("2006-01-02")
	case naive:
		return d.t.Format("2006-01-02T15:04:05")
	default:
		return d.t.Format(time.RFC3339Nano)
	}
}

// Short returns a YYYY-MM-DD rendering for display, or the raw text.
func (d Date) Short() string {
	if d.raw != "" {
		return d.raw
	}
	return d.t.Format("2006-01-02")
}

// MarshalJSON encodes the date as a JSON string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON re-parses a stored date string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed := ParseDate(s)
	if parsed == nil {
		*d = Date{}
		return nil
	}
	*d = *parsed
	return nil
}

// Equal reports whether two dates carry the same instant or raw text.
func (d Date) Equal(other Date) bool {
	if d.raw != "" || other.raw != "" {
		return d.raw == other.raw
	}
	return d.t.Equal(other.t)
}

package tablequery

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultDateLayout is the timestamp layout the record service expects.
const DefaultDateLayout = "2006-01-02 15:04:05"

// date inputs accepted from grid date pickers and query strings
var dateInputLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// Converter coerces raw filter values according to their declared type.
// The zero value formats dates with DefaultDateLayout in UTC.
type Converter struct {
	DateLayout string
	Location   *time.Location
}

// Convert coerces v with the zero Converter.
func Convert(t FieldType, v any) any {
	return Converter{}.Convert(t, v)
}

// Convert never fails: unparseable numbers become 0, unknown boolean strings
// and unparseable dates are returned unchanged.
func (c Converter) Convert(t FieldType, v any) any {
	switch t {
	case TypeNumber:
		return toNumber(v)
	case TypeBoolean:
		if s, ok := v.(string); ok {
			switch s {
			case "true":
				return true
			case "false":
				return false
			}
		}
		return v
	case TypeDate:
		return c.formatDate(v)
	}
	return v
}

func toNumber(v any) float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case json.Number:
		return parseNumber(n.String())
	case string:
		return parseNumber(n)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func (c Converter) formatDate(v any) any {
	layout := c.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}
	t, ok := c.ParseDate(v)
	if !ok {
		return v
	}
	return t.Format(layout)
}

// ParseDate reads v as a point in time in the converter's location. Strings
// are tried against DateLayout first, then the usual date picker layouts.
func (c Converter) ParseDate(v any) (time.Time, bool) {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	switch d := v.(type) {
	case time.Time:
		return d.In(loc), true
	case *time.Time:
		if d == nil {
			return time.Time{}, false
		}
		return d.In(loc), true
	case string:
		s := strings.TrimSpace(d)
		if c.DateLayout != "" {
			if t, err := time.ParseInLocation(c.DateLayout, s, loc); err == nil {
				return t, true
			}
		}
		for _, in := range dateInputLayouts {
			if t, err := time.ParseInLocation(in, s, loc); err == nil {
				return t.In(loc), true
			}
		}
	}
	return time.Time{}, false
}

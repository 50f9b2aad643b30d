package tablequery

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"GatewayAdmin/internal/logger"
)

// QueryDescriptor is what a list call sends to the record service.
type QueryDescriptor struct {
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
	SortField     *string        `json:"sort_field"`
	SortDirection *SortDirection `json:"sort_direction"`
	// Filters is a JSON-encoded []Predicate.
	Filters string `json:"filters"`
}

// Predicates decodes the Filters field.
func (q QueryDescriptor) Predicates() ([]Predicate, error) {
	return DecodePredicates(q.Filters)
}

// Values renders q as request query parameters. Null sort values are omitted.
func (q QueryDescriptor) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.SortField != nil {
		v.Set("sort_field", *q.SortField)
	}
	if q.SortDirection != nil {
		v.Set("sort_direction", string(*q.SortDirection))
	}
	filters := q.Filters
	if filters == "" {
		filters = "[]"
	}
	v.Set("filters", filters)
	return v
}

// ParseQuery reads a descriptor back from query parameters.
// Missing or non-positive page/limit fall back to 1 and 10. The filters
// parameter must hold a JSON predicate array when present.
func ParseQuery(v url.Values) (QueryDescriptor, error) {
	q := QueryDescriptor{
		Page:    positiveInt(v.Get("page"), 1),
		Limit:   positiveInt(v.Get("limit"), defaultLimit),
		Filters: "[]",
	}
	if f := strings.TrimSpace(v.Get("sort_field")); f != "" {
		q.SortField = &f
	}
	switch d := SortDirection(strings.ToUpper(strings.TrimSpace(v.Get("sort_direction")))); d {
	case SortAsc, SortDesc:
		q.SortDirection = &d
	case "":
	default:
		return q, fmt.Errorf("invalid sort_direction %q", d)
	}
	if raw := strings.TrimSpace(v.Get("filters")); raw != "" {
		if _, err := DecodePredicates(raw); err != nil {
			return q, err
		}
		q.Filters = raw
	}
	return q, nil
}

// EncodePredicates serializes preds as a JSON array; nil encodes as [].
// A predicate whose value cannot be encoded is dropped.
func EncodePredicates(preds []Predicate) string {
	if len(preds) == 0 {
		return "[]"
	}
	data, err := json.Marshal(preds)
	if err == nil {
		return string(data)
	}
	kept := make([]json.RawMessage, 0, len(preds))
	for _, p := range preds {
		one, err := json.Marshal(p)
		if err != nil {
			logger.Warn("predicate_dropped", map[string]any{
				"field":      p.Field,
				"match_mode": p.MatchMode,
				"error":      err.Error(),
			})
			continue
		}
		kept = append(kept, one)
	}
	data, _ = json.Marshal(kept)
	return string(data)
}

// DecodePredicates parses a JSON predicate array. Empty input yields an empty list.
func DecodePredicates(s string) ([]Predicate, error) {
	preds := []Predicate{}
	if strings.TrimSpace(s) == "" {
		return preds, nil
	}
	if err := json.Unmarshal([]byte(s), &preds); err != nil {
		return nil, fmt.Errorf("invalid filters: %w", err)
	}
	if preds == nil {
		preds = []Predicate{}
	}
	return preds, nil
}

func positiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

package tablequery

import "testing"

func TestToUpperSnake(t *testing.T) {
	cases := map[string]string{
		"startsWith":  "STARTS_WITH",
		"contains":    "CONTAINS",
		"notContains": "NOT_CONTAINS",
		"dateIsNot":   "DATE_IS_NOT",
		"lte":         "LTE",
		"":            "",
		"STARTS_WITH": "STARTS_WITH",
	}
	for in, want := range cases {
		if got := ToUpperSnake(in); got != want {
			t.Errorf("ToUpperSnake(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToUpperSnakeIdempotent(t *testing.T) {
	modes := []MatchMode{
		MatchStartsWith, MatchContains, MatchNotContains, MatchEndsWith, MatchEquals,
		MatchNotEquals, MatchIn, MatchLessThan, MatchLessThanOrEqual, MatchGreaterThan,
		MatchGreaterThanOrEqual, MatchBetween, MatchDateIs, MatchDateIsNot, MatchDateBefore, MatchDateAfter,
	}
	for _, m := range modes {
		once := ToUpperSnake(string(m))
		if twice := ToUpperSnake(once); twice != once {
			t.Errorf("%s: %q != %q", m, once, twice)
		}
	}
}

func TestCamelToSnake(t *testing.T) {
	cases := map[string]string{
		"connectionReadTimeout": "connection_read_timeout",
		"whitelistIp":           "whitelist_ip",
		"route2Id":              "route2_id",
		"id":                    "id",
	}
	for in, want := range cases {
		if got := CamelToSnake(in); got != want {
			t.Errorf("CamelToSnake(%q) = %q, want %q", in, got, want)
		}
	}
}

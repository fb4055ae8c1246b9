package sts

import (
	"testing"
	"time"
)

func TestSafeFloat(t *testing.T) {
	cases := []struct {
		in   interface{}
		want float64
	}{
		{42.5, 42.5},
		{7, 7},
		{"53.10", 53.10},
		{"53,10", 53.10},
		{" 12 ", 12},
		{"", 0},
		{"abc", 0},
		{true, 1},
		{false, 0},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := SafeFloat(tc.in); got != tc.want {
			t.Errorf("SafeFloat(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSafeString(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{"  hello ", "hello"},
		{3.0, "3"},
		{3.5, "3.5"},
		{7, "7"},
		{true, "true"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := SafeString(tc.in); got != tc.want {
			t.Errorf("SafeString(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseSTSTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2026-08-15T10:30:00Z", time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)},
		{"2026-08-15T10:30:00", time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)},
		{"2026-08-15 10:30:00", time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)},
		{"15.08.2026 10:30:00", time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)},
		{"15.08.2026", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"2026-08-15", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"0001-01-01T00:00:00", time.Time{}},
		{"not a date", time.Time{}},
	}
	for _, tc := range cases {
		if got := ParseSTSTime(tc.in); !got.Equal(tc.want) {
			t.Errorf("ParseSTSTime(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseNumericID(t *testing.T) {
	cases := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"7", "7", true},
		{" 7 ", "7", true},
		{"03", "3", true},
		{"-1", "-1", true},
		{"", "", false},
		{"abc", "", false},
		{"7a", "", false},
		{"7.5", "", false},
	}
	for _, tc := range cases {
		got, ok := parseNumericID(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("parseNumericID(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestDecodeObjects(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"array", `[{"id":1},{"id":2}]`, 2},
		{"data wrapper", `{"data":[{"id":1}]}`, 1},
		{"items wrapper", `{"items":[{"id":1},{"id":2},{"id":3}]}`, 3},
		{"result wrapper", `{"result":[{"id":1}]}`, 1},
		{"bare object", `{"id":1}`, 1},
		{"empty array", `[]`, 0},
		{"empty body", ``, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, err := decodeObjects([]byte(tc.body))
			if err != nil {
				t.Fatalf("decodeObjects failed: %v", err)
			}
			if len(items) != tc.want {
				t.Errorf("len = %d, want %d", len(items), tc.want)
			}
		})
	}
}

func TestGetStringPriorityOrder(t *testing.T) {
	obj := map[string]interface{}{
		"name":  "",
		"title": "fallback",
	}
	if got := getString(obj, "name", "title"); got != "fallback" {
		t.Errorf("getString = %q, want empty first candidate skipped", got)
	}

	obj["name"] = "primary"
	if got := getString(obj, "name", "title"); got != "primary" {
		t.Errorf("getString = %q, want first candidate", got)
	}
}

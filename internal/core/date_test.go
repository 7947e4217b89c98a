package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	if err := NewDate(2025, 1, 15).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Date{Time: time.Time{}}).Validate(); err == nil {
		t.Fatalf("expected error for zero date")
	}
}

func TestDateAddMonths(t *testing.T) {
	cases := []struct {
		in   Date
		n    int
		want Date
	}{
		{NewDate(2025, 1, 15), 1, NewDate(2025, 2, 15)},
		{NewDate(2025, 1, 15), 2, NewDate(2025, 3, 15)},
		{NewDate(2025, 11, 15), 2, NewDate(2026, 1, 15)}, // year boundary
		{NewDate(2025, 1, 31), 1, NewDate(2025, 3, 3)},   // Feb has 28 days, rolls forward
		{NewDate(2024, 1, 31), 1, NewDate(2024, 3, 2)},   // leap year Feb has 29
		{NewDate(2025, 1, 31), 2, NewDate(2025, 3, 31)},  // offsets from base, not chained
		{NewDate(2025, 3, 31), 1, NewDate(2025, 5, 1)},   // April has 30 days
		{NewDate(2025, 6, 15), 0, NewDate(2025, 6, 15)},
	}
	for i, tc := range cases {
		got := tc.in.AddMonths(tc.n)
		if !got.Equal(tc.want) {
			t.Fatalf("case %d: %s + %d months = %s, want %s", i, tc.in, tc.n, got, tc.want)
		}
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2025, 7, 31)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2025-07-31"` {
		t.Fatalf("expected calendar value, got %s", data)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d) {
		t.Fatalf("round trip changed date: %s != %s", back, d)
	}
}

func TestDateUnmarshalRejectsTimestamps(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2025-07-31T12:00:00Z"`), &d); err == nil {
		t.Fatalf("expected error for timestamp form")
	}
}

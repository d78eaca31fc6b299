package model

import (
	"reflect"
	"testing"
)

func TestSeatSet_RoundTrip(t *testing.T) {
	t.Parallel()

	large := make([]int, 0, 5000)
	for i := 4999; i >= 0; i-- {
		large = append(large, i)
	}

	tests := []struct {
		name string
		in   SeatSet
	}{
		{name: "empty", in: NewSeatSet()},
		{name: "singleton", in: NewSeatSet(3)},
		{name: "large", in: NewSeatSet(large...)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := DecodeSeatSet([]byte(tt.in.Encode()))
			if !reflect.DeepEqual(got, tt.in) {
				t.Fatalf("round trip mismatch: got %d seats, want %d", len(got), len(tt.in))
			}
		})
	}
}

func TestNewSeatSet_Normalizes(t *testing.T) {
	t.Parallel()

	got := NewSeatSet(5, 1, 5, 3, 1)
	want := SeatSet{1, 3, 5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if !got.Contains(3) || got.Contains(2) {
		t.Fatalf("unexpected membership for %v", got)
	}
}

func TestDecodeSeatSet_Degrades(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "null", "not json", `{"a":1}`, `["A1","A2"]`} {
		got := DecodeSeatSet([]byte(raw))
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty set for %q, got %v", raw, got)
		}
	}
}

func TestSeatSet_Scan(t *testing.T) {
	t.Parallel()

	var s SeatSet
	if err := s.Scan([]byte("[2,1]")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(s, SeatSet{1, 2}) {
		t.Fatalf("expected [1 2], got %v", s)
	}
	if err := s.Scan(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != 0 {
		t.Fatalf("expected NULL to scan as empty set, got %v", s)
	}
	if err := s.Scan("{broken"); err != nil {
		t.Fatalf("malformed value must not fail the scan: %v", err)
	}
}

func TestSeatSet_MarshalJSON(t *testing.T) {
	t.Parallel()

	var s SeatSet
	b, err := s.MarshalJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "[]" {
		t.Fatalf("expected [], got %s", b)
	}
}

package model

import (
	"database/sql/driver"
	"encoding/json"
	"sort"
)

// SeatSet is a set of seat indices kept sorted and free of duplicates.
// It is persisted as a JSON array in bookings.seats.
type SeatSet []int

// NewSeatSet builds a normalized set from the given indices.
func NewSeatSet(indices ...int) SeatSet {
	out := make(SeatSet, 0, len(indices))
	seen := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Contains reports whether idx is a member of the set.
func (s SeatSet) Contains(idx int) bool {
	i := sort.SearchInts(s, idx)
	return i < len(s) && s[i] == idx
}

// Encode serializes the set as a JSON array.  The empty set encodes as "[]".
func (s SeatSet) Encode() string {
	if len(s) == 0 {
		return "[]"
	}
	b, _ := json.Marshal([]int(NewSeatSet(s...)))
	return string(b)
}

// DecodeSeatSet parses a persisted seat array.  Absent or malformed input
// yields the empty set so that a single bad column never fails a read.
func DecodeSeatSet(raw []byte) SeatSet {
	if len(raw) == 0 {
		return SeatSet{}
	}
	var indices []int
	if err := json.Unmarshal(raw, &indices); err != nil {
		return SeatSet{}
	}
	return NewSeatSet(indices...)
}

// Value implements driver.Valuer.
func (s SeatSet) Value() (driver.Value, error) {
	return s.Encode(), nil
}

// Scan implements sql.Scanner.  It never returns an error: NULL and
// unparseable values degrade to the empty set.
func (s *SeatSet) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		*s = DecodeSeatSet(v)
	case string:
		*s = DecodeSeatSet([]byte(v))
	default:
		*s = SeatSet{}
	}
	return nil
}

// MarshalJSON renders a nil set as [] rather than null.
func (s SeatSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int(s))
}

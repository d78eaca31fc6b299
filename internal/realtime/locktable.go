package realtime

import "sort"

// LockResult is the outcome of LockTable.Lock.
type LockResult int

const (
	LockApplied LockResult = iota + 1
	LockRejected
)

func (r LockResult) String() string {
	switch r {
	case LockApplied:
		return "applied"
	case LockRejected:
		return "rejected"
	}
	return "unknown"
}

type lockEntry struct {
	holder string
	conn   string // connection that acquired the lock
}

// LockTable maps event id -> seat index -> holder.  It holds advisory
// state only and is not safe for concurrent use; the Hub owns it and
// calls it from a single goroutine.
type LockTable struct {
	events map[uint64]map[int]lockEntry
}

func NewLockTable() *LockTable {
	return &LockTable{events: make(map[uint64]map[int]lockEntry)}
}

// Snapshot returns a copy of the event's locks.  The map is never nil.
func (t *LockTable) Snapshot(eventID uint64) map[int]string {
	seats := t.events[eventID]
	out := make(map[int]string, len(seats))
	for idx, e := range seats {
		out[idx] = e.holder
	}
	return out
}

// Holder returns the current holder of a seat.
func (t *LockTable) Holder(eventID uint64, seat int) (string, bool) {
	e, ok := t.events[eventID][seat]
	return e.holder, ok
}

// Lock applies only when the seat is free.  A seat already held, even
// by the same holder, is rejected.  Malformed input is rejected without
// touching state.
func (t *LockTable) Lock(eventID uint64, seat int, holder, conn string) LockResult {
	if eventID == 0 || seat < 0 || holder == "" {
		return LockRejected
	}
	seats := t.events[eventID]
	if seats == nil {
		seats = make(map[int]lockEntry)
		t.events[eventID] = seats
	}
	if _, held := seats[seat]; held {
		return LockRejected
	}
	seats[seat] = lockEntry{holder: holder, conn: conn}
	return LockApplied
}

// Unlock removes a lock and reports whether one was removed.  With
// strict set, only the acquiring connection or a caller presenting the
// same holder id may remove it.
func (t *LockTable) Unlock(eventID uint64, seat int, holder, conn string, strict bool) bool {
	seats := t.events[eventID]
	e, ok := seats[seat]
	if !ok {
		return false
	}
	if strict && e.conn != conn && (holder == "" || e.holder != holder) {
		return false
	}
	t.remove(eventID, seat)
	return true
}

// Release removes the given seats regardless of holder and returns the
// indices that were actually held, ascending.
func (t *LockTable) Release(eventID uint64, seats []int) []int {
	var out []int
	for _, s := range seats {
		if _, ok := t.events[eventID][s]; ok {
			t.remove(eventID, s)
			out = append(out, s)
		}
	}
	sort.Ints(out)
	return out
}

// ReleaseConn drops every lock acquired by conn and returns them per
// event, seat indices ascending.
func (t *LockTable) ReleaseConn(conn string) map[uint64][]int {
	out := make(map[uint64][]int)
	for eventID, seats := range t.events {
		for idx, e := range seats {
			if e.conn == conn {
				out[eventID] = append(out[eventID], idx)
			}
		}
	}
	for eventID, idxs := range out {
		sort.Ints(idxs)
		for _, idx := range idxs {
			t.remove(eventID, idx)
		}
	}
	return out
}

func (t *LockTable) remove(eventID uint64, seat int) {
	seats := t.events[eventID]
	delete(seats, seat)
	if len(seats) == 0 {
		delete(t.events, eventID)
	}
}

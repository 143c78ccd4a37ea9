// database.go — append-only, capacity-bounded ring of Records.
//
// Ids are strictly increasing in arrival order; the live set is always
// a contiguous id interval [minID, maxID]; a full buffer evicts the
// smallest id on the next append. Exclusively owned and mutated by one
// goroutine (the server's event loop, see internal/pondserver) — no
// locking here, per spec.
package store

import (
	"errors"
	"time"

	"github.com/check-spelling/pond/internal/record"
)

// ErrMalformedRecord is returned by Emplace when the datagram parser rejects the input.
var ErrMalformedRecord = errors.New("store: malformed record")

// Parser turns a raw datagram into its structured view. Implemented
// outside this package (see internal/parser) — the store treats it as
// an injected external collaborator, exactly as spec.md scopes it.
type Parser func(raw []byte) (record.Parsed, error)

// Database is a capacity-bounded ring of Records ordered by id.
type Database struct {
	parser Parser

	capacity int
	slots    []record.Record
	filled   int // number of live slots; grows to capacity then stays

	lastID int64 // last assigned id; 0 before the first Emplace
	minID  int64 // smallest live id; 0 when empty

	timeIdx *timeIndex

	// listenersHead/listenersTail bound an intrusive doubly-linked list
	// of Cursors waiting for the next append, in registration order
	// (new listeners join at the tail, per spec). No heap allocation on
	// the append path: membership lives in fields on Cursor itself.
	listenersHead *LightCursor
	listenersTail *LightCursor
}

// New creates a Database with the given ring capacity and datagram parser.
func New(capacity int, parser Parser) *Database {
	if capacity <= 0 {
		panic("store: capacity must be positive")
	}
	return &Database{
		parser:   parser,
		capacity: capacity,
		slots:    make([]record.Record, capacity),
		timeIdx:  newTimeIndex(),
	}
}

// Capacity returns the ring's fixed capacity.
func (d *Database) Capacity() int { return d.capacity }

// Len returns the number of live records.
func (d *Database) Len() int { return d.filled }

func (d *Database) slot(id int64) int {
	return int((id - 1) % int64(d.capacity))
}

// Emplace parses raw, assigns the next id, inserts into the ring
// (evicting the oldest record if at capacity), updates both indexes,
// and notifies append listeners in registration order. Returns the
// inserted Record, or ErrMalformedRecord if the parser rejects raw.
func (d *Database) Emplace(raw []byte) (record.Record, error) {
	parsed, err := d.parser(raw)
	if err != nil {
		return record.Record{}, ErrMalformedRecord
	}

	id := d.lastID + 1
	d.lastID = id

	slot := d.slot(id)
	if d.filled == d.capacity {
		evicted := d.slots[slot]
		d.timeIdx.remove(evicted.Parsed().Timestamp.UnixNano(), evicted.ID())
		d.minID = evicted.ID() + 1
	} else {
		d.filled++
		if d.minID == 0 {
			d.minID = id
		}
	}

	rec := record.New(id, raw, parsed)
	d.slots[slot] = rec
	d.timeIdx.insert(parsed.Timestamp.UnixNano(), id)

	d.notifyAppend(rec)

	return rec, nil
}

// Find returns the live record with the given id, if any.
func (d *Database) Find(id int64) (record.Record, bool) {
	if !d.isLive(id) {
		return record.Record{}, false
	}
	return d.slots[d.slot(id)], true
}

func (d *Database) isLive(id int64) bool {
	return d.filled > 0 && id >= d.minID && id <= d.lastID
}

// First returns the oldest live record.
func (d *Database) First() (record.Record, bool) {
	if d.filled == 0 {
		return record.Record{}, false
	}
	return d.slots[d.slot(d.minID)], true
}

// Last returns the newest live record.
func (d *Database) Last() (record.Record, bool) {
	if d.filled == 0 {
		return record.Record{}, false
	}
	return d.slots[d.slot(d.lastID)], true
}

// TimeRange returns the id-interval endpoints of live records whose
// timestamp lies in [since, until]. A zero since/until means that side
// is open. Returns (zero, zero, false) when nothing matches.
//
// The endpoints are the first/last record by (timestamp, id), which
// spec.md's seek-then-scan algorithm treats as the id-interval bounds;
// if the last one has the smaller id, the pair is returned in id order.
// The result is exact when timestamps never decrease as ids grow. A
// record whose id falls outside [first.ID(), last.ID()] but whose
// timestamp is in range (e.g. a late arrival carrying an old
// timestamp) is not visited by a forward id scan seeded here.
// See DESIGN.md's note on TimeRange for the accepted scope of this.
func (d *Database) TimeRange(since, until time.Time) (first, last record.Record, ok bool) {
	if d.filled == 0 {
		return record.Record{}, record.Record{}, false
	}

	var firstID, lastID int64
	var haveFirst, haveLast bool

	if since.IsZero() {
		firstID, haveFirst = d.timeIdx.min()
	} else {
		firstID, haveFirst = d.timeIdx.seekFirstGE(since.UnixNano())
	}
	if !haveFirst {
		return record.Record{}, record.Record{}, false
	}

	if until.IsZero() {
		lastID, haveLast = d.timeIdx.max()
	} else {
		lastID, haveLast = d.timeIdx.seekLastLE(until.UnixNano())
	}
	if !haveLast {
		return record.Record{}, record.Record{}, false
	}

	first, last = d.slots[d.slot(firstID)], d.slots[d.slot(lastID)]
	// first holds the smallest key >= since; if it already lies past
	// until, no live record falls inside the range.
	if !until.IsZero() && first.Parsed().Timestamp.UnixNano() > until.UnixNano() {
		return record.Record{}, record.Record{}, false
	}
	if lastID < firstID {
		first, last = last, first
	}
	return first, last, true
}

// notifyAppend walks the listener list in registration order, unlinking
// each cursor before invoking its OnAppend callback (a cursor must stop
// waiting as soon as it is told about the append it was waiting for).
func (d *Database) notifyAppend(rec record.Record) {
	cur := d.listenersHead
	for cur != nil {
		next := cur.listenerNext
		d.unlinkListener(cur)
		cur.onAppendFromDatabase(rec)
		cur = next
	}
}

// AddAppendListener links lc into the broadcast list, joining at the
// tail so notifyAppend's head-to-tail walk visits listeners in
// registration order, per spec.md §4.1. Precondition: lc is not
// already linked — violating this is a programming error and panics,
// matching spec.md §7's "fatal assertion" policy for invariant
// violations that cannot occur in steady state.
func (d *Database) AddAppendListener(lc *LightCursor) {
	if lc.linked {
		panic("store: cursor already linked as append listener")
	}
	lc.db = d
	lc.linked = true
	lc.listenerNext = nil
	lc.listenerPrev = d.listenersTail
	if d.listenersTail != nil {
		d.listenersTail.listenerNext = lc
	} else {
		d.listenersHead = lc
	}
	d.listenersTail = lc
}

// unlinkListener removes lc from the listener list. No-op if not linked.
func (d *Database) unlinkListener(lc *LightCursor) {
	if !lc.linked {
		return
	}
	if lc.listenerPrev != nil {
		lc.listenerPrev.listenerNext = lc.listenerNext
	} else {
		d.listenersHead = lc.listenerNext
	}
	if lc.listenerNext != nil {
		lc.listenerNext.listenerPrev = lc.listenerPrev
	} else {
		d.listenersTail = lc.listenerPrev
	}
	lc.listenerPrev = nil
	lc.listenerNext = nil
	lc.linked = false
}

// smallestLiveIDAfter returns the smallest live id strictly greater
// than after, or (0, false) if none is live.
func (d *Database) smallestLiveIDAfter(after int64) (int64, bool) {
	if d.filled == 0 {
		return 0, false
	}
	candidate := after + 1
	if candidate < d.minID {
		candidate = d.minID
	}
	if candidate > d.lastID {
		return 0, false
	}
	return candidate, true
}

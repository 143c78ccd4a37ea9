// cursor.go — LightCursor and Cursor: stateful iterators into a Database
// that survive eviction of the record they last pointed to.
package store

import "github.com/check-spelling/pond/internal/record"

// AppendSink is notified synchronously when the Database a Cursor is
// linked to appends a new record. It decides whether the appended
// record should become the cursor's new position (e.g. a Selection
// rejects records its Filter does not match) and returns that
// decision. Exactly one AppendSink call happens per append event per
// linked cursor.
type AppendSink interface {
	OnAppend(rec record.Record) bool
}

// LightCursor is a borrowed reference into a Database plus an optional
// current position. It may be linked into the Database's append-
// listener list; linkage is exclusive to the cursor and is severed on
// move, advance, or explicit unlink — a cursor is never simultaneously
// positioned and linked.
type LightCursor struct {
	db *Database

	positioned bool
	currentID  int64

	linked       bool
	listenerPrev *LightCursor
	listenerNext *LightCursor

	// appendCallback is nil for a bare LightCursor (no follow
	// capability) and set by Cursor at construction. It reports
	// whether the appended record should become the new position.
	appendCallback func(rec record.Record) bool
}

func newLightCursor(db *Database) *LightCursor {
	return &LightCursor{db: db}
}

// Positioned reports whether the cursor currently refers to a record.
func (lc *LightCursor) Positioned() bool { return lc.positioned }

// Linked reports whether the cursor is registered as an append listener.
func (lc *LightCursor) Linked() bool { return lc.linked }

// Current returns the record the cursor refers to, if positioned.
func (lc *LightCursor) Current() (record.Record, bool) {
	if !lc.positioned {
		return record.Record{}, false
	}
	return lc.db.Find(lc.currentID)
}

// Rewind positions the cursor at the oldest live record, or leaves it
// unpositioned if the Database is empty. Always unlinks first.
func (lc *LightCursor) Rewind() {
	lc.Unlink()
	if first, ok := lc.db.First(); ok {
		lc.positioned = true
		lc.currentID = first.ID()
	} else {
		lc.positioned = false
	}
}

// SetNext positions the cursor at a specific record. Always unlinks first.
func (lc *LightCursor) SetNext(rec record.Record) {
	lc.Unlink()
	lc.positioned = true
	lc.currentID = rec.ID()
}

// clear forces the cursor to the unpositioned state and unlinks it.
func (lc *LightCursor) clear() {
	lc.Unlink()
	lc.positioned = false
}

// Advance moves to the next live record by id (not by ring-slot
// adjacency — across a wrap, adjacency and id order diverge). Reaches
// the unpositioned "end" state when no live record has a larger id.
func (lc *LightCursor) Advance() {
	if !lc.positioned {
		return
	}
	next, ok := lc.db.smallestLiveIDAfter(lc.currentID)
	if !ok {
		lc.positioned = false
		return
	}
	lc.currentID = next
}

// FixDeleted repositions the cursor if the record previously at id is
// no longer live, moving to the smallest live id greater than id (or
// to the unpositioned state if none is live). Returns true iff a
// reposition occurred, in which case the cursor is left unlinked.
func (lc *LightCursor) FixDeleted(id int64) bool {
	if lc.db.isLive(id) {
		return false
	}
	lc.Unlink()
	if next, ok := lc.db.smallestLiveIDAfter(id); ok {
		lc.positioned = true
		lc.currentID = next
	} else {
		lc.positioned = false
	}
	return true
}

// Link registers the cursor as an append listener on its Database.
// Precondition: not already linked.
func (lc *LightCursor) Link() {
	lc.db.AddAppendListener(lc)
}

// Unlink removes the cursor from its Database's listener list. No-op if not linked.
func (lc *LightCursor) Unlink() {
	if lc.linked {
		lc.db.unlinkListener(lc)
	}
}

// onAppendFromDatabase is invoked by Database.notifyAppend, which has
// already unlinked lc before calling. If an appendCallback is set and
// accepts the record, the cursor becomes positioned at it.
func (lc *LightCursor) onAppendFromDatabase(rec record.Record) {
	accept := lc.appendCallback == nil || lc.appendCallback(rec)
	if accept {
		lc.positioned = true
		lc.currentID = rec.ID()
	}
}

// Cursor layers a persistent id on top of LightCursor: id survives
// eviction of the record it last named, and equals the current
// record's id whenever the cursor is positioned.
type Cursor struct {
	lc   *LightCursor
	id   int64
	sink AppendSink
}

// NewCursor creates a Cursor borrowing from db. sink may be nil for a
// cursor that will never enter follow mode.
func NewCursor(db *Database, sink AppendSink) *Cursor {
	c := &Cursor{lc: newLightCursor(db), sink: sink}
	if sink != nil {
		c.lc.appendCallback = func(rec record.Record) bool {
			accepted := sink.OnAppend(rec)
			if accepted {
				c.id = rec.ID()
			}
			return accepted
		}
	}
	return c
}

// ID returns the persistent id: the current record's id while
// positioned, otherwise the last-known id.
func (c *Cursor) ID() int64 { return c.id }

// Positioned reports whether the cursor currently refers to a record.
func (c *Cursor) Positioned() bool { return c.lc.Positioned() }

// Linked reports whether the cursor is registered as an append listener.
func (c *Cursor) Linked() bool { return c.lc.Linked() }

// Current returns the record the cursor refers to, if positioned.
func (c *Cursor) Current() (record.Record, bool) { return c.lc.Current() }

// Rewind unlinks, rewinds the underlying LightCursor, and refreshes id.
func (c *Cursor) Rewind() {
	c.lc.Rewind()
	if c.lc.Positioned() {
		c.id = c.lc.currentID
	}
}

// SetNext positions at rec and refreshes id.
func (c *Cursor) SetNext(rec record.Record) {
	c.lc.SetNext(rec)
	c.id = rec.ID()
}

// clear forces the unpositioned, unlinked state without changing id
// (id keeps its last-known value, per the Cursor contract).
func (c *Cursor) clear() {
	c.lc.clear()
}

// Advance moves to the next live record and refreshes id if still positioned.
func (c *Cursor) Advance() {
	c.lc.Advance()
	if c.lc.Positioned() {
		c.id = c.lc.currentID
	}
}

// FixDeleted repairs the cursor if id has been evicted, refreshing id
// from the new position when repositioning occurred.
func (c *Cursor) FixDeleted() bool {
	changed := c.lc.FixDeleted(c.id)
	if changed && c.lc.Positioned() {
		c.id = c.lc.currentID
	}
	return changed
}

// Follow links the cursor as an append listener, provided an append
// sink was set and the cursor is neither positioned nor already
// linked. Calling Follow while already linked is a no-op.
func (c *Cursor) Follow() {
	if c.sink == nil {
		return
	}
	if !c.lc.Positioned() && !c.lc.Linked() {
		c.lc.Link()
	}
}

// Unlink removes the cursor from the append-listener list, if linked.
func (c *Cursor) Unlink() {
	c.lc.Unlink()
}

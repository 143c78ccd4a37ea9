// selection.go — Cursor + Filter, optionally bounded above by an id.
// Iterates only records the Filter accepts and whose id <= endID,
// always in ascending id order.
package store

import (
	"math"

	"github.com/check-spelling/pond/internal/record"
)

// noUpperBound is the endID sentinel meaning "no finite upper bound".
const noUpperBound = int64(math.MaxInt64)

// Selection owns one Cursor and one Filter exclusively.
type Selection struct {
	db     *Database
	cursor *Cursor
	filter Filter
	endID  int64

	// onAccept, if set, is invoked with a record this Selection just
	// accepted via OnAppend — the connection layer uses this to mark a
	// query parked in follow mode for delivery on its next service pass.
	onAccept func(record.Record)
}

// NewSelection creates a Selection over db with the given filter. The
// returned Selection is unpositioned until Rewind is called.
func NewSelection(db *Database, filter Filter) *Selection {
	sel := &Selection{db: db, filter: filter, endID: noUpperBound}
	sel.cursor = NewCursor(db, sel)
	return sel
}

// Cursor returns the Selection's owned Cursor (for Follow/Unlink from
// the connection layer).
func (s *Selection) Cursor() *Cursor { return s.cursor }

// OnAppendAccepted registers fn to be called synchronously whenever
// OnAppend accepts a record. It runs before OnAppend returns, so the
// Cursor is not yet positioned at the record when fn is called.
func (s *Selection) OnAppendAccepted(fn func(record.Record)) {
	s.onAccept = fn
}

// OnAppend implements AppendSink: rejects records the Filter does not
// match or that fall beyond the current upper bound, otherwise accepts
// and, if registered, notifies onAccept.
func (s *Selection) OnAppend(rec record.Record) bool {
	if rec.ID() > s.endID {
		return false
	}
	if !s.filter.Accept(rec.Parsed()) {
		return false
	}
	if s.onAccept != nil {
		s.onAccept(rec)
	}
	return true
}

// Rewind seeds the Selection at the start of its matching range. If the
// Filter carries a time range, the Database's time index supplies the
// seek in O(log n); otherwise the Selection scans from the oldest live
// record. Either way, SkipMismatches runs before returning.
func (s *Selection) Rewind() {
	if s.filter.HasTimeRange() {
		first, last, ok := s.db.TimeRange(s.filter.Since, s.filter.Until)
		if !ok {
			s.cursor.clear()
			s.endID = 0
			return
		}
		if s.filter.Until.IsZero() {
			s.endID = noUpperBound
		} else {
			s.endID = last.ID()
		}
		s.cursor.SetNext(first)
	} else {
		s.endID = noUpperBound
		s.cursor.Rewind()
	}
	s.SkipMismatches()
}

// SkipMismatches advances the cursor past any positioned record the
// Filter rejects or that lies beyond endID.
func (s *Selection) SkipMismatches() {
	for s.cursor.Positioned() {
		rec, _ := s.cursor.Current()
		if rec.ID() > s.endID {
			s.cursor.clear()
			return
		}
		if s.filter.Accept(rec.Parsed()) {
			return
		}
		s.cursor.Advance()
	}
}

// Advance moves to the next matching record, or to the unpositioned
// state if none remains.
func (s *Selection) Advance() {
	s.cursor.Advance()
	s.SkipMismatches()
}

// FixDeleted delegates to the Cursor; if it repositioned, the new head
// may not match and is re-screened with SkipMismatches.
func (s *Selection) FixDeleted() bool {
	changed := s.cursor.FixDeleted()
	if changed {
		s.SkipMismatches()
	}
	return changed
}

// Follow links the Selection's Cursor as an append listener (no-op if
// positioned or already linked).
func (s *Selection) Follow() {
	s.cursor.Follow()
}

// Unlink removes the Selection's Cursor from the append-listener list.
func (s *Selection) Unlink() {
	s.cursor.Unlink()
}

// Valid reports the Selection's truthiness: positioned and within endID.
func (s *Selection) Valid() bool {
	return s.cursor.Positioned() && s.cursor.ID() <= s.endID
}

// Current returns the currently selected record, if Valid.
func (s *Selection) Current() (record.Record, bool) {
	if !s.Valid() {
		return record.Record{}, false
	}
	return s.cursor.Current()
}

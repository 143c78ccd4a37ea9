// timeindex.go — (timestamp, id)-ordered index over live records.
//
// Producers may deliver slightly out-of-order timestamps, so the index
// is keyed by (timestamp, id) with id breaking ties deterministically.
// Backed by an in-memory B-tree for O(log n) range seeks, the same
// ordered-index shape used across this module's reference corpus for
// time-range lookups.
package store

import "github.com/google/btree"

const btreeDegree = 32

type timeKey struct {
	ts int64 // UnixNano; open-ended ranges use min/max, not a sentinel ts
	id int64
}

func (k timeKey) Less(than btree.Item) bool {
	o := than.(timeKey)
	if k.ts != o.ts {
		return k.ts < o.ts
	}
	return k.id < o.id
}

type timeIndex struct {
	tree *btree.BTree
}

func newTimeIndex() *timeIndex {
	return &timeIndex{tree: btree.New(btreeDegree)}
}

func (ti *timeIndex) insert(ts int64, id int64) {
	ti.tree.ReplaceOrInsert(timeKey{ts: ts, id: id})
}

func (ti *timeIndex) remove(ts int64, id int64) {
	ti.tree.Delete(timeKey{ts: ts, id: id})
}

// seekFirstGE returns the id of the first entry with key >= (ts, minID64), and ok=false if none exists.
func (ti *timeIndex) seekFirstGE(ts int64) (id int64, ok bool) {
	ti.tree.AscendGreaterOrEqual(timeKey{ts: ts, id: minID64}, func(item btree.Item) bool {
		id, ok = item.(timeKey).id, true
		return false
	})
	return id, ok
}

// seekLastLE returns the id of the last entry with key <= (ts, maxID64), and ok=false if none exists.
func (ti *timeIndex) seekLastLE(ts int64) (id int64, ok bool) {
	ti.tree.DescendLessOrEqual(timeKey{ts: ts, id: maxID64}, func(item btree.Item) bool {
		id, ok = item.(timeKey).id, true
		return false
	})
	return id, ok
}

func (ti *timeIndex) min() (id int64, ok bool) {
	item := ti.tree.Min()
	if item == nil {
		return 0, false
	}
	return item.(timeKey).id, true
}

func (ti *timeIndex) max() (id int64, ok bool) {
	item := ti.tree.Max()
	if item == nil {
		return 0, false
	}
	return item.(timeKey).id, true
}

const (
	minID64 = int64(-1 << 62)
	maxID64 = int64(1<<62 - 1)
)

// query.go — per-id query state: the building/streaming/following/ended
// machine spec.md §4.4 describes, layered over one store.Selection.
package query

import "github.com/check-spelling/pond/internal/store"

type state int

const (
	stateBuilding state = iota
	stateStreaming
	stateFollowing
	stateEnded
)

func (s state) String() string {
	switch s {
	case stateBuilding:
		return "building"
	case stateStreaming:
		return "streaming"
	case stateFollowing:
		return "following"
	case stateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Query is one client-chosen query id's worth of state on a Connection.
// Exclusively owned and mutated by the loop goroutine that owns the
// Connection it belongs to.
type Query struct {
	id     uint16
	state  state
	filter store.Filter
	follow bool

	// selection is nil while building; created on COMMIT.
	selection *store.Selection
}

// ID returns the query's client-chosen id.
func (q *Query) ID() uint16 { return q.id }

// State returns a human-readable name for the query's current state, for logging.
func (q *Query) State() string { return q.state.String() }

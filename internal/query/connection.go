// connection.go — per-connection query registry and the protocol
// dispatch spec.md §4.4 describes. One Connection is created per
// accepted socket and is driven exclusively by the server's single
// loop goroutine (see internal/pondserver) — no locking here.
package query

import (
	"strconv"
	"time"

	"github.com/check-spelling/pond/internal/ponderr"
	"github.com/check-spelling/pond/internal/record"
	"github.com/check-spelling/pond/internal/store"
	"github.com/check-spelling/pond/internal/wire"
	"github.com/rs/zerolog"
)

// Outbox is the connection's outbound frame sink, implemented by the
// per-connection write pump (see internal/pondserver). It stands in
// for spec.md's "writable-ready handler": TryEnqueue is non-blocking
// and reports whether the frame was accepted.
type Outbox interface {
	// TryEnqueue attempts to hand f to the connection's outbound buffer
	// without blocking. Returns false if the buffer is at or above its
	// high-water mark; f is not enqueued and the caller must retry it
	// later (after Connection.ResumeDrain is called).
	TryEnqueue(f wire.Frame) bool
}

// Connection owns every Query for one client socket plus the shared
// Database handle queries read from. Nothing here is safe for
// concurrent use; the loop goroutine is the sole caller.
type Connection struct {
	db     *store.Database
	parser store.Parser
	out    Outbox
	log    zerolog.Logger

	queries map[uint16]*Query

	// paused holds queries whose drain stopped because Outbox reported
	// backpressure; ResumeDrain retries them.
	paused map[uint16]*Query

	// pendingFollow holds queries whose Selection just accepted an
	// appended record via OnAppend. The Selection's Cursor does not
	// report its new position until the append-notify cycle that
	// invoked OnAppend fully returns, so delivery is deferred to
	// ServiceFollowers rather than performed inline from the callback.
	pendingFollow map[uint16]*Query

	// onRecordAppended, if set, fires once per successful INJECT_LOG_RECORD
	// on this connection — the server shell uses it to fan the record out
	// to the best-effort per-site append sink (see internal/siteappend),
	// which is not part of the core's deletion-aware listener list.
	onRecordAppended func(record.Record)
}

// SetOnRecordAppended registers fn to be called with every record this
// connection successfully injects into the Database.
func (c *Connection) SetOnRecordAppended(fn func(record.Record)) {
	c.onRecordAppended = fn
}

// NewConnection creates a Connection over db, using parser for
// INJECT_LOG_RECORD payloads and out to deliver outbound frames.
func NewConnection(db *store.Database, parser store.Parser, out Outbox, log zerolog.Logger) *Connection {
	return &Connection{
		db:            db,
		parser:        parser,
		out:           out,
		log:           log,
		queries:       make(map[uint16]*Query),
		paused:        make(map[uint16]*Query),
		pendingFollow: make(map[uint16]*Query),
	}
}

// HandleFrame dispatches one inbound frame. A returned error is always
// a per-query error (ponderr.ProtocolViolation or equivalent): the
// caller is expected to send it back as an ERROR frame under f.ID and
// keep the connection open, per spec.md §7. Per-connection errors
// (malformed framing, I/O, oversized payload) never originate here —
// they're caught earlier, at the wire-decoding boundary.
func (c *Connection) HandleFrame(f wire.Frame) error {
	switch f.Command {
	case wire.CmdQuery:
		return c.handleQuery(f.ID)
	case wire.CmdFilterSite:
		return c.handleFilter(f.ID, "FILTER_SITE", func(q *Query) { q.filter.Site = string(f.Payload) })
	case wire.CmdFilterHost:
		return c.handleFilter(f.ID, "FILTER_HOST", func(q *Query) { q.filter.Host = string(f.Payload) })
	case wire.CmdFilterURI:
		return c.handleFilter(f.ID, "FILTER_URI", func(q *Query) { q.filter.URISubstring = string(f.Payload) })
	case wire.CmdFilterStatus:
		return c.handleFilterStatus(f.ID, f.Payload)
	case wire.CmdFilterSince:
		return c.handleFilterTime(f.ID, "FILTER_SINCE", f.Payload, func(q *Query, t time.Time) { q.filter.Since = t })
	case wire.CmdFilterUntil:
		return c.handleFilterTime(f.ID, "FILTER_UNTIL", f.Payload, func(q *Query, t time.Time) { q.filter.Until = t })
	case wire.CmdFollow:
		return c.handleFollow(f.ID)
	case wire.CmdCommit:
		return c.handleCommit(f.ID)
	case wire.CmdCancel:
		return c.handleCancel(f.ID)
	case wire.CmdInjectLogRecord:
		return c.handleInject(f.ID, f.Payload)
	default:
		return &ponderr.ProtocolViolation{Command: f.Command.String(), Reason: "unknown command"}
	}
}

// Queries returns the number of in-flight queries, for metrics snapshotting.
func (c *Connection) Queries() int { return len(c.queries) }

// Close drops every Query on this connection, unlinking any follow
// cursors. Called when the connection's socket closes.
func (c *Connection) Close() {
	for id, q := range c.queries {
		if q.selection != nil {
			q.selection.Unlink()
		}
		delete(c.queries, id)
	}
	c.paused = make(map[uint16]*Query)
	c.pendingFollow = make(map[uint16]*Query)
}

func (c *Connection) handleQuery(id uint16) error {
	if _, exists := c.queries[id]; exists {
		return &ponderr.ProtocolViolation{Command: "QUERY", Reason: "duplicate id"}
	}
	c.queries[id] = &Query{id: id, state: stateBuilding}
	return nil
}

func (c *Connection) handleFilter(id uint16, cmdName string, mutate func(*Query)) error {
	q, err := c.requireBuilding(id, cmdName)
	if err != nil {
		return err
	}
	mutate(q)
	return nil
}

// handleFilterStatus parses a decimal HTTP status from payload. A
// trailing "xx" (e.g. "2xx") sets StatusClass instead of an exact match.
func (c *Connection) handleFilterStatus(id uint16, payload []byte) error {
	q, err := c.requireBuilding(id, "FILTER_STATUS")
	if err != nil {
		return err
	}
	s := string(payload)
	if len(s) == 3 && s[1] == 'x' && s[2] == 'x' {
		class, perr := strconv.Atoi(s[:1])
		if perr != nil {
			return &ponderr.ProtocolViolation{Command: "FILTER_STATUS", Reason: "malformed status class"}
		}
		q.filter.StatusClass = class
		return nil
	}
	status, perr := strconv.Atoi(s)
	if perr != nil {
		return &ponderr.ProtocolViolation{Command: "FILTER_STATUS", Reason: "malformed status"}
	}
	q.filter.Status = status
	return nil
}

// handleFilterTime parses an RFC3339 timestamp from payload and applies it via set.
func (c *Connection) handleFilterTime(id uint16, cmdName string, payload []byte, set func(*Query, time.Time)) error {
	q, err := c.requireBuilding(id, cmdName)
	if err != nil {
		return err
	}
	t, perr := time.Parse(time.RFC3339, string(payload))
	if perr != nil {
		return &ponderr.ProtocolViolation{Command: cmdName, Reason: "malformed timestamp"}
	}
	set(q, t)
	return nil
}

func (c *Connection) handleFollow(id uint16) error {
	q, err := c.requireBuilding(id, "FOLLOW")
	if err != nil {
		return err
	}
	q.follow = true
	return nil
}

func (c *Connection) handleCommit(id uint16) error {
	q, err := c.requireBuilding(id, "COMMIT")
	if err != nil {
		return err
	}
	q.selection = store.NewSelection(c.db, q.filter)
	q.selection.OnAppendAccepted(func(rec record.Record) {
		c.pendingFollow[q.id] = q
	})
	q.selection.Rewind()
	q.state = stateStreaming
	c.drain(q)
	return nil
}

func (c *Connection) handleCancel(id uint16) error {
	q, ok := c.queries[id]
	if !ok {
		return &ponderr.ProtocolViolation{Command: "CANCEL", Reason: "unknown query id"}
	}
	if q.selection != nil {
		q.selection.Unlink()
	}
	c.finish(q)
	return nil
}

func (c *Connection) handleInject(id uint16, payload []byte) error {
	rec, err := c.db.Emplace(payload)
	if err != nil {
		c.sendError(id, err.Error())
		return nil
	}
	if c.onRecordAppended != nil {
		c.onRecordAppended(rec)
	}
	return nil
}

func (c *Connection) requireBuilding(id uint16, cmdName string) (*Query, error) {
	q, ok := c.queries[id]
	if !ok {
		return nil, &ponderr.ProtocolViolation{Command: cmdName, Reason: "unknown query id"}
	}
	if q.state != stateBuilding {
		return nil, &ponderr.ProtocolViolation{Command: cmdName, Reason: "not in building state"}
	}
	return q, nil
}

// drain pushes matching records from q's Selection into outbound
// frames until the Selection is exhausted or the Outbox applies
// backpressure. Always repairs eviction-stale position first, per
// spec.md §4.4 point 8.
func (c *Connection) drain(q *Query) {
	q.selection.FixDeleted()

	for {
		rec, ok := q.selection.Current()
		if !ok {
			delete(c.paused, q.id)
			if q.follow {
				q.state = stateFollowing
				q.selection.Follow()
			} else if c.out.TryEnqueue(wire.Frame{ID: q.id, Command: wire.CmdEnd}) {
				q.state = stateEnded
				delete(c.queries, q.id)
				delete(c.pendingFollow, q.id)
			} else {
				// No room for END yet: stay paused so ResumeDrain retries it.
				c.paused[q.id] = q
			}
			return
		}

		frame := wire.Frame{ID: q.id, Command: wire.CmdLogRecord, Payload: rec.Raw()}
		if !c.out.TryEnqueue(frame) {
			c.paused[q.id] = q
			return
		}
		q.selection.Advance()
	}
}

// ResumeDrain retries every query the Outbox previously pushed back
// on. Called by the server shell once the connection's outbound
// buffer has drained below its high-water mark.
func (c *Connection) ResumeDrain() {
	if len(c.paused) == 0 {
		return
	}
	pending := c.paused
	c.paused = make(map[uint16]*Query)
	for _, q := range pending {
		c.drain(q)
	}
}

// ServiceFollowers retries every query whose Selection just accepted
// an appended record while in following state, then re-arms every
// still-following query. The server shell calls this once per
// Database.Emplace, on every live Connection (an append can match
// queries on connections other than the one that injected it).
//
// Database.notifyAppend unconditionally unlinks a listening Cursor
// before invoking its accept callback, whether or not the record is
// accepted (see store/database.go). A query whose Selection rejects
// the record is therefore left following-but-unlinked, and would never
// hear about a later matching append unless something re-links it —
// drain only re-arms the queries its own exhaustion path just handled,
// so every query in stateFollowing is re-checked here regardless of
// whether this cycle's append queued it for delivery.
func (c *Connection) ServiceFollowers() {
	if len(c.pendingFollow) > 0 {
		pending := c.pendingFollow
		c.pendingFollow = make(map[uint16]*Query)
		for _, q := range pending {
			c.drain(q)
		}
	}
	for _, q := range c.queries {
		if q.state == stateFollowing {
			q.selection.Follow()
		}
	}
}

func (c *Connection) finish(q *Query) {
	q.state = stateEnded
	c.sendEnd(q.id)
	delete(c.queries, q.id)
	delete(c.paused, q.id)
	delete(c.pendingFollow, q.id)
}

func (c *Connection) sendEnd(id uint16) {
	if !c.out.TryEnqueue(wire.Frame{ID: id, Command: wire.CmdEnd}) {
		c.log.Warn().Uint16("query_id", id).Msg("dropped END frame: outbox full")
	}
}

func (c *Connection) sendError(id uint16, msg string) {
	if !c.out.TryEnqueue(wire.Frame{ID: id, Command: wire.CmdError, Payload: []byte(msg)}) {
		c.log.Warn().Uint16("query_id", id).Str("error", msg).Msg("dropped ERROR frame: outbox full")
	}
}

// loop.go — the single goroutine that exclusively owns the Database
// and every Connection, per SPEC_FULL.md §4.8 and spec.md §5. Every
// other goroutine in this package (accept loop, read pumps, write
// pumps) only moves bytes and decoded frames across channels; none of
// them touch core state directly.
package pondserver

import (
	"context"

	"github.com/check-spelling/pond/internal/query"
	"github.com/check-spelling/pond/internal/siteappend"
	"github.com/check-spelling/pond/internal/store"
	"github.com/check-spelling/pond/internal/wire"
	"github.com/rs/zerolog"
)

// inboundFrame is a successfully decoded frame arriving from one
// connection's read pump.
type inboundFrame struct {
	connID uint64
	frame  wire.Frame
}

// connClosed reports that a connection's socket ended, optionally
// because of a per-connection error (malformed framing, oversized
// payload, I/O failure) that the read or write pump detected.
type connClosed struct {
	connID uint64
	err    error
}

type connRegistration struct {
	connID uint64
	out    *outbox
}

// loop is the event loop's internal state. Construct via newLoop and
// drive it with Run; everything else in this file is private to the
// loop goroutine.
type loop struct {
	db       *store.Database
	parser   store.Parser
	siteSink *siteappend.Sink
	log      zerolog.Logger
	metrics  *metrics

	conns    map[uint64]*query.Connection
	outboxes map[uint64]*outbox

	register chan connRegistration
	inbound  chan inboundFrame
	resume   chan uint64
	closed   chan connClosed
}

func newLoop(db *store.Database, parser store.Parser, siteSink *siteappend.Sink, log zerolog.Logger, m *metrics) *loop {
	return &loop{
		db:       db,
		parser:   parser,
		siteSink: siteSink,
		log:      log,
		metrics:  m,
		conns:    make(map[uint64]*query.Connection),
		outboxes: make(map[uint64]*outbox),
		register: make(chan connRegistration),
		inbound:  make(chan inboundFrame, 256),
		resume:   make(chan uint64, 256),
		closed:   make(chan connClosed, 64),
	}
}

// Run drives the loop until ctx is canceled. It is the only goroutine
// that ever calls into internal/store or internal/query.
func (l *loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reg := <-l.register:
			l.handleRegister(reg)
		case ev := <-l.inbound:
			l.handleInbound(ev)
		case connID := <-l.resume:
			l.handleResume(connID)
		case ev := <-l.closed:
			l.handleClosed(ev)
		}
	}
}

func (l *loop) handleRegister(reg connRegistration) {
	connLog := l.log.With().Uint64("conn_id", reg.connID).Logger()
	conn := query.NewConnection(l.db, l.parser, reg.out, connLog)
	if l.siteSink != nil {
		conn.SetOnRecordAppended(l.siteSink.OnAppend)
	}
	l.conns[reg.connID] = conn
	l.outboxes[reg.connID] = reg.out
	l.refreshMetrics()
}

func (l *loop) handleInbound(ev inboundFrame) {
	conn, ok := l.conns[ev.connID]
	if !ok {
		return
	}
	// HandleFrame only ever returns per-query errors (ponderr.ProtocolViolation
	// and friends) — per-connection errors are caught earlier, at the
	// framing boundary in the read pump. A returned error still needs
	// an ERROR frame under the offending id; HandleFrame does not send
	// one itself for this class of failure.
	if err := conn.HandleFrame(ev.frame); err != nil {
		if out, ok := l.outboxes[ev.connID]; ok {
			out.TryEnqueue(wire.Frame{ID: ev.frame.ID, Command: wire.CmdError, Payload: []byte(err.Error())})
		}
	}
	l.serviceAllFollowers()
	l.refreshMetrics()
}

func (l *loop) handleResume(connID uint64) {
	if conn, ok := l.conns[connID]; ok {
		conn.ResumeDrain()
	}
}

func (l *loop) handleClosed(ev connClosed) {
	conn, ok := l.conns[ev.connID]
	if !ok {
		return
	}
	conn.Close()
	delete(l.conns, ev.connID)
	delete(l.outboxes, ev.connID)
	if ev.err != nil {
		l.log.Info().Uint64("conn_id", ev.connID).Err(ev.err).Msg("connection closed")
	}
	l.refreshMetrics()
}

// serviceAllFollowers retries every connection's queries parked in
// following state, since Database.Emplace notifies Selections on every
// connection, not only the one that injected the record.
func (l *loop) serviceAllFollowers() {
	for _, conn := range l.conns {
		conn.ServiceFollowers()
	}
}

func (l *loop) refreshMetrics() {
	// Ids are assigned one per successful append and never reused, so
	// the newest id is the running append count.
	var totalAppends int64
	if last, ok := l.db.Last(); ok {
		totalAppends = last.ID()
	}
	l.metrics.set(Snapshot{
		Connections:    len(l.conns),
		TotalAppends:   totalAppends,
		RecordsInStore: l.db.Len(),
		RingCapacity:   l.db.Capacity(),
	})
}

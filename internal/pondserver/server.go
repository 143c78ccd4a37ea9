// server.go — listener accept loop and per-connection I/O pumps.
// This is the externally-scoped "socket resolution, connect/listen
// glue, and event-loop primitive" spec.md §1 deliberately leaves
// unspecified; SPEC_FULL.md §4.8 resolves it as goroutine-per-
// connection pumps feeding the single loop goroutine in loop.go.
package pondserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/check-spelling/pond/internal/ponderr"
	"github.com/check-spelling/pond/internal/siteappend"
	"github.com/check-spelling/pond/internal/store"
	"github.com/check-spelling/pond/internal/wire"
	"github.com/rs/zerolog"
)

// Server listens for TCP connections and drives one loop goroutine
// against a shared Database.
type Server struct {
	loop          *loop
	log           zerolog.Logger
	highWaterMark int
	nextConnID    atomic.Uint64
	metrics       *metrics

	ln net.Listener
}

// New builds a Server over db. siteSink may be nil (per-site append
// disabled). highWaterMark bounds each connection's outbound buffer,
// per SPEC_FULL.md §4.9.
func New(db *store.Database, parser store.Parser, siteSink *siteappend.Sink, highWaterMark int, log zerolog.Logger) *Server {
	m := &metrics{}
	return &Server{
		loop:          newLoop(db, parser, siteSink, log, m),
		log:           log,
		highWaterMark: highWaterMark,
		metrics:       m,
	}
}

// Metrics returns a point-in-time snapshot of daemon counters. Safe to
// call from any goroutine.
func (s *Server) Metrics() Snapshot { return s.metrics.Get() }

// ListenAndServe listens on addr and serves connections until ctx is
// canceled or the listener fails. It blocks.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("pondserver: listen on %s: %w", addr, err)
	}
	s.log.Info().Str("addr", addr).Msg("listening")
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop against an already-bound listener, until
// ctx is canceled or the listener fails. It blocks. Split out from
// ListenAndServe so tests can bind an ephemeral port ahead of time.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.ln = ln
	defer ln.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	safeGo(s.log, "loop", func() { s.loop.Run(ctx) })

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if isTemporary(err) {
				continue
			}
			return fmt.Errorf("pondserver: accept: %w", err)
		}
		s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	connID := s.nextConnID.Add(1)
	out := newOutbox(s.highWaterMark)

	select {
	case s.loop.register <- connRegistration{connID: connID, out: out}:
	case <-ctx.Done():
		conn.Close()
		return
	}

	safeGo(s.log, "write-pump", func() { s.writePump(ctx, connID, conn, out) })
	safeGo(s.log, "read-pump", func() { s.readPump(ctx, connID, conn) })
}

func (s *Server) readPump(ctx context.Context, connID uint64, conn net.Conn) {
	defer conn.Close()
	for {
		f, err := wire.ReadFrame(conn)
		if err != nil {
			s.notifyClosed(ctx, connID, classifyReadErr(err))
			return
		}
		select {
		case s.loop.inbound <- inboundFrame{connID: connID, frame: f}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) writePump(ctx context.Context, connID uint64, conn net.Conn, out *outbox) {
	defer conn.Close()
	for {
		select {
		case f := <-out.frames:
			if err := wire.WriteFrame(conn, f); err != nil {
				s.notifyClosed(ctx, connID, &ponderr.IOError{Cause: err})
				return
			}
			select {
			case s.loop.resume <- connID:
			default:
			}
		case <-ctx.Done():
			return
		}
	}
}

// notifyClosed tells the loop this connection is gone. io.EOF is a
// clean close, not an error worth classifying.
func (s *Server) notifyClosed(ctx context.Context, connID uint64, err error) {
	ev := connClosed{connID: connID}
	if !errors.Is(err, io.EOF) {
		ev.err = err
	}
	select {
	case s.loop.closed <- ev:
	case <-ctx.Done():
	}
}

func classifyReadErr(err error) error {
	if errors.Is(err, io.EOF) {
		return err
	}
	if errors.Is(err, wire.ErrShortHeader) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &ponderr.MalformedFrame{Reason: err.Error()}
	}
	return &ponderr.IOError{Cause: err}
}

func isTemporary(err error) bool {
	type temporary interface{ Temporary() bool }
	te, ok := err.(temporary)
	return ok && te.Temporary()
}

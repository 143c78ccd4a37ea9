package query

import (
	"testing"

	"github.com/check-spelling/pond/internal/ponderr"
	"github.com/check-spelling/pond/internal/record"
	"github.com/check-spelling/pond/internal/store"
	"github.com/check-spelling/pond/internal/wire"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeOutbox records every enqueued frame in order. When capacity > 0,
// TryEnqueue rejects once len(frames) - drained would exceed capacity,
// simulating the high-water mark described in spec.md §5.
type fakeOutbox struct {
	frames   []wire.Frame
	capacity int // 0 means unbounded
	drained  int
}

func (o *fakeOutbox) TryEnqueue(f wire.Frame) bool {
	if o.capacity > 0 && len(o.frames)-o.drained >= o.capacity {
		return false
	}
	o.frames = append(o.frames, f)
	return true
}

// drainN simulates the write pump consuming n frames off the front,
// making room for more TryEnqueue calls.
func (o *fakeOutbox) drainN(n int) {
	o.drained += n
}

func siteParser(raw []byte) (record.Parsed, error) {
	return record.Parsed{Site: string(raw)}, nil
}

func newTestConn(t *testing.T, outbox *fakeOutbox) (*Connection, *store.Database) {
	t.Helper()
	db := store.New(16, siteParser)
	conn := NewConnection(db, siteParser, outbox, zerolog.Nop())
	return conn, db
}

func frameStr(f wire.Frame) string { return string(f.Payload) }

func TestBasicHistory(t *testing.T) {
	outbox := &fakeOutbox{}
	conn, db := newTestConn(t, outbox)

	mustEmplace(t, db, "a")
	mustEmplace(t, db, "b")
	mustEmplace(t, db, "a")

	require.NoError(t, conn.HandleFrame(wire.Frame{ID: 1, Command: wire.CmdQuery}))
	require.NoError(t, conn.HandleFrame(wire.Frame{ID: 1, Command: wire.CmdFilterSite, Payload: []byte("a")}))
	require.NoError(t, conn.HandleFrame(wire.Frame{ID: 1, Command: wire.CmdCommit}))

	require.Len(t, outbox.frames, 3)
	require.Equal(t, wire.CmdLogRecord, outbox.frames[0].Command)
	require.Equal(t, "a", frameStr(outbox.frames[0]))
	require.Equal(t, wire.CmdLogRecord, outbox.frames[1].Command)
	require.Equal(t, "a", frameStr(outbox.frames[1]))
	require.Equal(t, wire.CmdEnd, outbox.frames[2].Command)
	require.Equal(t, 0, conn.Queries())
}

func TestFollowMode(t *testing.T) {
	outbox := &fakeOutbox{}
	conn, db := newTestConn(t, outbox)

	mustEmplace(t, db, "x")

	require.NoError(t, conn.HandleFrame(wire.Frame{ID: 7, Command: wire.CmdQuery}))
	require.NoError(t, conn.HandleFrame(wire.Frame{ID: 7, Command: wire.CmdFilterSite, Payload: []byte("x")}))
	require.NoError(t, conn.HandleFrame(wire.Frame{ID: 7, Command: wire.CmdFollow}))
	require.NoError(t, conn.HandleFrame(wire.Frame{ID: 7, Command: wire.CmdCommit}))

	require.Len(t, outbox.frames, 1)
	require.Equal(t, 1, conn.Queries())

	mustEmplace(t, db, "y")
	conn.ServiceFollowers()
	require.Len(t, outbox.frames, 1) // "y" does not match filter "x"

	mustEmplace(t, db, "x")
	conn.ServiceFollowers()
	require.Len(t, outbox.frames, 2)
	require.Equal(t, "x", frameStr(outbox.frames[1]))

	require.NoError(t, conn.HandleFrame(wire.Frame{ID: 7, Command: wire.CmdCancel}))
	require.Len(t, outbox.frames, 3)
	require.Equal(t, wire.CmdEnd, outbox.frames[2].Command)
	require.Equal(t, 0, conn.Queries())
}

func TestDuplicateQueryID(t *testing.T) {
	outbox := &fakeOutbox{}
	conn, _ := newTestConn(t, outbox)

	require.NoError(t, conn.HandleFrame(wire.Frame{ID: 5, Command: wire.CmdQuery}))
	err := conn.HandleFrame(wire.Frame{ID: 5, Command: wire.CmdQuery})
	require.Error(t, err)
	require.False(t, ponderr.PerConnection(err))
	require.Equal(t, 1, conn.Queries())
}

func TestFilterOutsideBuildingIsProtocolViolation(t *testing.T) {
	outbox := &fakeOutbox{}
	conn, db := newTestConn(t, outbox)
	mustEmplace(t, db, "a")

	require.NoError(t, conn.HandleFrame(wire.Frame{ID: 1, Command: wire.CmdQuery}))
	require.NoError(t, conn.HandleFrame(wire.Frame{ID: 1, Command: wire.CmdCommit}))

	err := conn.HandleFrame(wire.Frame{ID: 1, Command: wire.CmdFilterSite, Payload: []byte("a")})
	require.Error(t, err)
}

func TestBackpressurePausesAndResumes(t *testing.T) {
	outbox := &fakeOutbox{capacity: 2}
	conn, db := newTestConn(t, outbox)

	for i := 0; i < 5; i++ {
		mustEmplace(t, db, "a")
	}

	require.NoError(t, conn.HandleFrame(wire.Frame{ID: 1, Command: wire.CmdQuery}))
	require.NoError(t, conn.HandleFrame(wire.Frame{ID: 1, Command: wire.CmdCommit}))

	// Only 2 of 5 records fit before the high-water mark stops the drain.
	require.Len(t, outbox.frames, 2)
	require.Equal(t, 1, conn.Queries())

	outbox.drainN(2)
	conn.ResumeDrain()
	require.Len(t, outbox.frames, 4)

	outbox.drainN(2)
	conn.ResumeDrain()
	// Remaining record + END.
	require.Len(t, outbox.frames, 6)
	require.Equal(t, wire.CmdEnd, outbox.frames[5].Command)
	require.Equal(t, 0, conn.Queries())
}

func TestInjectMalformedRecordSendsError(t *testing.T) {
	outbox := &fakeOutbox{}
	db := store.New(4, func(raw []byte) (record.Parsed, error) {
		return record.Parsed{}, store.ErrMalformedRecord
	})
	conn := NewConnection(db, nil, outbox, zerolog.Nop())

	require.NoError(t, conn.HandleFrame(wire.Frame{ID: 9, Command: wire.CmdInjectLogRecord, Payload: []byte("bad")}))
	require.Len(t, outbox.frames, 1)
	require.Equal(t, wire.CmdError, outbox.frames[0].Command)
}

func TestUnknownCommandIsProtocolViolation(t *testing.T) {
	outbox := &fakeOutbox{}
	conn, _ := newTestConn(t, outbox)
	err := conn.HandleFrame(wire.Frame{ID: 1, Command: wire.Command(9999)})
	require.Error(t, err)
}

func mustEmplace(t *testing.T, db *store.Database, site string) record.Record {
	t.Helper()
	rec, err := db.Emplace([]byte(site))
	require.NoError(t, err)
	return rec
}

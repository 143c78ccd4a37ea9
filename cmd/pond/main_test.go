// main_test.go — CLI arg parsing and end-to-end query/inject flows.
package main

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/check-spelling/pond/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestParseFilterArgKnownKeys(t *testing.T) {
	cases := map[string]wire.Command{
		"site=a":            wire.CmdFilterSite,
		"host=b":            wire.CmdFilterHost,
		"uri=/x":            wire.CmdFilterURI,
		"status=404":        wire.CmdFilterStatus,
		"since=2024-01-01Z": wire.CmdFilterSince,
		"until=2024-02-01Z": wire.CmdFilterUntil,
	}
	for arg, want := range cases {
		cmd, _, err := parseFilterArg(arg)
		require.NoError(t, err)
		require.Equal(t, want, cmd)
	}
}

func TestParseFilterArgRejectsMalformed(t *testing.T) {
	_, _, err := parseFilterArg("nokey")
	require.Error(t, err)
}

func TestParseFilterArgRejectsUnknownKey(t *testing.T) {
	_, _, err := parseFilterArg("bogus=1")
	require.Error(t, err)
}

func TestRunMissingArgs(t *testing.T) {
	code := run([]string{})
	require.Equal(t, 2, code)
}

func TestRunUnknownCommand(t *testing.T) {
	code := run([]string{"localhost:9", "frobnicate"})
	require.Equal(t, 2, code)
}

// fakeServer accepts one connection, reads frames until COMMIT, then
// plays back a fixed frame sequence.
func fakeServer(t *testing.T, reply []wire.Frame) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			f, err := wire.ReadFrame(conn)
			if err != nil {
				return
			}
			if f.Command == wire.CmdCommit {
				break
			}
		}
		for _, f := range reply {
			if err := wire.WriteFrame(conn, f); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

func TestRunQueryEndToEnd(t *testing.T) {
	addr := fakeServer(t, []wire.Frame{
		{ID: clientQueryID, Command: wire.CmdLogRecord, Payload: []byte("a b c [10/Oct/2024:13:55:36 -0700] \"GET /x HTTP/1.1\" 200 10 \"-\" \"-\" 5")},
		{ID: clientQueryID, Command: wire.CmdEnd},
	})

	code := run([]string{addr, "query", "site=a"})
	require.Equal(t, 0, code)
}

func TestRunQueryServerError(t *testing.T) {
	addr := fakeServer(t, []wire.Frame{
		{ID: clientQueryID, Command: wire.CmdError, Payload: []byte("duplicate id")},
	})

	code := run([]string{addr, "query"})
	require.Equal(t, 1, code)
}

func TestRunInjectStreamsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "datagrams.log")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\n"), 0o644))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []wire.Frame, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var frames []wire.Frame
		br := bufio.NewReader(conn)
		for {
			f, err := wire.ReadFrame(br)
			if err != nil {
				break
			}
			frames = append(frames, f)
		}
		received <- frames
	}()

	code := run([]string{ln.Addr().String(), "inject", path})
	require.Equal(t, 0, code)

	frames := <-received
	require.Len(t, frames, 2)
	require.Equal(t, "line one", string(frames[0].Payload))
	require.Equal(t, "line two", string(frames[1].Payload))
}

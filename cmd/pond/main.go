// main.go — pond CLI client. Connects to a pondd daemon, issues one
// query or injects a file of datagrams, per SPEC_FULL.md §6.
//
// Usage: pond SERVER[:PORT] query [--follow] [site=VALUE] [host=VALUE]
//
//	[uri=VALUE] [status=VALUE] [since=RFC3339] [until=RFC3339]
//	pond SERVER[:PORT] inject FILE
//
// Exit codes: 0 on clean END, nonzero on protocol/parse/usage error.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/check-spelling/pond/internal/parser"
	"github.com/check-spelling/pond/internal/printer"
	"github.com/check-spelling/pond/internal/record"
	"github.com/check-spelling/pond/internal/wire"
	flags "github.com/jessevdk/go-flags"
)

const defaultPort = "5480"

// clientQueryID is the only query id this single-query client ever
// needs; the wire protocol's ids are per-connection, not global.
const clientQueryID = 1

type options struct {
	Follow  bool `long:"follow" description:"stay open and receive matching records as they arrive"`
	Timeout int  `long:"timeout" description:"dial timeout, in seconds" default:"10"`

	Args struct {
		Server  string   `positional-arg-name:"SERVER[:PORT]"`
		Command string   `positional-arg-name:"query|inject"`
		Rest    []string `positional-arg-name:"ARGS"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var opts options
	p := flags.NewParser(&opts, flags.Default)
	p.Usage = "SERVER[:PORT] query [--follow] [site=VALUE] [host=VALUE] [uri=VALUE] [status=VALUE] [since=RFC3339] [until=RFC3339]\n  or: pond SERVER[:PORT] inject FILE"

	if _, err := p.ParseArgs(args); err != nil {
		if flags.WroteHelp(err) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	addr := opts.Args.Server
	if !strings.Contains(addr, ":") {
		addr += ":" + defaultPort
	}
	timeout := time.Duration(opts.Timeout) * time.Second

	switch opts.Args.Command {
	case "query":
		return runQuery(addr, timeout, opts.Follow, opts.Args.Rest)
	case "inject":
		if len(opts.Args.Rest) != 1 {
			fmt.Fprintln(os.Stderr, "inject requires exactly one FILE argument")
			return 2
		}
		return runInject(addr, timeout, opts.Args.Rest[0])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", opts.Args.Command)
		p.WriteHelp(os.Stderr)
		return 2
	}
}

func runQuery(addr string, timeout time.Duration, follow bool, filterArgs []string) int {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer conn.Close()

	if err := wire.WriteFrame(conn, wire.Frame{ID: clientQueryID, Command: wire.CmdQuery}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	for _, kv := range filterArgs {
		cmd, payload, perr := parseFilterArg(kv)
		if perr != nil {
			fmt.Fprintln(os.Stderr, perr)
			return 2
		}
		if err := wire.WriteFrame(conn, wire.Frame{ID: clientQueryID, Command: cmd, Payload: payload}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	if follow {
		if err := wire.WriteFrame(conn, wire.Frame{ID: clientQueryID, Command: wire.CmdFollow}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	if err := wire.WriteFrame(conn, wire.Frame{ID: clientQueryID, Command: wire.CmdCommit}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return streamResults(conn)
}

// streamResults reads frames until END, ERROR, or a connection error.
func streamResults(conn net.Conn) int {
	var seq int64
	for {
		f, err := wire.ReadFrame(conn)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		switch f.Command {
		case wire.CmdLogRecord:
			seq++
			printRecord(seq, f.Payload)
		case wire.CmdEnd:
			return 0
		case wire.CmdError:
			fmt.Fprintf(os.Stderr, "server error: %s\n", f.Payload)
			return 1
		case wire.CmdNop:
			// heartbeat; nothing to do
		}
	}
}

// printRecord re-parses a raw datagram for display; the wire protocol
// never transmits a record's store-assigned id, so seq is a
// client-local ordinal, not the server's id.
func printRecord(seq int64, raw []byte) {
	parsed, err := parser.Parse(raw)
	if err != nil {
		fmt.Printf("#%d %s\n", seq, raw)
		return
	}
	rec := record.New(seq, raw, parsed)
	fmt.Println(printer.Line(rec))
}

func runInject(addr string, timeout time.Duration, path string) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer f.Close()

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer conn.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), wire.MaxPayload)

	var id uint16
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		id++
		if err := wire.WriteFrame(conn, wire.Frame{ID: id, Command: wire.CmdInjectLogRecord, Payload: []byte(line)}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// parseFilterArg turns a "key=value" CLI token into the wire command
// and payload that expresses it, per SPEC_FULL.md §6's filter flags.
func parseFilterArg(kv string) (wire.Command, []byte, error) {
	key, value, ok := strings.Cut(kv, "=")
	if !ok {
		return 0, nil, fmt.Errorf("malformed filter argument %q, expected key=value", kv)
	}
	switch key {
	case "site":
		return wire.CmdFilterSite, []byte(value), nil
	case "host":
		return wire.CmdFilterHost, []byte(value), nil
	case "uri":
		return wire.CmdFilterURI, []byte(value), nil
	case "status":
		return wire.CmdFilterStatus, []byte(value), nil
	case "since":
		return wire.CmdFilterSince, []byte(value), nil
	case "until":
		return wire.CmdFilterUntil, []byte(value), nil
	default:
		return 0, nil, fmt.Errorf("unknown filter %q", key)
	}
}

// printer.go — renders a stored log record as the one-line human
// readable text the CLI client prints for each LOG_RECORD frame.
package printer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/check-spelling/pond/internal/record"
)

// Line formats rec the way `pond query` prints it to stdout:
//
//	#<id> <site> <host> <remote-host> [<timestamp>] "<method> <uri>" <status> <length> <duration>
//
// Absent fields print as "-", matching the datagram grammar they came from.
func Line(rec record.Record) string {
	p := rec.Parsed()
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s %s %s", rec.ID(), dashIfEmpty(p.Site), dashIfEmpty(p.Host), dashIfEmpty(p.RemoteHost))

	if p.HasTimestamp() {
		fmt.Fprintf(&b, " [%s]", p.Timestamp.Format("02/Jan/2006:15:04:05 -0700"))
	} else {
		b.WriteString(" [-]")
	}

	fmt.Fprintf(&b, " %q", strings.TrimSpace(p.Method+" "+p.URI))

	if p.HasStatus {
		fmt.Fprintf(&b, " %d", p.Status)
	} else {
		b.WriteString(" -")
	}

	if p.HasLength {
		fmt.Fprintf(&b, " %s", strconv.FormatInt(p.Length, 10))
	} else {
		b.WriteString(" -")
	}

	if p.HasDur {
		fmt.Fprintf(&b, " %dms", p.Duration.Milliseconds())
	} else {
		b.WriteString(" -")
	}

	return b.String()
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// testdata_test.go — a toy datagram encoding used only by this
// package's tests: "site|host|uri|status|unixnano". The literal bytes
// "malformed" always fail to parse, exercising the ErrMalformedRecord path.
package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/check-spelling/pond/internal/record"
)

func testParser(raw []byte) (record.Parsed, error) {
	s := string(raw)
	if s == "malformed" {
		return record.Parsed{}, fmt.Errorf("bad datagram")
	}
	parts := strings.Split(s, "|")
	if len(parts) != 5 {
		return record.Parsed{}, fmt.Errorf("expected 5 fields, got %d", len(parts))
	}
	status, err := strconv.Atoi(parts[3])
	if err != nil {
		return record.Parsed{}, err
	}
	nanos, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return record.Parsed{}, err
	}
	p := record.Parsed{
		Site:      parts[0],
		Host:      parts[1],
		URI:       parts[2],
		Status:    status,
		HasStatus: true,
	}
	if nanos != 0 {
		p.Timestamp = time.Unix(0, nanos).UTC()
	}
	return p, nil
}

func datagram(site, host, uri string, status int, ts time.Time) []byte {
	var nanos int64
	if !ts.IsZero() {
		nanos = ts.UnixNano()
	}
	return []byte(fmt.Sprintf("%s|%s|%s|%d|%d", site, host, uri, status, nanos))
}

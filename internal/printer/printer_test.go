package printer

import (
	"testing"
	"time"

	"github.com/check-spelling/pond/internal/record"
	"github.com/stretchr/testify/require"
)

func TestLineFullRecord(t *testing.T) {
	ts := time.Date(2024, time.October, 10, 13, 55, 36, 0, time.UTC)
	p := record.Parsed{
		Site: "example.com", Host: "www.example.com", RemoteHost: "203.0.113.7",
		Method: "GET", URI: "/index.html",
		Status: 200, HasStatus: true,
		Length: 1024, HasLength: true,
		Duration: 12 * time.Millisecond, HasDur: true,
		Timestamp: ts,
	}
	rec := record.New(7, []byte("raw"), p)

	line := Line(rec)
	require.Contains(t, line, "#7 example.com www.example.com 203.0.113.7")
	require.Contains(t, line, `"GET /index.html"`)
	require.Contains(t, line, "200")
	require.Contains(t, line, "1024")
	require.Contains(t, line, "12ms")
}

func TestLineAbsentFields(t *testing.T) {
	rec := record.New(1, []byte("raw"), record.Parsed{})
	line := Line(rec)
	require.Contains(t, line, "#1 - - -")
	require.Contains(t, line, `""`)
}

package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseFullLine(t *testing.T) {
	line := `example.com www.example.com 203.0.113.7 [10/Oct/2024:13:55:36 -0700] "GET /index.html HTTP/1.1" 200 1024 "https://ref.example/" "curl/8.0" 12`
	p, err := Parse([]byte(line))
	require.NoError(t, err)
	require.Equal(t, "example.com", p.Site)
	require.Equal(t, "www.example.com", p.Host)
	require.Equal(t, "203.0.113.7", p.RemoteHost)
	require.Equal(t, "GET", p.Method)
	require.Equal(t, "/index.html", p.URI)
	require.True(t, p.HasStatus)
	require.Equal(t, 200, p.Status)
	require.True(t, p.HasLength)
	require.Equal(t, int64(1024), p.Length)
	require.Equal(t, "https://ref.example/", p.Referer)
	require.Equal(t, "curl/8.0", p.UserAgent)
	require.True(t, p.HasDur)
	require.Equal(t, 12*time.Millisecond, p.Duration)
	require.True(t, p.HasTimestamp())
}

func TestParseAbsentFields(t *testing.T) {
	line := `- - - [10/Oct/2024:13:55:36 -0700] "- - -" - - "-" "-" -`
	p, err := Parse([]byte(line))
	require.NoError(t, err)
	require.Empty(t, p.Site)
	require.Empty(t, p.Host)
	require.Empty(t, p.RemoteHost)
	require.False(t, p.HasStatus)
	require.False(t, p.HasLength)
	require.False(t, p.HasDur)
	require.Empty(t, p.Referer)
	require.Empty(t, p.UserAgent)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("this is not a log line"))
	require.Error(t, err)
	var unparsable *ErrUnparsable
	require.ErrorAs(t, err, &unparsable)
}

func TestParseRejectsBadStatus(t *testing.T) {
	line := `s h r [10/Oct/2024:13:55:36 -0700] "GET / HTTP/1.1" abc - "-" "-" -`
	_, err := Parse([]byte(line))
	require.Error(t, err)
}

func TestParseBadTimestampLeavesZeroValue(t *testing.T) {
	line := `s h r [not-a-date] "GET / HTTP/1.1" 200 10 "-" "-" 1`
	p, err := Parse([]byte(line))
	require.NoError(t, err)
	require.False(t, p.HasTimestamp())
}

// Package parser implements the datagram wire parser spec.md scopes
// out of the core: it turns one raw access-log line into a
// record.Parsed view, or returns an error for a line this module's
// grammar (see SPEC_FULL.md §4.5) cannot tokenize.
//
// Grammar (a "-" in any field means absent):
//
//	site host remote-host [timestamp] "method URI proto" status length "referer" "user-agent" duration-ms
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/check-spelling/pond/internal/record"
)

// timeLayout is the Common Log Format bracketed timestamp, e.g. "10/Oct/2024:13:55:36 -0700".
const timeLayout = "02/Jan/2006:15:04:05 -0700"

var lineRE = regexp.MustCompile(
	`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([^"]*)" (\d{3}|-) (\d+|-) "([^"]*)" "([^"]*)" (\d+|-)$`,
)

// ErrUnparsable is returned when raw does not tokenize into this grammar.
type ErrUnparsable struct {
	Line string
}

func (e *ErrUnparsable) Error() string {
	return fmt.Sprintf("parser: line does not match the access-log grammar: %q", e.Line)
}

// Parse turns one raw datagram line into its structured view.
func Parse(raw []byte) (record.Parsed, error) {
	line := string(raw)
	m := lineRE.FindStringSubmatch(line)
	if m == nil {
		return record.Parsed{}, &ErrUnparsable{Line: line}
	}

	p := record.Parsed{
		Site:       orEmpty(m[1]),
		Host:       orEmpty(m[2]),
		RemoteHost: orEmpty(m[3]),
		Referer:    orEmpty(m[8]),
		UserAgent:  orEmpty(m[9]),
	}

	if ts, err := time.Parse(timeLayout, m[4]); err == nil {
		p.Timestamp = ts
	}

	if method, uri, ok := splitRequestLine(m[5]); ok {
		p.Method = orEmpty(method)
		p.URI = orEmpty(uri)
	}

	if m[6] != "-" {
		status, err := strconv.Atoi(m[6])
		if err != nil {
			return record.Parsed{}, &ErrUnparsable{Line: line}
		}
		p.Status = status
		p.HasStatus = true
	}

	if m[7] != "-" {
		length, err := strconv.ParseInt(m[7], 10, 64)
		if err != nil {
			return record.Parsed{}, &ErrUnparsable{Line: line}
		}
		p.Length = length
		p.HasLength = true
	}

	if m[10] != "-" {
		ms, err := strconv.ParseInt(m[10], 10, 64)
		if err != nil {
			return record.Parsed{}, &ErrUnparsable{Line: line}
		}
		p.Duration = time.Duration(ms) * time.Millisecond
		p.HasDur = true
	}

	return p, nil
}

func orEmpty(field string) string {
	if field == "-" {
		return ""
	}
	return field
}

func splitRequestLine(reqLine string) (method, uri string, ok bool) {
	if reqLine == "" {
		return "", "", false
	}
	var methodEnd, uriEnd int = -1, -1
	for i := 0; i < len(reqLine); i++ {
		if reqLine[i] == ' ' {
			if methodEnd == -1 {
				methodEnd = i
			} else if uriEnd == -1 {
				uriEnd = i
				break
			}
		}
	}
	if methodEnd == -1 {
		return reqLine, "", true
	}
	if uriEnd == -1 {
		return reqLine[:methodEnd], reqLine[methodEnd+1:], true
	}
	return reqLine[:methodEnd], reqLine[methodEnd+1 : uriEnd], true
}

// filter.go — pure predicate over a parsed Record. No I/O, no allocation.
package store

import (
	"strings"
	"time"

	"github.com/check-spelling/pond/internal/record"
)

// Filter holds the fixed, small set of query constraints this system
// supports. All absent fields match everything; Since/Until default to
// the representable min/max timepoints (i.e. zero Time means open).
type Filter struct {
	Site string // exact match; "" matches any site
	Host string // exact match; "" matches any host

	// URISubstring matches if the record's URI contains it anywhere.
	// A caller wanting prefix semantics passes a substring that starts
	// the desired prefix and additionally anchors with HasPrefix below
	// via URIPrefix; the two are independent and both must pass when set.
	URISubstring string
	URIPrefix    string

	// Status is an exact HTTP status match; 0 means unset.
	Status int
	// StatusClass matches status/100 (e.g. 2 for any 2xx); 0 means unset.
	StatusClass int

	Since time.Time
	Until time.Time
}

// HasTimeRange reports whether either time bound is set.
func (f Filter) HasTimeRange() bool {
	return !f.Since.IsZero() || !f.Until.IsZero()
}

// Accept reports whether p satisfies every constraint in f.
func (f Filter) Accept(p record.Parsed) bool {
	if f.Site != "" && p.Site != f.Site {
		return false
	}
	if f.Host != "" && p.Host != f.Host {
		return false
	}
	if f.URISubstring != "" && !strings.Contains(p.URI, f.URISubstring) {
		return false
	}
	if f.URIPrefix != "" && !strings.HasPrefix(p.URI, f.URIPrefix) {
		return false
	}
	if f.Status != 0 && (!p.HasStatus || p.Status != f.Status) {
		return false
	}
	if f.StatusClass != 0 && (!p.HasStatus || p.Status/100 != f.StatusClass) {
		return false
	}
	if f.HasTimeRange() {
		if !p.HasTimestamp() {
			return false
		}
		if !f.Since.IsZero() && p.Timestamp.Before(f.Since) {
			return false
		}
		if !f.Until.IsZero() && p.Timestamp.After(f.Until) {
			return false
		}
	}
	return true
}

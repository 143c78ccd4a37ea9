// record.go — immutable parsed+raw log datagram with a monotonic id.
package record

import "time"

// Parsed is the structured view of a log datagram. Every field is
// optional; a zero value means the datagram did not carry that field.
type Parsed struct {
	Site       string
	Host       string
	Method     string
	URI        string
	Referer    string
	UserAgent  string
	RemoteHost string
	Status     int
	HasStatus  bool
	Length     int64
	HasLength  bool
	Duration   time.Duration
	HasDur     bool
	Timestamp  time.Time // zero Time means absent
}

// HasTimestamp reports whether Parsed carries a usable timestamp.
func (p Parsed) HasTimestamp() bool {
	return !p.Timestamp.IsZero()
}

// Record is an immutable value owning a monotonically assigned id, the
// raw datagram bytes, and the parsed view. Only the Database constructs
// Records and only the Database destroys them (by eviction); everything
// else holds a borrowed reference.
type Record struct {
	id     int64
	raw    []byte
	parsed Parsed
}

// New builds a Record. id must be non-zero and larger than any
// previously assigned id in the owning Database; this is the Database's
// responsibility, not Record's.
func New(id int64, raw []byte, parsed Parsed) Record {
	return Record{id: id, raw: raw, parsed: parsed}
}

// ID returns the record's monotonic, never-reused, never-zero id.
func (r Record) ID() int64 { return r.id }

// Raw returns the raw datagram bytes as produced by the upstream parser's input.
func (r Record) Raw() []byte { return r.raw }

// Parsed returns the structured view of the datagram.
func (r Record) Parsed() Parsed { return r.parsed }

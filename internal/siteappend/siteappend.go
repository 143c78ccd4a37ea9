// siteappend.go — per-site append sink: a best-effort observer that
// writes every record's raw datagram to a file named after its
// sanitized site, per SPEC_FULL.md §4.7. It is not part of the
// deletion/eviction-aware append-listener list the core uses for
// queries — it is a second, fire-and-forget fan-out on the same
// append event, wired in by the server shell, not the core.
package siteappend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/check-spelling/pond/internal/record"
	"github.com/rs/zerolog"
)

// unknownSiteFile is the fallback destination for records whose site
// is empty or contains no sanitizable character at all. Per spec.md
// §9's open question, this sink never silently drops a record.
const unknownSiteFile = "_unknown"

// Sink appends raw datagrams to one file per sanitized site name under
// a fixed directory. Safe for the loop goroutine to call directly;
// file handles are cached and reused across appends.
type Sink struct {
	dir string
	log zerolog.Logger

	mu    sync.Mutex
	files map[string]*os.File
}

// New creates a Sink rooted at dir. dir is created if it does not exist.
func New(dir string, log zerolog.Logger) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("siteappend: create dir: %w", err)
	}
	return &Sink{dir: dir, log: log, files: make(map[string]*os.File)}, nil
}

// OnAppend writes rec's raw datagram to the file for its sanitized
// site, opening it on first use. Failures are logged, never returned:
// per SPEC_FULL.md §4.7 and the Non-goals, this path is best-effort
// and must never affect query delivery.
func (s *Sink) OnAppend(rec record.Record) {
	name := sanitize(rec.Parsed().Site)

	f, err := s.fileFor(name)
	if err != nil {
		s.log.Warn().Err(err).Str("site", name).Msg("siteappend: could not open file")
		return
	}

	line := append(append([]byte{}, rec.Raw()...), '\n')
	if _, err := f.Write(line); err != nil {
		s.log.Warn().Err(err).Str("site", name).Msg("siteappend: write failed")
	}
}

// Close closes every open file. Called on daemon shutdown.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		_ = f.Close()
	}
	s.files = make(map[string]*os.File)
}

func (s *Sink) fileFor(name string) (*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.files[name]; ok {
		return f, nil
	}

	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY|os.O_NOFOLLOW, 0o644)
	if err != nil {
		return nil, err
	}
	s.files[name] = f
	return f, nil
}

// sanitize replaces every character outside [A-Za-z0-9] with '_', and
// falls back to unknownSiteFile for an empty or all-punctuation site.
func sanitize(site string) string {
	if site == "" {
		return unknownSiteFile
	}
	var b strings.Builder
	hasAlnum := false
	for _, r := range site {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hasAlnum = true
		default:
			b.WriteByte('_')
		}
	}
	if !hasAlnum {
		return unknownSiteFile
	}
	return b.String()
}

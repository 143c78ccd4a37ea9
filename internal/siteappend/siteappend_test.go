package siteappend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/check-spelling/pond/internal/record"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestOnAppendWritesPerSiteFile(t *testing.T) {
	dir := t.TempDir()
	sink, err := New(dir, zerolog.Nop())
	require.NoError(t, err)
	defer sink.Close()

	sink.OnAppend(record.New(1, []byte("rec-a"), record.Parsed{Site: "example.com"}))
	sink.OnAppend(record.New(2, []byte("rec-a-2"), record.Parsed{Site: "example.com"}))

	data, err := os.ReadFile(filepath.Join(dir, "example_com"))
	require.NoError(t, err)
	require.Equal(t, "rec-a\nrec-a-2\n", string(data))
}

func TestOnAppendRoutesUnknownSiteToFallback(t *testing.T) {
	dir := t.TempDir()
	sink, err := New(dir, zerolog.Nop())
	require.NoError(t, err)
	defer sink.Close()

	sink.OnAppend(record.New(1, []byte("no-site"), record.Parsed{Site: ""}))

	data, err := os.ReadFile(filepath.Join(dir, "_unknown"))
	require.NoError(t, err)
	require.Equal(t, "no-site\n", string(data))
}

func TestSanitizeReplacesNonAlnum(t *testing.T) {
	require.Equal(t, "a_b_c", sanitize("a.b/c"))
	require.Equal(t, unknownSiteFile, sanitize(""))
	require.Equal(t, unknownSiteFile, sanitize("..."))
}

package main

import (
	"testing"

	flags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"
)

func TestRunHelp(t *testing.T) {
	code := run([]string{"--help"})
	require.Equal(t, 0, code)
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	code := run([]string{"--not-a-real-flag"})
	require.Equal(t, 2, code)
}

func TestFlagOverridesOnlyReflectsExplicitFlags(t *testing.T) {
	var opts cliOptions
	p := flags.NewParser(&opts, flags.Default)
	_, err := p.ParseArgs([]string{"--listen", ":9999", "--log-level", "debug"})
	require.NoError(t, err)

	ov := flagOverrides(&opts, p)
	require.NotNil(t, ov.ListenAddr)
	require.Equal(t, ":9999", *ov.ListenAddr)
	require.NotNil(t, ov.LogLevel)
	require.Equal(t, "debug", *ov.LogLevel)
	require.Nil(t, ov.RingCapacity)
	require.Nil(t, ov.SiteAppendDir)
	require.Nil(t, ov.HighWaterMark)
}

// main.go — pondd daemon entry point. Wires configuration, logging,
// the record store, the datagram parser, the optional per-site append
// sink, and the server shell together, per SPEC_FULL.md §2 and §4.9.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/check-spelling/pond/internal/config"
	"github.com/check-spelling/pond/internal/logging"
	"github.com/check-spelling/pond/internal/parser"
	"github.com/check-spelling/pond/internal/pondserver"
	"github.com/check-spelling/pond/internal/siteappend"
	"github.com/check-spelling/pond/internal/store"
	"github.com/google/uuid"
	flags "github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"
)

type cliOptions struct {
	Config        string `long:"config" description:"path to a YAML config file" value-name:"PATH"`
	ListenAddr    string `long:"listen" description:"TCP listen address" value-name:"ADDR"`
	RingCapacity  int    `long:"ring-capacity" description:"number of records the ring retains"`
	SiteAppendDir string `long:"site-append-dir" description:"directory for per-site append files (empty disables)" value-name:"DIR"`
	LogLevel      string `long:"log-level" description:"debug, info, warn, or error"`
	HighWaterMark int    `long:"high-water-mark" description:"outbound buffer capacity per connection"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var opts cliOptions
	p := flags.NewParser(&opts, flags.Default)
	if _, err := p.ParseArgs(args); err != nil {
		if flags.WroteHelp(err) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := config.Load(opts.Config, flagOverrides(&opts, p))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log := logging.New(os.Stderr, cfg.LogLevel).With().Str("instance_id", uuid.NewString()).Logger()

	var siteSink *siteappend.Sink
	if cfg.SiteAppendDir != "" {
		siteSink, err = siteappend.New(cfg.SiteAppendDir, log.With().Str("component", "siteappend").Logger())
		if err != nil {
			log.Error().Err(err).Msg("could not start per-site append sink")
			return 1
		}
		defer siteSink.Close()
	}

	db := store.New(cfg.RingCapacity, parser.Parse)
	srv := pondserver.New(db, parser.Parse, siteSink, cfg.HighWaterMark, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx, cfg.ListenAddr) })
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		select {
		case s := <-sigCh:
			log.Info().Str("signal", s.String()).Msg("shutting down")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited")
		return 1
	}
	return 0
}

// flagOverrides reports only the flags the user actually passed,
// since a zero-value int or empty string is indistinguishable from
// "not set" without consulting the parser.
func flagOverrides(opts *cliOptions, p *flags.Parser) *config.FlagOverrides {
	ov := &config.FlagOverrides{}
	for _, fo := range p.Options() {
		if !fo.IsSet() {
			continue
		}
		switch fo.LongName {
		case "listen":
			ov.ListenAddr = &opts.ListenAddr
		case "ring-capacity":
			ov.RingCapacity = &opts.RingCapacity
		case "site-append-dir":
			ov.SiteAppendDir = &opts.SiteAppendDir
		case "log-level":
			ov.LogLevel = &opts.LogLevel
		case "high-water-mark":
			ov.HighWaterMark = &opts.HighWaterMark
		}
	}
	return ov
}

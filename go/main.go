package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/rmmh/cubeoccluder/go/region"
	"github.com/rmmh/cubeoccluder/go/store"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: cubeoccluder <command> [flags] [args]

commands:
  compile [filterstrings]   compile every region of a world into the store
  serve                     serve cull data over HTTP, compiling on demand
  stats <rx> <rz>           compile one region and print a summary

run "cubeoccluder <command> -h" for flags`)
}

// setup parses the flags of a subcommand and installs its logger.
func setup(name string, args []string) (*Config, *commandFlags, error) {
	f := newCommandFlags(name)
	cfg, err := f.parse(args)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.logger()
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, f, nil
}

func runCompile(ctx context.Context, args []string) error {
	cfg, f, err := setup("compile", args)
	if err != nil {
		return err
	}
	bm, err := cfg.blockMapper()
	if err != nil {
		return err
	}
	w, err := cfg.world(f.world, bm)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	_, err = compileWorld(ctx, cfg, st, f.world, w, f.fs.Args())
	return err
}

func runServe(ctx context.Context, args []string) error {
	cfg, _, err := setup("serve", args)
	if err != nil {
		return err
	}
	if len(cfg.Worlds) == 0 {
		return errors.New("no worlds configured")
	}
	bm, err := cfg.blockMapper()
	if err != nil {
		return err
	}
	worlds := map[string]*region.World{}
	for _, name := range lo.Keys(cfg.Worlds) {
		if worlds[name], err = cfg.world(name, bm); err != nil {
			return err
		}
	}
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	return serve(ctx, cfg, st, worlds)
}

func runStats(ctx context.Context, args []string) error {
	cfg, f, err := setup("stats", args)
	if err != nil {
		return err
	}
	if f.fs.NArg() != 2 {
		return errors.New("stats needs region coordinates <rx> <rz>")
	}
	rx, err := strconv.Atoi(f.fs.Arg(0))
	if err != nil {
		return errors.Wrap(err, "bad rx")
	}
	rz, err := strconv.Atoi(f.fs.Arg(1))
	if err != nil {
		return errors.Wrap(err, "bad rz")
	}
	bm, err := cfg.blockMapper()
	if err != nil {
		return err
	}
	w, err := cfg.world(f.world, bm)
	if err != nil {
		return err
	}
	return printStats(os.Stdout, cfg, f.world, w, rx, rz)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "compile":
		err = runCompile(ctx, os.Args[2:])
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "stats":
		err = runStats(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		slog.Error(os.Args[1]+" failed", "err", err)
		os.Exit(1)
	}
}

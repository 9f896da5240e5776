// Package cli implements the clubhouse command line.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mmynk/clubhouse/internal/club"
	"github.com/mmynk/clubhouse/internal/config"
	"github.com/mmynk/clubhouse/internal/importer"
	"github.com/mmynk/clubhouse/internal/records"
	"github.com/mmynk/clubhouse/internal/share"
	"github.com/mmynk/clubhouse/internal/snapshot"
	"github.com/mmynk/clubhouse/internal/storage/sqlite"
	"github.com/mmynk/clubhouse/pkg/logging"
)

// ErrUsage means the command line was malformed. Usage has already been
// printed.
var ErrUsage = errors.New("usage error")

// Options wire the command to its environment. Zero values use the process
// defaults.
type Options struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	Clipboard share.Clipboard
	Now       func() time.Time
	// Logger skips logging setup from the config when set.
	Logger *slog.Logger
}

// app is one invocation's wiring.
type app struct {
	cfg    config.Config
	stdin  io.Reader
	out    io.Writer
	errOut io.Writer
	clip   share.Clipboard
	now    func() time.Time
	logger *slog.Logger

	kv      *sqlite.KVStore
	store   *records.Store
	svc     *club.Service
	engine  *importer.Engine
	builder *snapshot.Builder
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"dashboard", "show the club overview", runDashboard},
	{"member", "list and edit the roster", runMember},
	{"outing", "list and edit outings", runOuting},
	{"score", "record and list rounds", runScore},
	{"fee", "manage the fee ledger", runFee},
	{"export", "write all data to a dated JSON file", runExport},
	{"token", "print a pasteable share code", runToken},
	{"link", "print a share link", runLink},
	{"import", "import from a code, link, file or the clipboard", runImport},
	{"sync", "configure and run cloud sync", runSync},
	{"ask", "ask the AI caddy", runAsk},
	{"places", "suggest places to eat near a course", runPlaces},
}

// Run executes the command line args (without the program name).
func Run(ctx context.Context, args []string, opts Options) error {
	a := &app{
		stdin:  opts.Stdin,
		out:    opts.Stdout,
		errOut: opts.Stderr,
		clip:   opts.Clipboard,
		now:    opts.Now,
		logger: opts.Logger,
	}
	if a.stdin == nil {
		a.stdin = os.Stdin
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.errOut == nil {
		a.errOut = os.Stderr
	}
	if a.clip == nil {
		a.clip = share.SystemClipboard{}
	}
	if a.now == nil {
		a.now = time.Now
	}

	fs := flag.NewFlagSet("clubhouse", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	configPath := fs.String("config", "", "config file (default ~/.config/clubhouse/config.toml)")
	storePath := fs.String("store", "", "record store file (overrides store_path)")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Usage = func() { a.usage(fs) }
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if fs.NArg() == 0 {
		a.usage(fs)
		return ErrUsage
	}

	name := fs.Arg(0)
	cmd, ok := lookup(name)
	if !ok {
		fmt.Fprintf(a.errOut, "clubhouse: unknown command %q\n", name)
		a.usage(fs)
		return ErrUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *storePath != "" {
		cfg.StorePath = *storePath
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg

	if a.logger == nil {
		closer := logging.SetupWithOptions(logging.Options{
			Level:      cfg.Log.Level,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Stderr:     a.errOut,
		})
		defer closer.Close()
		a.logger = slog.Default()
	}

	if err := a.open(); err != nil {
		return err
	}
	defer a.kv.Close()

	return cmd.run(ctx, a, fs.Args()[1:])
}

func (a *app) open() error {
	kv, err := sqlite.New(a.cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	a.kv = kv
	a.store = records.New(kv, records.WithLogger(a.logger), records.WithClock(a.now))
	a.svc = club.NewService(a.store, club.WithLogger(a.logger), club.WithClock(a.now))
	a.engine = importer.New(a.store, a.logger)
	a.builder = snapshot.NewBuilder(a.store, a.now)
	a.logger.Debug("Record store opened", "path", a.cfg.StorePath)
	return nil
}

func (a *app) usage(fs *flag.FlagSet) {
	fmt.Fprintln(a.errOut, "usage: clubhouse [flags] <command> [args]")
	fmt.Fprintln(a.errOut, "\ncommands:")
	names := make([]string, 0, len(commands))
	width := 0
	for _, c := range commands {
		names = append(names, c.name)
		width = max(width, len(c.name))
	}
	sort.Strings(names)
	for _, n := range names {
		c, _ := lookup(n)
		fmt.Fprintf(a.errOut, "  %-*s  %s\n", width, c.name, c.summary)
	}
	fmt.Fprintln(a.errOut, "\nflags:")
	fs.PrintDefaults()
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// subcommand splits "list", "add" and so on from their arguments, defaulting
// to def.
func subcommand(args []string, def string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return def, args
	}
	return args[0], args[1:]
}

func newFlags(name string, a *app) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	return nil
}

func unknownSub(a *app, cmd, sub string, valid ...string) error {
	fmt.Fprintf(a.errOut, "clubhouse %s: unknown subcommand %q (want %s)\n", cmd, sub, strings.Join(valid, ", "))
	return ErrUsage
}

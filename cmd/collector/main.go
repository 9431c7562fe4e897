package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/riskibarqy/halo-stats/internal/app"
	"github.com/riskibarqy/halo-stats/internal/config"
	"github.com/riskibarqy/halo-stats/internal/observability"
	"github.com/riskibarqy/halo-stats/internal/platform/logging"
	"github.com/riskibarqy/halo-stats/internal/usecase"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var commands = map[string]string{
	"auth":     "run the interactive sign-in and store the credential bundle",
	"match":    "collect new matches for one player (-xuid)",
	"next":     "collect matches for the player with the oldest coverage",
	"metadata": "fill in asset names and gamertags",
	"detail":   "fetch team, player and bot stats for stored matches (-limit)",
	"daemon":   "run next, detail and metadata on a schedule",
	"token":    "report how long the stored spartan token stays valid",
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(exitFailure)
	}
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}
	name := args[0]
	if _, ok := commands[name]; !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		printUsage(stderr)
		return exitUsage
	}

	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(stderr)
	xuid := flags.String("xuid", "", "player xuid (match)")
	limit := flags.Int("limit", 0, "matches per detail run, 0 uses DETAIL_BATCH_LIMIT (detail)")
	code := flags.String("code", "", "authorization code, prompted for when empty (auth)")
	if err := flags.Parse(args[1:]); err != nil {
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return exitFailure
	}

	logger := logging.NewConsole(cfg.LogLevel)
	if name == "daemon" {
		logger = logging.NewJSON(cfg.LogLevel)
	}
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		return exitFailure
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("shutdown uptrace", "error", err)
		}
	}()
	stopProfiling, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		return exitFailure
	}
	defer func() { _ = stopProfiling() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prompt := newPromptCodes(stdin, stdout)
	var codes usecase.CodeProvider = prompt
	if name == "daemon" {
		codes = nil
	}
	collector, err := app.NewCollector(ctx, cfg, codes, logger)
	if err != nil {
		logger.Error("build collector", "error", err)
		return exitFailure
	}
	defer func() {
		if err := collector.Close(); err != nil {
			logger.Warn("close database", "error", err)
		}
	}()

	switch name {
	case "auth":
		err = runAuth(ctx, collector, *code, prompt, stdout)
	case "match":
		err = runMatch(ctx, collector, *xuid, stdout)
	case "next":
		err = runNext(ctx, collector, stdout)
	case "metadata":
		err = runMetadata(ctx, collector, stdout)
	case "detail":
		err = runDetail(ctx, collector, *limit, stdout)
	case "daemon":
		err = runDaemon(ctx, collector, cfg, logger)
	case "token":
		err = runToken(ctx, collector, stdout)
	}
	if err != nil {
		logger.Error("command failed", "command", name, "error", err)
		if app.IsOperatorError(err) {
			return exitUsage
		}
		return exitFailure
	}
	return exitOK
}

func printUsage(w io.Writer) {
	bin := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "usage: %s <command> [flags]\n\ncommands:\n", bin)
	for _, name := range []string{"auth", "token", "match", "next", "metadata", "detail", "daemon"} {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name])
	}
	fmt.Fprintln(w, "\nexamples:")
	fmt.Fprintf(w, "  %s auth\n", bin)
	fmt.Fprintf(w, "  %s match -xuid 2533274800000001\n", bin)
	fmt.Fprintf(w, "  %s detail -limit 50\n", bin)
}

// NovaCal is a single-user Telegram assistant for Google Calendar.
//
// It long-polls the Telegram Bot API, runs each message through a
// tool-calling agent backed by an OpenAI-compatible chat endpoint, and
// executes calendar reads and mutations against Google Calendar v3.
// Conversation turns persist in a SQL store so follow-ups keep their
// context across restarts. Configuration is loaded from a single YAML
// file discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	novacal serve        Start the bot
//	novacal init [dir]   Write an example config.yaml
//	novacal version      Print version and build information
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/viochris/telegram-calendar-ai-bot/examples"
	"github.com/viochris/telegram-calendar-ai-bot/internal/agent"
	"github.com/viochris/telegram-calendar-ai-bot/internal/bot"
	"github.com/viochris/telegram-calendar-ai-bot/internal/buildinfo"
	"github.com/viochris/telegram-calendar-ai-bot/internal/config"
	"github.com/viochris/telegram-calendar-ai-bot/internal/gate"
	"github.com/viochris/telegram-calendar-ai-bot/internal/gcal"
	"github.com/viochris/telegram-calendar-ai-bot/internal/llm"
	"github.com/viochris/telegram-calendar-ai-bot/internal/memory"
	"github.com/viochris/telegram-calendar-ai-bot/internal/telegram"
	"github.com/viochris/telegram-calendar-ai-bot/internal/tools"
)

// main constructs the OS-level environment and delegates to [run] so
// the startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Arguments are parsed by hand: the flag
// package relies on package-level globals, and our argument surface is
// two flags and two commands.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		case !strings.HasPrefix(args[i], "-"):
			cmdArgs = append(cmdArgs, args[i])
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "init":
		return runInit(stdout, cmdArgs)
	case "version":
		return runVersion(stdout)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runInit writes the example config into dir (default ".") so a new
// deployment has a starting point. An existing config is never touched.
func runInit(stdout io.Writer, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}
	if err := os.WriteFile(path, examples.ConfigYAML, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Fprintf(stdout, "Wrote %s\n", path)
	fmt.Fprintln(stdout, "Edit it (or set TELEGRAM_BOT_TOKEN and GOOGLE_API_KEY), then run: novacal serve")
	return nil
}

func runVersion(w io.Writer) error {
	fmt.Fprintln(w, buildinfo.String())
	info := buildinfo.Info()
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "NovaCal - Telegram Google Calendar Assistant")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: novacal [flags] <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the bot")
	fmt.Fprintln(w, "  init [dir]   Write an example config.yaml (default: .)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/novacal/config.yaml, /etc/novacal/config.yaml")
	return nil
}

// runServe wires every component and blocks on the Telegram poll loop
// until SIGINT or SIGTERM.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", cfgPath, err)
	}

	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		if level, err = config.ParseLogLevel(cfg.LogLevel); err != nil {
			return err
		}
	}
	logger := slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
	slog.SetDefault(logger)

	logger.Info("novacal starting",
		"version", buildinfo.Version,
		"config", cfgPath,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := gcal.MaterializeCredentials(cfg.Calendar.CredentialsFile, cfg.Calendar.TokenFile); err != nil {
		return fmt.Errorf("materialize calendar credentials: %w", err)
	}

	store, err := memory.Open(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open turn store: %w", err)
	}
	defer store.Close()

	stats := store.Stats(ctx)
	logger.Info("turn store ready",
		"backend", stats["backend"],
		"sessions", stats["sessions"],
		"turns", stats["turns"],
	)

	cal, err := gcal.NewClient(ctx, cfg.Calendar.CredentialsFile, cfg.Calendar.TokenFile, gcal.Options{
		CalendarID:        cfg.Calendar.CalendarID,
		HolidayCalendarID: cfg.Calendar.HolidayCalendarID,
		Location:          gcal.FixedOffset(cfg.Calendar.UTCOffsetHours),
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("create calendar client: %w", err)
	}

	llmClient := llm.NewOpenAIClient(llm.OpenAIOptions{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		Logger:      logger,
	})

	registry := tools.NewRegistry(cal, time.Duration(cfg.Agent.ToolTimeoutSec)*time.Second, logger)
	loop := agent.NewLoop(logger, llmClient, registry, cfg.LLM.Model, cfg.Agent.MaxIterations)

	tgClient := telegram.NewClient(cfg.Telegram.Token, logger)
	alerter := telegram.NewAlerter(tgClient, cfg.Telegram.DeveloperChatID)

	g := gate.New(strconv.FormatInt(cfg.Telegram.DeveloperChatID, 10))
	logger.Info("identity gate armed", "authorized", g.AuthorizedID())

	orchestrator := bot.New(logger, g, store, loop, alerter, cfg.Agent.HistoryWindow)

	bridge := telegram.NewBridge(telegram.BridgeConfig{
		API:         tgClient,
		Handler:     orchestrator,
		Alerter:     alerter,
		Logger:      logger,
		PollTimeout: cfg.Telegram.PollTimeoutSec,
	})

	logger.Info("novacal online",
		"model", cfg.LLM.Model,
		"calendar", cfg.Calendar.CalendarID,
		"history_window", cfg.Agent.HistoryWindow,
	)

	bridge.Start(ctx)

	logger.Info("novacal stopped", "uptime", buildinfo.Uptime())
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/flanker-wargame/client/internal/config"
	"github.com/flanker-wargame/client/internal/gateway"
	"github.com/flanker-wargame/client/internal/logging"
	intOtel "github.com/flanker-wargame/client/internal/otel"
	"github.com/flanker-wargame/client/internal/session"

	"github.com/rs/zerolog"
)

// BuildDate and Version can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "flanker-client"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// JournalLogger is used by the storage backends and the journal queue
	JournalLogger zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// Session is the route every controller and the gateway share
	Session *session.Context

	// Gateway talks to the game server
	Gateway *gateway.Client

	LogFilePath string
	LogFile     *os.File

	SessionStartTime time.Time = time.Now()
)

const usage = `usage: flanker-client [flags] <command> [args]

commands:
  play          interactive turn controller (default)
  edit          interactive terrain editor
  logs          print the action log of the current game
  archive       record the current game's journal to storage
  save <scene>  save the current game as a new scene
  ai-play       let the server play the AI turn

flags:
`

func main() {
	fs := flag.NewFlagSet(AppName, flag.ExitOnError)
	configDir := fs.String("config", ".", "directory holding "+config.FileName)
	scene := fs.String("scene", "", "scene name, overrides session.sceneName")
	game := fs.Int("game", -1, "game id, overrides session.gameId")
	level := fs.String("log-level", "", "log level, overrides logLevel")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if err := config.Load(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *scene != "" {
		config.Set("session.sceneName", *scene)
	}
	if *game >= 0 {
		config.Set("session.gameId", *game)
	}
	if *level != "" {
		config.Set("logLevel", *level)
	}

	if err := setup(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, fs.Args())
	stop()

	shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	command := "play"
	if len(args) > 0 {
		command = strings.ToLower(args[0])
		args = args[1:]
	}

	switch command {
	case "play":
		return runPlay(ctx, os.Stdin, os.Stdout)
	case "edit":
		return runEdit(ctx, os.Stdin, os.Stdout)
	case "logs":
		return printLogs(ctx, os.Stdout)
	case "archive":
		return archiveJournal(ctx, os.Stdout)
	case "save":
		if len(args) == 0 {
			return errors.New("save: no scene name provided")
		}
		return saveScene(ctx, args[0], os.Stdout)
	case "ai-play":
		if err := Gateway.PlayAI(ctx); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "AI turn played.")
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// setup creates the log file, OTel provider, loggers and gateway.
func setup() (err error) {
	sessionCfg := config.GetSessionConfig()
	Session = session.NewContext(sessionCfg.SceneName, sessionCfg.GameID)

	logsDir := config.GetString("logsDir")
	if logsDir != "" {
		if err = os.MkdirAll(logsDir, 0755); err != nil {
			return fmt.Errorf("failed to create logs dir: %w", err)
		}
		LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
		LogFile, err = os.OpenFile(LogFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
	}

	logLevel := config.GetString("logLevel")
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(logging.Options{
		File:    fileOrNil(),
		Level:   logLevel,
		Context: logging.SessionContext(Session),
	})
	Logger = SlogManager.Logger()

	// OTel needs somewhere to write; without a log file it stays off
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled && LogFile != nil {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      true,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    LogFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else if otelCfg.Endpoint != "" {
			Logger.Info("OTel provider initialized", "file", LogFilePath, "endpoint", otelCfg.Endpoint)
		} else {
			Logger.Info("OTel provider initialized", "file", LogFilePath)
		}
	}

	if OTelProvider != nil && OTelProvider.Enabled() {
		SlogManager.Setup(logging.Options{
			File:        fileOrNil(),
			Level:       logLevel,
			Provider:    OTelProvider.LoggerProvider(),
			ServiceName: otelCfg.ServiceName,
			Context:     logging.SessionContext(Session),
		})
		Logger = SlogManager.Logger()
	}
	slog.SetDefault(Logger)

	JournalLogger = logging.NewZerolog(fileOrNil(), logLevel, Session)

	gwCfg := config.GetGatewayConfig()
	Gateway = gateway.New(gwCfg.ServerURL, gwCfg.APIKey, Session, gateway.WithTimeout(gwCfg.Timeout))

	Logger.Info("Starting up",
		"version", Version,
		"buildDate", BuildDate,
		"server", gwCfg.ServerURL,
		"logFile", filepath.Base(LogFilePath),
	)
	return nil
}

// fileOrNil keeps a nil *os.File from becoming a non-nil io.Writer.
func fileOrNil() io.Writer {
	if LogFile == nil {
		return nil
	}
	return LogFile
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if SlogManager != nil {
		_ = SlogManager.Flush(ctx)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "OTel shutdown failed: %v\n", err)
		}
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}

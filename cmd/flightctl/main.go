package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/flightctl/flightctl/internal/config"
	"github.com/flightctl/flightctl/internal/logging"
	"github.com/flightctl/flightctl/internal/mission"
	intOtel "github.com/flightctl/flightctl/internal/otel"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "flightctl"
)

var (
	LogFilePath string
	LogFile     *os.File

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// MissionContext tracks the run in progress for log attributes and the monitor
	MissionContext = mission.NewContext()

	SessionStartTime time.Time = time.Now()

	sentryEnabled bool
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string) error
}

var commands = []command{
	{"run", "fly scenarios and print a report", runScenarios},
	{"list", "list the scenario catalog", listScenarios},
	{"sweep", "fly the chain under several LAND safety factors", sweepSafety},
	{"setupdb", "migrate the postgres schema", setupDB},
	{"migrate-backups", "copy SQLite dumps into postgres", migrateBackups},
	{"version", "print the version", printVersion},
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s [--config dir] [--log-level level] <command> [flags]\n\nCommands:\n", AppName)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-16s %s\n", c.name, c.summary)
	}
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == strings.ToLower(name) {
			return c, true
		}
	}
	return command{}, false
}

// setup loads the config and builds the logging, OTel and Sentry sinks.
// Logging comes up on the console first so config errors are visible.
func setup(configDir string) {
	SlogManager = logging.NewSlogManager()
	_ = SlogManager.Setup(logging.Options{Level: viper.GetString("logLevel")})
	Logger = SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "file", viper.ConfigFileUsed())
	}

	var err error
	if config.GetBool("logToFile") {
		LogFilePath = logging.LogFilePath(config.GetString("logsDir"), AppName, SessionStartTime)
		LogFile, err = logging.OpenLogFile(config.GetString("logsDir"), AppName, SessionStartTime)
		if err != nil {
			Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		} else {
			Logger.Info("Begin logging in logs directory", "path", LogFilePath)
		}
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		providerCfg := intOtel.Config{
			Enabled:         otelCfg.Enabled,
			ServiceName:     otelCfg.ServiceName,
			BatchTimeout:    otelCfg.BatchTimeout,
			LogWriter:       logSink(),
			Endpoint:        otelCfg.Endpoint,
			Insecure:        otelCfg.Insecure,
			MetricsInterval: otelCfg.MetricsInterval,
		}
		if otelCfg.Metrics {
			providerCfg.MetricWriter = logSink()
		}
		OTelProvider, err = intOtel.New(providerCfg)
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else if otelCfg.Endpoint != "" {
			Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		} else {
			Logger.Info("OTel provider initialized")
		}
	}

	// Re-setup logging with file output and optional OTel/Graylog
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	opts := logging.Options{
		Level:       config.GetString("logLevel"),
		Provider:    otelLogProvider,
		Run:         MissionContext.RunInfo,
		ServiceName: otelCfg.ServiceName,
	}
	if LogFile != nil {
		opts.File = LogFile
	}
	if config.GetBool("graylog.enabled") {
		opts.GelfAddress = config.GetString("graylog.address")
	}
	if err := SlogManager.Setup(opts); err != nil {
		Logger.Warn("Graylog unavailable, logging locally", "error", err)
		opts.GelfAddress = ""
		_ = SlogManager.Setup(opts)
	}
	Logger = SlogManager.Logger()

	if dsn := config.GetString("sentry.dsn"); dsn != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: config.GetString("sentry.environment"),
			Release:     AppName + "@" + CurrentVersion,
		})
		if err != nil {
			Logger.Warn("Failed to initialize Sentry", "error", err)
		} else {
			sentryEnabled = true
			Logger.Info("Sentry initialized", "environment", config.GetString("sentry.environment"))
		}
	}
}

// logSink is the log file when one is open, stderr otherwise.
func logSink() io.Writer {
	if LogFile != nil {
		return LogFile
	}
	return os.Stderr
}

// shutdown flushes every sink set up by setup.
func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if sentryEnabled {
		sentry.Flush(5 * time.Second)
	}
	_ = SlogManager.Flush(ctx)
	_ = SlogManager.Close()
	if LogFile != nil {
		_ = LogFile.Close()
	}
}

// reportError sends a CLI failure to Sentry tagged with the command.
func reportError(cmd string, err error) {
	if !sentryEnabled {
		return
	}
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("command", cmd)
		scope.SetTag("storage", config.GetString("storage.type"))
		if run := MissionContext.GetRun(); run != nil {
			scope.SetTag("run_id", run.ID.String())
		}
	})
	hub.CaptureException(err)
	hub.Flush(5 * time.Second)
}

func realMain(args []string) (code int) {
	global := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	global.SetInterspersed(false)
	configDir := global.String("config", ".", "directory containing "+config.FileName)
	global.String("log-level", "info", "log level (debug, info, warn, error)")
	global.Usage = func() { usage(os.Stderr) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	_ = viper.BindPFlag("logLevel", global.Lookup("log-level"))

	rest := global.Args()
	if len(rest) == 0 {
		usage(os.Stderr)
		return 2
	}
	cmd, ok := lookupCommand(rest[0])
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", rest[0])
		usage(os.Stderr)
		return 2
	}

	setup(*configDir)
	defer shutdown()
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic", "command", cmd.name, "panic", r)
			if sentryEnabled {
				sentry.CurrentHub().Recover(r)
			}
			code = 1
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	Logger.Debug("Starting command", "command", cmd.name, "version", CurrentVersion)
	if err := cmd.run(ctx, rest[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		Logger.Error("Command failed", "command", cmd.name, "error", err)
		reportError(cmd.name, err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd.name, err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

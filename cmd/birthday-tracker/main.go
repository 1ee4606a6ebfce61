package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/tartampluch/birthday-tracker/internal/config"
	"github.com/tartampluch/birthday-tracker/internal/engine"
	"github.com/tartampluch/birthday-tracker/internal/eventbus"
	"github.com/tartampluch/birthday-tracker/internal/i18n"
	"github.com/tartampluch/birthday-tracker/internal/ical"
	"github.com/tartampluch/birthday-tracker/internal/metrics"
	"github.com/tartampluch/birthday-tracker/internal/notify"
	"github.com/tartampluch/birthday-tracker/internal/server"
	"github.com/tartampluch/birthday-tracker/internal/storage"
	"github.com/tartampluch/birthday-tracker/internal/store"
	"github.com/tartampluch/birthday-tracker/internal/trigger"
	"github.com/tartampluch/birthday-tracker/internal/vcard"
)

// main delegates to runMain so deferred cleanups (log file close) run
// before the process exits; os.Exit skips defers.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
func runMain() int {
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	debugMode := flag.Bool(config.FlagDebug, false, config.FlagDescDebug)
	configPath := flag.String(config.FlagConfig, config.DefaultSettingsPath, config.FlagDescConfig)
	flag.Parse()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	logCloser := setupLogging(*debugMode)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close()
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	if err := run(ctx, *configPath); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run wires the components together and blocks serving HTTP until the
// context is canceled.
func run(ctx context.Context, configPath string) error {
	log := slog.Default()
	clock := engine.RealClock{}

	manager, err := config.NewManager(configPath)
	if err != nil {
		return err
	}
	settings := manager.Current()

	backend, err := storage.Open(storage.Config{
		Driver: settings.Storage.Driver,
		Path:   settings.Storage.Path,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageOpen, err)
	}
	defer func() { _ = backend.Close() }()
	log.Debug(config.MsgStorageReady,
		config.LogKeyDriver, settings.Storage.Driver,
		config.LogKeyPath, settings.Storage.Path,
	)

	bus := eventbus.New()
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	recStore := store.New(backend, bus, collector, log)
	if err := recStore.Load(ctx); err != nil {
		return err
	}

	translator := i18n.New(settings.Notifications.Language, log)
	manager.Subscribe(func(s *config.Settings) {
		translator.SetLanguage(s.Notifications.Language)
	})

	generator := ical.NewGenerator(clock, translator.Summary, log)
	calendar := server.NewCalendarCache(generator, recStore.Records, manager.ReminderDefaults, log)
	if err := calendar.Refresh(); err != nil {
		return err
	}
	go calendar.Watch(ctx, bus)

	trg := trigger.New(
		recStore.Records,
		func() trigger.Options {
			hour, minute := manager.NotificationTime()
			return trigger.Options{Hour: hour, Minute: minute, Defaults: manager.ReminderDefaults()}
		},
		bus, backend, clock, collector, log,
	)
	if err := trg.Restore(ctx); err != nil {
		return err
	}

	ticker := cron.New()
	if _, err := ticker.AddFunc(config.TriggerTickSpec, func() {
		if _, err := trg.Check(ctx); err != nil {
			slog.Error(config.ErrTriggerCheck,
				config.LogKeyComponent, config.CompMain,
				config.LogKeyError, err,
			)
		}
	}); err != nil {
		return err
	}
	ticker.Start()
	defer ticker.Stop()

	buildSinks := func(s *config.Settings) []notify.Sink {
		sinks := []notify.Sink{&notify.LogSink{Log: log}}
		if s.Telegram.Enabled {
			tg, err := notify.NewTelegramSink(s.Telegram.Token, s.Telegram.ChatID, translator.Reminder)
			if err != nil {
				slog.Error(config.ErrTelegramInit,
					config.LogKeyComponent, config.CompMain,
					config.LogKeyError, err,
				)
				return sinks
			}
			sinks = append(sinks, tg)
		}
		return sinks
	}
	dispatcher := notify.NewDispatcher(bus, buildSinks(settings), log)
	manager.Subscribe(func(s *config.Settings) {
		dispatcher.SetSinks(buildSinks(s))
	})
	go dispatcher.Run(ctx)

	// The importer is always wired; the handler rejects runs while no
	// import source is configured, so enabling one via a settings reload
	// works without a restart.
	importer := vcard.NewImporter(recStore, vcard.NewHTTPFetcher(), collector, log)

	go func() {
		if err := manager.Watch(ctx); err != nil {
			slog.Warn(config.ErrSettingsWatch,
				config.LogKeyComponent, config.CompMain,
				config.LogKeyError, err,
			)
		}
	}()

	srv := server.New(recStore, manager, trg, importer, calendar, clock, registry, log)
	return srv.Start(ctx)
}

// printVersion outputs the build information to stdout.
func printVersion() {
	fmt.Printf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger writing JSON to stdout
// and, when available, a log file in the user cache directory.
func setupLogging(debugMode bool) io.Closer {
	var writers []io.Writer
	var logFile *os.File

	writers = append(writers, os.Stdout)

	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}

// cmd/discord/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/keshon/autoreply/internal/command"
	"github.com/keshon/autoreply/internal/config"
	"github.com/keshon/autoreply/internal/discord"
	"github.com/keshon/autoreply/internal/httpserver"
	"github.com/keshon/autoreply/internal/logging"
	"github.com/keshon/autoreply/internal/matcher"
	"github.com/keshon/autoreply/internal/metrics"
	"github.com/keshon/autoreply/internal/pattern"
	"github.com/keshon/autoreply/internal/responder"
	"github.com/keshon/autoreply/internal/stats"
	"github.com/keshon/autoreply/pkg/cmd"
	"github.com/keshon/autoreply/pkg/jobmgr"
)

const (
	appName               = "autoreply"
	defaultBackupInterval = time.Hour
	shutdownGrace         = 10 * time.Second

	// watcherJob may fail without stopping the bot.
	watcherJob = "pattern-watcher"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "[ERR]", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}

	sink, err := logging.New(logging.Options{
		Dir:          cfg.DataDir,
		Level:        cfg.LogLevel,
		ConsoleLevel: cfg.ConsoleLogLevel,
		Format:       cfg.LogFormat,
		Service:      appName,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer sink.Close()
	log := sink.Logger()

	log.Info("Starting bot", "app", appName, "patterns_dir", cfg.PatternsDir, "data_dir", cfg.DataDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ledger, err := stats.Open(cfg.DataDir, stats.Options{Logger: log, Backups: 3, BackupInterval: defaultBackupInterval})
	if err != nil {
		return err
	}

	loadOpts := pattern.LoadOptions{MatchTimeout: cfg.MatchTimeout, Logger: log}
	store, report, err := pattern.LoadDir(cfg.PatternsDir, loadOpts)
	dirFound := err == nil
	if err != nil {
		if !errors.Is(err, pattern.ErrNoDirectory) {
			return err
		}
		log.Warn("Patterns directory not found, starting with no patterns", "dir", cfg.PatternsDir)
	}
	m.Loaded(store.Size(), report.Invalid)
	holder := pattern.NewHolder(store)

	selector := matcher.New(cfg.Policy(), log)
	selector.OnEvalError = func(string, error) { m.EvalError() }

	bot, err := discord.NewBot(cfg.DiscordToken, log)
	if err != nil {
		return err
	}

	commands := cmd.NewRegistry()
	command.Register(commands, ledger)

	resp, err := responder.New(responder.Options{
		Holder:    holder,
		Selector:  selector,
		Recorder:  ledger,
		Commands:  commands,
		Replier:   bot.Replier(),
		Log:       log,
		Matches:   sink.Matches(),
		Metrics:   m,
		Blacklist: cfg.BlacklistedChannels,
		Debug:     cfg.Debug,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 3)
	jobs := jobmgr.NewManager(func(e jobmgr.Event) {
		switch e.State {
		case jobmgr.StateFailed:
			log.Error("Job failed", "job", e.Job, "err", e.Err)
			if e.Job == watcherJob {
				return
			}
			select {
			case errCh <- fmt.Errorf("%s: %w", e.Job, e.Err):
			default:
			}
		default:
			log.Debug("Job state changed", "job", e.Job, "state", string(e.State))
		}
	})

	if cfg.WatchPatterns && dirFound {
		w := pattern.NewWatcher(cfg.PatternsDir, holder, loadOpts)
		w.OnReload = func(s *pattern.Store, r pattern.LoadReport, err error) {
			m.Reload(err)
			if err == nil {
				m.Loaded(s.Size(), r.Invalid)
			}
		}
		if err := jobs.StartAsync(ctx, watcherJob, w.Run); err != nil {
			return err
		}
	}

	if cfg.HTTPAddr != "" {
		h := httpserver.Handler(httpserver.Deps{Gatherer: reg, Stats: ledger, Holder: holder, Log: log})
		if err := jobs.StartAsync(ctx, "status-server", func(ctx context.Context) error {
			return httpserver.Run(ctx, cfg.HTTPAddr, h, log)
		}); err != nil {
			return err
		}
	}

	if err := jobs.StartAsync(ctx, "discord-session", func(ctx context.Context) error {
		return bot.Run(ctx, resp)
	}); err != nil {
		return err
	}
	log.Info("Services started", "jobs", jobs.Status())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	var runErr error
	select {
	case s := <-sig:
		log.Info("Received signal, shutting down", "signal", s.String())
	case runErr = <-errCh:
		log.Error("Shutting down after error", "err", runErr)
	}
	cancel()
	jobs.StopAll()

	if !jobs.Wait(shutdownGrace) {
		log.Warn("Shutdown timed out", "grace", shutdownGrace)
	}
	log.Info("Bot exited cleanly", "tracked_patterns", ledger.TotalPatterns())
	return runErr
}

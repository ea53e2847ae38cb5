package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"

	"bbdrop/internal/config"
	"bbdrop/internal/imagehost"
	"bbdrop/internal/logging"
	"bbdrop/internal/notifications"
	"bbdrop/internal/queue"
	"bbdrop/internal/rename"
	"bbdrop/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/bbdrop/config.toml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "bbdropd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, resolvedPath, exists, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if exists {
		logger.Info("configuration loaded", logging.String("path", resolvedPath))
	} else {
		logger.Info("no config file found; using defaults", logging.String("path", resolvedPath))
	}

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "bbdrop*.log", Exclude: []string{filepath.Join(cfg.Paths.LogDir, "bbdrop.log")}},
	)

	instanceLock := flock.New(cfg.LockFilePath())
	locked, err := instanceLock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another bbdropd instance holds %s", cfg.LockFilePath())
	}
	defer instanceLock.Unlock() //nolint:errcheck

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reclaimed, err := store.ResetStuckUploading(ctx)
	if err != nil {
		logger.Warn("reset stuck uploads", logging.Error(err))
	} else if reclaimed > 0 {
		logger.Info("reclaimed interrupted uploads", logging.Int64("count", reclaimed))
	}

	hosts, err := imagehost.NewRegistry(cfg, logger)
	if err != nil {
		return fmt.Errorf("configure image hosts: %w", err)
	}

	var renames *rename.Service
	if cfg.Upload.AutoRename {
		ledger, err := rename.OpenLedger(cfg.RenameLedgerPath())
		if err != nil {
			return fmt.Errorf("open rename ledger: %w", err)
		}
		defer ledger.Close()

		renames = rename.NewService(hosts, ledger, logger)
		if err := renames.Start(ctx); err != nil {
			return fmt.Errorf("start rename service: %w", err)
		}
		defer renames.Stop()

		if renamed, remaining, err := renames.ProcessPending(ctx); err != nil {
			logger.Warn("flush pending renames", logging.Error(err))
		} else if renamed > 0 || remaining > 0 {
			logger.Info("flushed pending renames",
				logging.Int("renamed", renamed),
				logging.Int("remaining", remaining))
		}
	}

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, hosts, renames, notifier, logger)
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Info("shutdown requested; finishing in-flight uploads (signal again to abort)")
		manager.RequestStop()
		<-sigs
		logger.Warn("second signal; aborting in-flight uploads")
		cancel()
	}()

	logger.Info("bbdropd running",
		logging.String("queue_db", cfg.QueueDBPath()),
		logging.Int("poll_interval_seconds", cfg.Daemon.QueuePollInterval))

	manager.Wait()
	manager.Stop()
	signal.Stop(sigs)

	if err := manager.LastError(); err != nil {
		logger.Warn("workflow exited with error", logging.Error(err))
	}
	logger.Info("bbdropd shut down")
	return nil
}

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dhcgn/imap-to-archive/archive"
	"github.com/dhcgn/imap-to-archive/backup"
	"github.com/dhcgn/imap-to-archive/cmd"
	"github.com/dhcgn/imap-to-archive/config"
	"github.com/dhcgn/imap-to-archive/filter"
	"github.com/dhcgn/imap-to-archive/imap"
	"github.com/dhcgn/imap-to-archive/progress"
	"github.com/dhcgn/imap-to-archive/stats"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "imap-to-archive",
		Short: "Back up an IMAP account into a portable archive file",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(c)
			if err != nil {
				return err
			}

			logger, cleanup, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			slog.SetDefault(logger)
			logger.Info("starting imap-to-archive", "host", cfg.IMAPHost, "output", cfg.Output, "format", cfg.Format)

			return run(cfg, logger)
		},
	}

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(cmd.FoldersCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	folders, err := filter.New(filter.Options{
		Include: cfg.IncludeFolder,
		Exclude: cfg.ExcludeFolder,
	})
	if err != nil {
		return fmt.Errorf("filter.New: %w", err)
	}

	session, err := imap.Dial(imap.Options{
		Host:               cfg.IMAPHost,
		Port:               cfg.IMAPPort,
		Username:           cfg.IMAPUser,
		Password:           cfg.IMAPPass,
		UseTLS:             cfg.UseTLS,
		StartTLS:           cfg.StartTLS,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}, logger)
	if err != nil {
		return fmt.Errorf("imap.Dial: %w", err)
	}
	defer func() {
		_ = session.Close()
	}()

	sink, err := archive.Open(cfg.Format, cfg.Output)
	if err != nil {
		return fmt.Errorf("archive.Open: %w", err)
	}

	b, err := backup.New(session, sink, backup.Options{
		Folders:  folders,
		Progress: progress.New(cfg.LogLevel),
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("backup.New: %w", err)
	}

	totals, err := b.Run()
	if err != nil {
		return err
	}

	logger.Info("copy completed", "elapsed", stats.FormatElapsed(totals.Elapsed))
	logger.Info("total copy size", "size", humanize.IBytes(totals.Bytes))
	logger.Info("backup summary", b.Summary().LogAttrs()...)

	if err := sink.Finalize(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}

	return nil
}

func setupLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf("imap-to-archive-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler), cleanup, nil
}

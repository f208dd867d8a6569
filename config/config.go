package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhcgn/imap-to-archive/archive"
)

// Environment variables consulted when the matching flags are absent.
const (
	EnvUsername = "IMAP_USERNAME"
	EnvPassword = "IMAP_PASSWORD"
)

// Config captures all command-line options required to run the backup.
type Config struct {
	IMAPHost           string
	IMAPPort           int
	IMAPUser           string
	IMAPPass           string
	UseTLS             bool
	StartTLS           bool
	InsecureSkipVerify bool
	Output             string
	Format             string
	IncludeFolder      []string
	ExcludeFolder      []string
	LogLevel           string
	LogDir             string
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.String("imap-host", "", "IMAP server hostname")
	flags.Int("imap-port", 993, "IMAP server port")
	flags.String("imap-user", "", "IMAP username (falls back to IMAP_USERNAME env var)")
	flags.String("imap-pass", "", "IMAP password (falls back to IMAP_PASSWORD env var)")
	flags.Bool("use-tls", true, "Use implicit TLS for the IMAP connection")
	flags.Bool("starttls", false, "Connect plaintext and upgrade via STARTTLS")
	flags.Bool("insecure-skip-verify", false, "Skip TLS certificate verification (not recommended)")
	flags.StringP("output", "o", "", "Path of the archive to write (a directory for --format mbox)")
	flags.String("format", archive.FormatZip, "Archive format: zip, tar or mbox")
	flags.StringArray("include-folder", nil, "Regex allow-list applied to folder names (mutually exclusive with --exclude-folder)")
	flags.StringArray("exclude-folder", nil, "Regex block-list applied to folder names (mutually exclusive with --include-folder)")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for log files (in addition to stdout)")

	if err := cmd.MarkFlagRequired("imap-host"); err != nil {
		return err
	}
	if err := cmd.MarkFlagRequired("output"); err != nil {
		return err
	}

	return nil
}

// LoadConfig converts the parsed Cobra flags into a Config struct with validation.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	imapHost, err := flags.GetString("imap-host")
	if err != nil {
		return Config{}, err
	}
	imapPort, err := flags.GetInt("imap-port")
	if err != nil {
		return Config{}, err
	}
	imapUser, err := flags.GetString("imap-user")
	if err != nil {
		return Config{}, err
	}
	imapPass, err := flags.GetString("imap-pass")
	if err != nil {
		return Config{}, err
	}
	useTLS, err := flags.GetBool("use-tls")
	if err != nil {
		return Config{}, err
	}
	startTLS, err := flags.GetBool("starttls")
	if err != nil {
		return Config{}, err
	}
	insecureSkipVerify, err := flags.GetBool("insecure-skip-verify")
	if err != nil {
		return Config{}, err
	}
	output, err := flags.GetString("output")
	if err != nil {
		return Config{}, err
	}
	format, err := flags.GetString("format")
	if err != nil {
		return Config{}, err
	}
	includeFolder, err := flags.GetStringArray("include-folder")
	if err != nil {
		return Config{}, err
	}
	excludeFolder, err := flags.GetStringArray("exclude-folder")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}

	if imapUser == "" {
		imapUser = os.Getenv(EnvUsername)
	}
	if imapPass == "" {
		imapPass = os.Getenv(EnvPassword)
	}

	// STARTTLS begins plaintext and upgrades; it wins over the implicit
	// TLS default.
	if startTLS {
		useTLS = false
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	cfg := Config{
		IMAPHost:           imapHost,
		IMAPPort:           imapPort,
		IMAPUser:           imapUser,
		IMAPPass:           imapPass,
		UseTLS:             useTLS,
		StartTLS:           startTLS,
		InsecureSkipVerify: insecureSkipVerify,
		Output:             output,
		Format:             strings.ToLower(format),
		IncludeFolder:      includeFolder,
		ExcludeFolder:      excludeFolder,
		LogLevel:           logLevel,
		LogDir:             logDir,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	if cfg.IMAPHost == "" {
		return fmt.Errorf("--imap-host is required")
	}
	if cfg.IMAPUser == "" {
		return fmt.Errorf("IMAP username must be provided via --imap-user or %s env var", EnvUsername)
	}
	if cfg.IMAPPass == "" {
		return fmt.Errorf("IMAP password must be provided via --imap-pass or %s env var", EnvPassword)
	}
	if cfg.IMAPPort <= 0 || cfg.IMAPPort > 65535 {
		return fmt.Errorf("--imap-port must be between 1 and 65535")
	}
	if cfg.Output == "" {
		return fmt.Errorf("--output is required")
	}

	switch cfg.Format {
	case archive.FormatZip, archive.FormatTar, archive.FormatMbox:
	default:
		return fmt.Errorf("invalid --format: %s", cfg.Format)
	}

	if len(cfg.IncludeFolder) > 0 && len(cfg.ExcludeFolder) > 0 {
		return fmt.Errorf("include and exclude folder flags are mutually exclusive")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}

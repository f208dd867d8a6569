package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dhcgn/imap-to-archive/config"
	"github.com/dhcgn/imap-to-archive/imap"
)

var (
	foldersHost               string
	foldersPort               int
	foldersUser               string
	foldersPass               string
	foldersUseTLS             bool
	foldersStartTLS           bool
	foldersInsecureSkipVerify bool
)

// FoldersCmd lists every folder of the account with its message count
// without writing anything. Useful for dry-running include/exclude patterns
// before a real backup.
var FoldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List all folders of the account with their message counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if foldersUser == "" {
			foldersUser = os.Getenv(config.EnvUsername)
		}
		if foldersPass == "" {
			foldersPass = os.Getenv(config.EnvPassword)
		}

		if foldersStartTLS {
			foldersUseTLS = false
		}

		session, err := imap.Dial(imap.Options{
			Host:               foldersHost,
			Port:               foldersPort,
			Username:           foldersUser,
			Password:           foldersPass,
			UseTLS:             foldersUseTLS,
			StartTLS:           foldersStartTLS,
			InsecureSkipVerify: foldersInsecureSkipVerify,
		}, nil)
		if err != nil {
			return err
		}
		defer func() {
			_ = session.Close()
		}()

		folders, err := session.ListFolders()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "FOLDER\tMESSAGES")
		for _, name := range folders {
			count, err := session.SelectReadOnly(name)
			if err != nil {
				fmt.Fprintf(w, "%s\t(unavailable: %v)\n", name, err)
				continue
			}
			fmt.Fprintf(w, "%s\t%d\n", name, count)
		}
		return w.Flush()
	},
}

func init() {
	flags := FoldersCmd.Flags()
	flags.StringVar(&foldersHost, "imap-host", "", "IMAP server hostname")
	flags.IntVar(&foldersPort, "imap-port", 993, "IMAP server port")
	flags.StringVar(&foldersUser, "imap-user", "", "IMAP username (falls back to IMAP_USERNAME env var)")
	flags.StringVar(&foldersPass, "imap-pass", "", "IMAP password (falls back to IMAP_PASSWORD env var)")
	flags.BoolVar(&foldersUseTLS, "use-tls", true, "Use implicit TLS for the IMAP connection")
	flags.BoolVar(&foldersStartTLS, "starttls", false, "Connect plaintext and upgrade via STARTTLS")
	flags.BoolVar(&foldersInsecureSkipVerify, "insecure-skip-verify", false, "Skip TLS certificate verification (not recommended)")
	_ = FoldersCmd.MarkFlagRequired("imap-host")
}

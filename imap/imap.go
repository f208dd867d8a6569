package imap

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/dhcgn/imap-to-archive/model"
)

type Options struct {
	Host               string
	Port               int
	Username           string
	Password           string
	UseTLS             bool
	StartTLS           bool
	InsecureSkipVerify bool
}

// Session is an authenticated connection to one IMAP account. It is a single
// stateful protocol connection: one selected folder, one in-flight command.
// It must not be shared across goroutines.
type Session struct {
	client *imapclient.Client
	logger *slog.Logger
}

// Dial connects to the IMAP server described by opts and logs in. The caller
// owns the returned session and must Close it when the backup is done.
func Dial(opts Options, logger *slog.Logger) (*Session, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("imap host is empty")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("imap port must be positive")
	}

	address := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	options := &imapclient.Options{}

	if opts.UseTLS || opts.StartTLS {
		options.TLSConfig = &tls.Config{
			ServerName:         opts.Host,
			InsecureSkipVerify: opts.InsecureSkipVerify,
		}
	}

	var (
		client *imapclient.Client
		err    error
	)

	switch {
	case opts.StartTLS:
		client, err = imapclient.DialStartTLS(address, options)
	case opts.UseTLS:
		client, err = imapclient.DialTLS(address, options)
	default:
		client, err = imapclient.DialInsecure(address, options)
	}
	if err != nil {
		return nil, fmt.Errorf("dial imap %s: %w", address, err)
	}

	if err := client.Login(opts.Username, opts.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("imap login failed: %w", err)
	}

	if logger != nil {
		logger.Debug("imap connection established", "address", address, "user", opts.Username, "tls", opts.UseTLS, "starttls", opts.StartTLS)
	}

	return &Session{client: client, logger: logger}, nil
}

// ListFolders enumerates every folder in the account with a single wildcard
// listing. The result is a snapshot; folders created or deleted on the
// server afterwards are not reflected.
func (s *Session) ListFolders() ([]string, error) {
	folders, err := s.client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}

	names := make([]string, 0, len(folders))
	for _, folder := range folders {
		names = append(names, folder.Mailbox)
	}
	return names, nil
}

// SelectReadOnly switches the session's selected folder and returns the
// folder's current message count.
func (s *Session) SelectReadOnly(folder string) (uint32, error) {
	data, err := s.client.Select(folder, &imapv2.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return 0, fmt.Errorf("select %s: %w", folder, err)
	}
	return data.NumMessages, nil
}

// FetchAll fetches messages 1 through numMessages of the selected folder in
// one request, including each message's full raw body. Messages the server
// returns without a body section come back with a nil Body.
func (s *Session) FetchAll(numMessages uint32) ([]model.Message, error) {
	if numMessages == 0 {
		return nil, nil
	}

	var seqSet imapv2.SeqSet
	seqSet.AddRange(1, numMessages)

	section := &imapv2.FetchItemBodySection{Peek: true}
	options := &imapv2.FetchOptions{
		RFC822Size:  true,
		BodySection: []*imapv2.FetchItemBodySection{section},
	}

	buffers, err := s.client.Fetch(seqSet, options).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch 1:%d: %w", numMessages, err)
	}

	messages := make([]model.Message, 0, len(buffers))
	for _, buffer := range buffers {
		messages = append(messages, model.Message{
			SeqNum: buffer.SeqNum,
			Size:   buffer.RFC822Size,
			Body:   buffer.FindBodySection(section),
		})
	}
	return messages, nil
}

// Close logs the session out and tears down the connection.
func (s *Session) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		if s.logger != nil {
			s.logger.Warn("imap logout failed", "err", err)
		}
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close imap connection: %w", err)
	}
	return nil
}

package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-mbox"
)

var errNoFolderBegun = errors.New("no folder begun")

// mboxFrom is the envelope sender recorded on every mbox From line; the
// original sender is preserved inside the message headers.
const mboxFrom = "MAILER-DAEMON"

// MboxSink writes one mbox file per folder into an output directory. Unlike
// the zip and tar sinks it cannot store content-addressed entry names; each
// body becomes one mbox-framed message in its folder's file. Repeated bodies
// are appended as-is.
type MboxSink struct {
	dir    string
	file   *os.File
	writer *mbox.Writer
}

func NewMboxSink(dir string) (*MboxSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return &MboxSink{dir: dir}, nil
}

func (m *MboxSink) BeginFolder(name string) error {
	if err := m.closeCurrent(); err != nil {
		return err
	}

	path := filepath.Join(m.dir, folderFileName(name)+".mbox")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create mbox %s: %w", path, err)
	}

	m.file = file
	m.writer = mbox.NewWriter(file)
	return nil
}

func (m *MboxSink) WriteEntry(name string, body []byte, mode fs.FileMode) error {
	if m.writer == nil {
		return fmt.Errorf("write entry %s: %w", name, errNoFolderBegun)
	}

	msg, err := m.writer.CreateMessage(mboxFrom, time.Now())
	if err != nil {
		return fmt.Errorf("start message for %s: %w", name, err)
	}
	if _, err := msg.Write(body); err != nil {
		return fmt.Errorf("write message for %s: %w", name, err)
	}
	return nil
}

func (m *MboxSink) Finalize() error {
	return m.closeCurrent()
}

func (m *MboxSink) closeCurrent() error {
	if m.writer == nil {
		return nil
	}

	writer, file := m.writer, m.file
	m.writer, m.file = nil, nil

	if err := writer.Close(); err != nil {
		_ = file.Close()
		return fmt.Errorf("close mbox writer: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close mbox file: %w", err)
	}
	return nil
}

// folderFileName flattens an IMAP folder name into a single filesystem path
// segment. Hierarchy separators inside the name are opaque to the backup but
// must not create nested directories here.
func folderFileName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_")
	return replacer.Replace(name)
}

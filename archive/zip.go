package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
)

// ZipSink writes entries into a single zip file. Entry names are
// content-derived, so a repeated name within a folder carries identical
// bytes; the sink remembers written paths and skips the duplicate instead
// of storing the same content twice.
type ZipSink struct {
	file   *os.File
	writer *zip.Writer
	seen   map[string]struct{}
}

func NewZipSink(path string) (*ZipSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create archive %s: %w", path, err)
	}

	return &ZipSink{
		file:   file,
		writer: zip.NewWriter(file),
		seen:   make(map[string]struct{}),
	}, nil
}

func (z *ZipSink) BeginFolder(name string) error {
	header := &zip.FileHeader{
		Name:     name + "/",
		Modified: time.Now(),
	}
	header.SetMode(fs.ModeDir | 0o755)

	if _, err := z.writer.CreateHeader(header); err != nil {
		return fmt.Errorf("add directory %s: %w", name, err)
	}
	return nil
}

func (z *ZipSink) WriteEntry(name string, body []byte, mode fs.FileMode) error {
	if _, ok := z.seen[name]; ok {
		return nil
	}

	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	}
	header.SetMode(mode)

	entry, err := z.writer.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("start entry %s: %w", name, err)
	}
	if _, err := entry.Write(body); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}

	z.seen[name] = struct{}{}
	return nil
}

func (z *ZipSink) Finalize() error {
	if err := z.writer.Close(); err != nil {
		if z.file != nil {
			_ = z.file.Close()
		}
		return fmt.Errorf("close zip writer: %w", err)
	}
	if z.file != nil {
		if err := z.file.Close(); err != nil {
			return fmt.Errorf("close archive file: %w", err)
		}
	}
	return nil
}

// newZipSinkTo is used by tests to target an arbitrary writer.
func newZipSinkTo(w io.Writer) *ZipSink {
	return &ZipSink{
		writer: zip.NewWriter(w),
		seen:   make(map[string]struct{}),
	}
}

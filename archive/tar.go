package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
)

// TarSink writes entries into a zstd-compressed tar stream. Tar is purely
// sequential, so a repeated entry name is simply appended; extraction treats
// the later entry as an overwrite, which is equivalent because repeated names
// carry identical bytes.
type TarSink struct {
	file    *os.File
	encoder *zstd.Encoder
	writer  *tar.Writer
}

func NewTarSink(path string) (*TarSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create archive %s: %w", path, err)
	}

	encoder, err := zstd.NewWriter(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	return &TarSink{
		file:    file,
		encoder: encoder,
		writer:  tar.NewWriter(encoder),
	}, nil
}

func (t *TarSink) BeginFolder(name string) error {
	header := &tar.Header{
		Typeflag: tar.TypeDir,
		Name:     name + "/",
		Mode:     0o755,
		ModTime:  time.Now(),
	}
	if err := t.writer.WriteHeader(header); err != nil {
		return fmt.Errorf("add directory %s: %w", name, err)
	}
	return nil
}

func (t *TarSink) WriteEntry(name string, body []byte, mode fs.FileMode) error {
	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     int64(mode.Perm()),
		Size:     int64(len(body)),
		ModTime:  time.Now(),
	}
	if err := t.writer.WriteHeader(header); err != nil {
		return fmt.Errorf("start entry %s: %w", name, err)
	}
	if _, err := t.writer.Write(body); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}

func (t *TarSink) Finalize() error {
	if err := t.writer.Close(); err != nil {
		t.closeOutput()
		return fmt.Errorf("close tar writer: %w", err)
	}
	if err := t.encoder.Close(); err != nil {
		if t.file != nil {
			_ = t.file.Close()
		}
		return fmt.Errorf("close zstd encoder: %w", err)
	}
	if t.file != nil {
		if err := t.file.Close(); err != nil {
			return fmt.Errorf("close archive file: %w", err)
		}
	}
	return nil
}

func (t *TarSink) closeOutput() {
	_ = t.encoder.Close()
	if t.file != nil {
		_ = t.file.Close()
	}
}

// newTarSinkTo is used by tests to target an arbitrary writer.
func newTarSinkTo(w io.Writer) (*TarSink, error) {
	encoder, err := zstd.NewWriter(w)
	if err != nil {
		return nil, err
	}
	return &TarSink{
		encoder: encoder,
		writer:  tar.NewWriter(encoder),
	}, nil
}

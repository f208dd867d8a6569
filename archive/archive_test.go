package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/emersion/go-mbox"
	"github.com/klauspost/compress/zstd"
)

func TestOpenUnknownFormat(t *testing.T) {
	_, err := Open("7z", filepath.Join(t.TempDir(), "out"))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("Open() error = %v, want ErrUnknownFormat", err)
	}
}

func TestZipSinkWritesEntries(t *testing.T) {
	var buf bytes.Buffer
	sink := newZipSinkTo(&buf)

	if err := sink.BeginFolder("INBOX"); err != nil {
		t.Fatalf("BeginFolder() error = %v", err)
	}
	if err := sink.WriteEntry("INBOX/abc.eml", []byte("hello"), 0o755); err != nil {
		t.Fatalf("WriteEntry() error = %v", err)
	}
	if err := sink.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}

	entry := findZipEntry(t, reader, "INBOX/abc.eml")
	if got := readZipEntry(t, entry); got != "hello" {
		t.Errorf("entry content = %q, want %q", got, "hello")
	}
	if mode := entry.Mode().Perm(); mode != 0o755 {
		t.Errorf("entry mode = %o, want 0755", mode)
	}

	dir := findZipEntry(t, reader, "INBOX/")
	if !dir.Mode().IsDir() {
		t.Errorf("expected INBOX/ to be a directory entry")
	}
}

func TestZipSinkSkipsDuplicateEntries(t *testing.T) {
	var buf bytes.Buffer
	sink := newZipSinkTo(&buf)

	if err := sink.BeginFolder("INBOX"); err != nil {
		t.Fatalf("BeginFolder() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := sink.WriteEntry("INBOX/abc.eml", []byte("hello"), 0o755); err != nil {
			t.Fatalf("WriteEntry() #%d error = %v", i+1, err)
		}
	}
	if err := sink.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}

	count := 0
	for _, f := range reader.File {
		if f.Name == "INBOX/abc.eml" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate entry stored %d times, want 1", count)
	}
}

func TestTarSinkWritesEntries(t *testing.T) {
	var buf bytes.Buffer
	sink, err := newTarSinkTo(&buf)
	if err != nil {
		t.Fatalf("newTarSinkTo() error = %v", err)
	}

	if err := sink.BeginFolder("Archive"); err != nil {
		t.Fatalf("BeginFolder() error = %v", err)
	}
	if err := sink.WriteEntry("Archive/def.eml", []byte("world"), 0o755); err != nil {
		t.Fatalf("WriteEntry() error = %v", err)
	}
	if err := sink.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	decoder, err := zstd.NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("zstd.NewReader() error = %v", err)
	}
	defer decoder.Close()

	tr := tar.NewReader(decoder)

	dir, err := tr.Next()
	if err != nil {
		t.Fatalf("tar.Next() error = %v", err)
	}
	if dir.Name != "Archive/" || dir.Typeflag != tar.TypeDir {
		t.Errorf("first entry = %q (%c), want directory Archive/", dir.Name, dir.Typeflag)
	}

	entry, err := tr.Next()
	if err != nil {
		t.Fatalf("tar.Next() error = %v", err)
	}
	if entry.Name != "Archive/def.eml" {
		t.Errorf("entry name = %q, want Archive/def.eml", entry.Name)
	}
	if entry.Mode != 0o755 {
		t.Errorf("entry mode = %o, want 0755", entry.Mode)
	}
	content, err := io.ReadAll(tr)
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if string(content) != "world" {
		t.Errorf("entry content = %q, want %q", content, "world")
	}
}

func TestTarSinkFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.tar.zst")

	sink, err := NewTarSink(path)
	if err != nil {
		t.Fatalf("NewTarSink() error = %v", err)
	}
	if err := sink.BeginFolder("INBOX"); err != nil {
		t.Fatalf("BeginFolder() error = %v", err)
	}
	if err := sink.WriteEntry("INBOX/a.eml", []byte("hi"), 0o755); err != nil {
		t.Fatalf("WriteEntry() error = %v", err)
	}
	if err := sink.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("archive file is empty")
	}
}

func TestMboxSinkWritesPerFolderFiles(t *testing.T) {
	dir := t.TempDir()

	sink, err := NewMboxSink(dir)
	if err != nil {
		t.Fatalf("NewMboxSink() error = %v", err)
	}

	if err := sink.BeginFolder("INBOX/Receipts"); err != nil {
		t.Fatalf("BeginFolder() error = %v", err)
	}
	if err := sink.WriteEntry("INBOX/Receipts/a.eml", []byte("Subject: a\r\n\r\nfirst\r\n"), 0o755); err != nil {
		t.Fatalf("WriteEntry() error = %v", err)
	}
	if err := sink.WriteEntry("INBOX/Receipts/b.eml", []byte("Subject: b\r\n\r\nsecond\r\n"), 0o755); err != nil {
		t.Fatalf("WriteEntry() error = %v", err)
	}
	if err := sink.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	path := filepath.Join(dir, "INBOX_Receipts.mbox")
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()

	reader := mbox.NewReader(file)
	count := 0
	for {
		msg, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("NextMessage() error = %v", err)
		}
		if _, err := io.ReadAll(msg); err != nil {
			t.Fatalf("read message: %v", err)
		}
		count++
	}
	if count != 2 {
		t.Errorf("mbox holds %d messages, want 2", count)
	}
}

func TestMboxSinkRequiresFolder(t *testing.T) {
	sink, err := NewMboxSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewMboxSink() error = %v", err)
	}

	err = sink.WriteEntry("a.eml", []byte("x"), 0o755)
	if !errors.Is(err, errNoFolderBegun) {
		t.Errorf("WriteEntry() error = %v, want errNoFolderBegun", err)
	}
}

func findZipEntry(t *testing.T, reader *zip.Reader, name string) *zip.File {
	t.Helper()
	for _, f := range reader.File {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("entry %q not found in archive", name)
	return nil
}

func readZipEntry(t *testing.T, f *zip.File) string {
	t.Helper()
	rc, err := f.Open()
	if err != nil {
		t.Fatalf("open entry %s: %v", f.Name, err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read entry %s: %v", f.Name, err)
	}
	return string(content)
}

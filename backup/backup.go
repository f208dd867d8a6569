package backup

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dhcgn/imap-to-archive/filter"
	"github.com/dhcgn/imap-to-archive/fingerprint"
	"github.com/dhcgn/imap-to-archive/model"
	"github.com/dhcgn/imap-to-archive/progress"
	"github.com/dhcgn/imap-to-archive/stats"
)

// Every archive entry carries the same fixed mode.
const entryMode fs.FileMode = 0o755

// Session is the live, authenticated IMAP connection the backup drives. The
// connection is stateful, so the backup uses it strictly sequentially.
type Session interface {
	ListFolders() ([]string, error)
	SelectReadOnly(folder string) (uint32, error)
	FetchAll(numMessages uint32) ([]model.Message, error)
}

// Archive receives entries as the backup progresses. Finalizing the container
// stays with the caller, which only does it after Run returns successfully.
type Archive interface {
	BeginFolder(name string) error
	WriteEntry(name string, body []byte, mode fs.FileMode) error
}

type Options struct {
	// Folders filters folder names before processing; nil processes all.
	Folders *filter.Filter
	// Progress receives one counter per folder; nil means no progress output.
	Progress progress.Sink
	Logger   *slog.Logger
}

// Backup copies every message of every folder into the archive. Failures are
// absorbed at the narrowest scope that can recover: a folder that cannot be
// opened or fetched contributes zero bytes and the run continues; a message
// without a body is skipped; an archive write failure aborts the whole run
// because the container is no longer trustworthy.
type Backup struct {
	session   Session
	archive   Archive
	folders   *filter.Filter
	progress  progress.Sink
	collector *stats.Collector
	logger    *slog.Logger
}

// Totals are the grand results of one completed run.
type Totals struct {
	Bytes   uint64
	Elapsed time.Duration
}

func New(session Session, archive Archive, opts Options) (*Backup, error) {
	if session == nil {
		return nil, fmt.Errorf("session must not be nil")
	}
	if archive == nil {
		return nil, fmt.Errorf("archive must not be nil")
	}

	sink := opts.Progress
	if sink == nil {
		sink = progress.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Backup{
		session:   session,
		archive:   archive,
		folders:   opts.Folders,
		progress:  sink,
		collector: stats.NewCollector(),
		logger:    logger,
	}, nil
}

// Run enumerates all folders once and copies them in listing order. Only a
// folder-enumeration failure or an archive write failure abort the run; the
// returned totals are monotonic partial results in the fatal case.
func (b *Backup) Run() (Totals, error) {
	started := time.Now()

	folders, err := b.session.ListFolders()
	if err != nil {
		return Totals{Elapsed: time.Since(started)}, fmt.Errorf("enumerate folders: %w", err)
	}

	var total uint64
	for _, name := range folders {
		if b.folders != nil && !b.folders.Allows(name) {
			b.logger.Debug("folder excluded by filter", "folder", name)
			continue
		}

		result, err := b.processFolder(name)
		total += result.bytes
		if err != nil {
			return Totals{Bytes: total, Elapsed: time.Since(started)}, err
		}

		if result.failed {
			b.collector.Apply(stats.Event{Type: stats.EventTypeFolderFailed, Folder: name})
			continue
		}

		b.collector.Apply(stats.Event{Type: stats.EventTypeFolderCompleted, Folder: name})
		b.logger.Info("folder copied", "folder", name, "size", humanize.IBytes(result.bytes))
	}

	return Totals{Bytes: total, Elapsed: time.Since(started)}, nil
}

// Summary reports the per-message and per-folder counters accumulated so far.
func (b *Backup) Summary() stats.Summary {
	return b.collector.Snapshot()
}

type folderResult struct {
	bytes  uint64
	failed bool
}

// processFolder copies one folder. Selection and fetch failures are folder
// scoped: they are logged and reported as failed, never returned as errors.
// Archive write errors propagate unchanged.
func (b *Backup) processFolder(name string) (folderResult, error) {
	count, err := b.session.SelectReadOnly(name)
	if err != nil {
		b.logger.Warn("cannot open folder", "folder", name, "err", err)
		return folderResult{failed: true}, nil
	}

	messages, err := b.session.FetchAll(count)
	if err != nil {
		b.logger.Warn("cannot fetch folder", "folder", name, "err", err)
		return folderResult{failed: true}, nil
	}

	if err := b.archive.BeginFolder(name); err != nil {
		return folderResult{}, fmt.Errorf("begin folder %s: %w", name, err)
	}

	counter := b.progress.NewCounter(len(messages))
	defer counter.Finish()

	var total uint64
	for idx, message := range messages {
		size, written, err := b.writeMessage(name, idx+1, len(messages), message)
		if err != nil {
			return folderResult{bytes: total}, err
		}

		total += size
		if written {
			counter.SetLabel(fmt.Sprintf("%s [%s]", name, humanize.IBytes(total)))
		}
		counter.Increment()
	}

	return folderResult{bytes: total}, nil
}

// writeMessage appends one message to the archive under its content-derived
// name. A missing body is a normal branch: logged, counted, zero bytes. The
// second result reports whether an entry was written.
func (b *Backup) writeMessage(folder string, index, count int, message model.Message) (uint64, bool, error) {
	if !message.HasBody() {
		b.logger.Warn("skipping message: no body", "folder", folder, "index", index, "count", count)
		b.collector.Apply(stats.Event{Type: stats.EventTypeSkipped, Folder: folder})
		return 0, false, nil
	}

	name := path.Join(folder, fingerprint.Sum(message.Body)+".eml")
	if err := b.archive.WriteEntry(name, message.Body, entryMode); err != nil {
		return 0, false, fmt.Errorf("write entry %s: %w", name, err)
	}

	size := uint64(len(message.Body))
	b.collector.Apply(stats.Event{Type: stats.EventTypeWritten, Folder: folder, Bytes: size})
	b.logger.Debug("message written", "entry", name, "index", index, "count", count, "size", humanize.IBytes(size))
	return size, true, nil
}

package stats

import (
	"fmt"
	"sync"
	"time"
)

type EventType string

const (
	EventTypeWritten         EventType = "written"
	EventTypeSkipped         EventType = "skipped"
	EventTypeFolderCompleted EventType = "folder_completed"
	EventTypeFolderFailed    EventType = "folder_failed"
)

type Event struct {
	Type   EventType
	Folder string
	Bytes  uint64
}

type Summary struct {
	MessagesWritten  int
	MessagesSkipped  int
	FoldersCompleted int
	FoldersFailed    int
	Bytes            uint64
}

func (s Summary) LogAttrs() []any {
	return []any{
		"messagesWritten", s.MessagesWritten,
		"messagesSkipped", s.MessagesSkipped,
		"foldersCompleted", s.FoldersCompleted,
		"foldersFailed", s.FoldersFailed,
		"bytes", s.Bytes,
	}
}

// Collector accumulates backup counters. Apply is safe for concurrent use,
// although the backup pipeline drives it from a single goroutine.
type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Apply(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Type {
	case EventTypeWritten:
		c.summary.MessagesWritten++
		c.summary.Bytes += evt.Bytes
	case EventTypeSkipped:
		c.summary.MessagesSkipped++
	case EventTypeFolderCompleted:
		c.summary.FoldersCompleted++
	case EventTypeFolderFailed:
		c.summary.FoldersFailed++
	}
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	c.mu.Unlock()
	return summary
}

// FormatElapsed renders a wall-clock duration as zero-padded HH:MM:SS.
// Hours are unbounded, so a multi-day run stays readable.
func FormatElapsed(d time.Duration) string {
	seconds := int64(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}

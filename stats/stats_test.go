package stats

import (
	"testing"
	"time"
)

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "00:00:00"},
		{"seconds only", 59 * time.Second, "00:00:59"},
		{"minutes", 61 * time.Second, "00:01:01"},
		{"hours", 14249 * time.Second, "03:57:29"},
		{"unbounded hours", 100*time.Hour + 5*time.Second, "100:00:05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatElapsed(tt.d); got != tt.want {
				t.Errorf("FormatElapsed(%v) = %s, want %s", tt.d, got, tt.want)
			}
		})
	}
}

func TestCollectorApply(t *testing.T) {
	c := NewCollector()

	c.Apply(Event{Type: EventTypeWritten, Bytes: 5})
	c.Apply(Event{Type: EventTypeWritten, Bytes: 7})
	c.Apply(Event{Type: EventTypeSkipped})
	c.Apply(Event{Type: EventTypeFolderCompleted})
	c.Apply(Event{Type: EventTypeFolderFailed})

	summary := c.Snapshot()
	if summary.MessagesWritten != 2 {
		t.Errorf("MessagesWritten = %d, want 2", summary.MessagesWritten)
	}
	if summary.MessagesSkipped != 1 {
		t.Errorf("MessagesSkipped = %d, want 1", summary.MessagesSkipped)
	}
	if summary.FoldersCompleted != 1 {
		t.Errorf("FoldersCompleted = %d, want 1", summary.FoldersCompleted)
	}
	if summary.FoldersFailed != 1 {
		t.Errorf("FoldersFailed = %d, want 1", summary.FoldersFailed)
	}
	if summary.Bytes != 12 {
		t.Errorf("Bytes = %d, want 12", summary.Bytes)
	}
}

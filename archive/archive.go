package archive

import (
	"errors"
	"fmt"
	"io/fs"
)

// Supported output container formats.
const (
	FormatZip  = "zip"
	FormatTar  = "tar"
	FormatMbox = "mbox"
)

var ErrUnknownFormat = errors.New("unknown archive format")

// Sink receives backup entries for one output container. Folder names act as
// namespaces inside the container; entry names are container paths relative
// to the root. Sinks are not safe for concurrent use; the backup pipeline
// writes from a single goroutine.
type Sink interface {
	// BeginFolder announces that subsequent entries belong to the named
	// folder. Container kinds that don't need directory records treat this
	// as a hint.
	BeginFolder(name string) error

	// WriteEntry stores body under the given container path with the given
	// permission mode. Any error returned here means the container can no
	// longer be trusted.
	WriteEntry(name string, body []byte, mode fs.FileMode) error

	// Finalize writes the container trailer/index and closes the output.
	Finalize() error
}

// Open creates a Sink of the requested format writing to path. For the zip
// and tar formats path is the output file; for the mbox format it is an
// output directory.
func Open(format, path string) (Sink, error) {
	switch format {
	case FormatZip:
		return NewZipSink(path)
	case FormatTar:
		return NewTarSink(path)
	case FormatMbox:
		return NewMboxSink(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

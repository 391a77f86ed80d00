// Package transcript persists the narrative scrollback so a play session
// can be reread after the client exits.
package transcript

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nvail/realmsync/internal/protocol"
	"github.com/spf13/afero"
)

const appendFlags = os.O_APPEND | os.O_CREATE | os.O_WRONLY

// Writer appends narrative lines to a transcript file. The filesystem is
// injected so tests run against an in-memory FS.
type Writer struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// New creates a transcript writer for the given path.
func New(fs afero.Fs, path string) *Writer {
	return &Writer{fs: fs, path: path}
}

// Append writes one narrative line to the transcript.
func (w *Writer) Append(n protocol.Narrative) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.fs.OpenFile(w.path, appendFlags, 0o644)
	if err != nil {
		return fmt.Errorf("transcript: open %s: %w", w.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(time.Now().UTC(), n)); err != nil {
		return fmt.Errorf("transcript: write: %w", err)
	}
	return nil
}

func formatLine(ts time.Time, n protocol.Narrative) string {
	speaker := n.Speaker
	if speaker == "" {
		speaker = "narrator"
	}
	return fmt.Sprintf("%s [%s] %s: %s\n",
		ts.Format(time.RFC3339), n.Kind, speaker, n.Text)
}

package exec

import (
	"bytes"
	"sync"
)

// lockedBuffer is a bytes.Buffer safe for the concurrent writes os/exec
// makes when stdout and stderr share a destination.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// teeWriter writes to its own buffer and a shared combined buffer.
type teeWriter struct {
	own      *lockedBuffer
	combined *lockedBuffer
}

func (t teeWriter) Write(p []byte) (int, error) {
	if _, err := t.combined.Write(p); err != nil {
		return 0, err
	}
	return t.own.Write(p)
}

package fstest

import (
	"path"
	"strings"
	"testing"

	"github.com/jmgilman/gitfs/fs/core"
)

// TestTempFS checks TempFile. Skips providers that do not implement core.TempFS.
func TestTempFS(t *testing.T, filesystem core.FS, cfg Config) {
	tfs, ok := filesystem.(core.TempFS)
	if !ok {
		t.Skip("TempFS not supported")
		return
	}
	if cfg.skip(t, "TempFS/TempFile") {
		return
	}

	mustMkdirAll(t, filesystem, "tmp")
	f, err := tfs.TempFile("tmp", "index-")
	if err != nil {
		t.Fatalf("TempFile: got error %v, want nil", err)
	}
	name := f.Name()
	if _, err := f.Write([]byte("{}")); err != nil {
		t.Errorf("Write(): got error %v, want nil", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close(): got error %v, want nil", err)
	}

	base := path.Base(name)
	if !strings.HasPrefix(base, "index-") || base == "index-" {
		t.Errorf("TempFile name %q does not extend prefix %q", base, "index-")
	}
	assertContent(t, filesystem, name, []byte("{}"))

	if err := filesystem.Rename(name, "tmp/index.json"); err != nil {
		t.Errorf("Rename(temp, final): got error %v, want nil", err)
	}
	assertContent(t, filesystem, "tmp/index.json", []byte("{}"))
}

package fstest

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"testing"

	"github.com/jmgilman/gitfs/fs/core"
)

// TestWriteFS checks Create, OpenFile, WriteFile, Mkdir and MkdirAll.
func TestWriteFS(t *testing.T, filesystem core.FS, cfg Config) {
	t.Run("Create", func(t *testing.T) {
		if cfg.skip(t, "WriteFS/Create") {
			return
		}
		f, err := filesystem.Create("created.txt")
		if err != nil {
			t.Fatalf("Create(%q): got error %v, want nil", "created.txt", err)
		}
		if f.Name() != "created.txt" {
			t.Errorf("Name(): got %q, want %q", f.Name(), "created.txt")
		}
		if _, err := f.Write([]byte("hello")); err != nil {
			t.Errorf("Write(): got error %v, want nil", err)
		}
		if err := f.Close(); err != nil {
			t.Errorf("Close(): got error %v, want nil", err)
		}
		assertContent(t, filesystem, "created.txt", []byte("hello"))
	})

	t.Run("WriteFileOverwrite", func(t *testing.T) {
		if cfg.skip(t, "WriteFS/WriteFileOverwrite") {
			return
		}
		mustWrite(t, filesystem, "overwrite.txt", []byte("a much longer first version"))
		mustWrite(t, filesystem, "overwrite.txt", []byte("short"))
		assertContent(t, filesystem, "overwrite.txt", []byte("short"))
	})

	t.Run("OpenFileAppend", func(t *testing.T) {
		if cfg.skip(t, "WriteFS/OpenFileAppend") {
			return
		}
		mustWrite(t, filesystem, "append.txt", []byte("one"))
		f, err := filesystem.OpenFile("append.txt", os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			t.Fatalf("OpenFile(O_APPEND): got error %v, want nil", err)
		}
		_, _ = f.Write([]byte("two"))
		_ = f.Close()
		assertContent(t, filesystem, "append.txt", []byte("onetwo"))
	})

	t.Run("Mkdir", func(t *testing.T) {
		if cfg.skip(t, "WriteFS/Mkdir") {
			return
		}
		if err := filesystem.Mkdir("newdir", 0o755); err != nil {
			t.Fatalf("Mkdir(%q): got error %v, want nil", "newdir", err)
		}
		if err := filesystem.Mkdir("newdir", 0o755); !errors.Is(err, fs.ErrExist) {
			t.Errorf("Mkdir(%q) again: got error %v, want fs.ErrExist", "newdir", err)
		}
	})

	t.Run("MkdirAll", func(t *testing.T) {
		if cfg.skip(t, "WriteFS/MkdirAll") {
			return
		}
		for i := 0; i < 2; i++ {
			if err := filesystem.MkdirAll("a/b/c", 0o755); err != nil {
				t.Fatalf("MkdirAll(%q) #%d: got error %v, want nil", "a/b/c", i, err)
			}
		}
		info, err := filesystem.Stat("a/b/c")
		if err != nil || !info.IsDir() {
			t.Errorf("Stat(%q): got (%v, %v), want directory", "a/b/c", info, err)
		}
	})
}

func assertContent(t *testing.T, filesystem core.ReadFS, name string, want []byte) {
	t.Helper()
	f, err := filesystem.Open(name)
	if err != nil {
		t.Errorf("Open(%q): got error %v, want nil", name, err)
		return
	}
	defer func() { _ = f.Close() }()
	got, err := io.ReadAll(f)
	if err != nil {
		t.Errorf("ReadAll(%q): got error %v, want nil", name, err)
		return
	}
	if !bytes.Equal(got, want) {
		t.Errorf("content of %q: got %q, want %q", name, got, want)
	}
}

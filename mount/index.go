package mount

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jmgilman/gitfs/errors"
	fsbilly "github.com/jmgilman/gitfs/fs/billy"
)

const (
	indexFile    = "index.json"
	indexVersion = "1"
)

// IndexEntry records one materialized working copy.
type IndexEntry struct {
	Identity  Identity  `json:"identity"`
	LocalDir  string    `json:"localDir"`
	Created   time.Time `json:"created"`
	LastFetch time.Time `json:"lastFetch"`
}

// mountIndex is the on-disk record of working copies under the data
// directory. It outlives the process so copies left behind by a crash or a
// failed delete can be swept on a later start.
type mountIndex struct {
	Version string                   `json:"version"`
	Mounts  map[Identity]*IndexEntry `json:"mounts"`
	mu      sync.RWMutex
}

func newIndex() *mountIndex {
	return &mountIndex{
		Version: indexVersion,
		Mounts:  make(map[Identity]*IndexEntry),
	}
}

// loadOrCreateIndex loads the index at name, or returns an empty one when
// the file does not exist. A corrupt or foreign index is an error.
func loadOrCreateIndex(root *fsbilly.FS, name string) (*mountIndex, error) {
	exists, err := root.Exists(name)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "failed to stat mount index")
	}
	if !exists {
		return newIndex(), nil
	}

	data, err := root.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "failed to read mount index")
	}

	var idx mountIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "failed to parse mount index")
	}
	if idx.Version != indexVersion {
		return nil, errors.Newf(errors.CodeInvalidInput, "unsupported mount index version: %s (expected %s)", idx.Version, indexVersion)
	}
	if idx.Mounts == nil {
		idx.Mounts = make(map[Identity]*IndexEntry)
	}
	return &idx, nil
}

// save writes the index through a temporary file and a rename.
func (idx *mountIndex) save(root *fsbilly.FS, name string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to marshal mount index")
	}

	tmp := name + ".tmp"
	f, err := root.Create(tmp)
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to create temporary index file")
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = root.Remove(tmp)
		return errors.Wrap(err, errors.CodeIO, "failed to write temporary index file")
	}
	if err := f.Close(); err != nil {
		_ = root.Remove(tmp)
		return errors.Wrap(err, errors.CodeIO, "failed to close temporary index file")
	}
	if err := root.Rename(tmp, name); err != nil {
		_ = root.Remove(tmp)
		return errors.Wrap(err, errors.CodeIO, "failed to rename index file")
	}
	return nil
}

func (idx *mountIndex) set(entry IndexEntry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.Mounts[entry.Identity] = &entry
}

func (idx *mountIndex) delete(id Identity) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.Mounts, id)
}

// list returns a copy of every entry.
func (idx *mountIndex) list() []IndexEntry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := make([]IndexEntry, 0, len(idx.Mounts))
	for _, e := range idx.Mounts {
		entries = append(entries, *e)
	}
	return entries
}

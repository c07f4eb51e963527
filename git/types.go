package git

import (
	"context"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// DefaultRemote is the remote name every working copy fetches from.
const DefaultRemote = "origin"

// Backend opens local working copies. NativeBackend and CLIBackend are the
// two implementations; tests substitute their own.
type Backend interface {
	// OpenOrInit opens the working copy at dir inside fs, initializing an
	// empty repository there first if none exists.
	OpenOrInit(ctx context.Context, fs billy.Filesystem, dir string) (WorkingCopy, error)
}

// WorkingCopy is a local, non-bare repository with a checked out tree.
type WorkingCopy interface {
	// ConfigureRemote creates or overwrites a remote whose fetch refspec
	// mirrors every branch under refs/remotes/<name>/.
	ConfigureRemote(ctx context.Context, opts RemoteOptions) error

	// FetchBranch fetches one branch from the default remote and returns the
	// refs the remote advertised. A remote without refs yields no refs and
	// no error.
	FetchBranch(ctx context.Context, opts FetchOptions) ([]Ref, error)

	// Checkout moves the working tree to ref. It returns false without
	// touching the tree when ref does not resolve to a local commit.
	Checkout(ctx context.Context, ref Ref) (bool, error)

	// Head returns the currently checked out commit, or the zero hash when
	// nothing has been checked out yet.
	Head(ctx context.Context) (plumbing.Hash, error)
}

// Ref is a reference advertised by a remote.
type Ref struct {
	Name plumbing.ReferenceName
	Hash plumbing.Hash
}

// FindRef returns the first ref in refs with the given name.
func FindRef(refs []Ref, name plumbing.ReferenceName) (Ref, bool) {
	for _, r := range refs {
		if r.Name == name {
			return r, true
		}
	}
	return Ref{}, false
}

// RemoteOptions configures a remote.
type RemoteOptions struct {
	Name string // Default: "origin"
	URL  string
}

// FetchOptions configures a single-branch fetch.
type FetchOptions struct {
	Branch string
	Auth   Auth
}

// Auth is an interface for authentication methods.
// It is satisfied by go-git's transport.AuthMethod.
type Auth interface {
	// Marker interface - satisfied by go-git transport.AuthMethod
}

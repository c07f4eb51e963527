package mount

import (
	"strings"

	"github.com/jmgilman/gitfs/errors"
)

// Identity names one mount: a repository and branch on a host, in the
// canonical form https://<host>/<repo-path><branch>/. Virtual paths that
// share an identity are served by the same Handle.
type Identity string

// IdentityOf returns the identity of the mount raw falls into.
func IdentityOf(raw string) Identity {
	return Resolve(raw, "https").Identity()
}

// String implements fmt.Stringer.
func (id Identity) String() string {
	return string(id)
}

// Validate rejects targets that cannot be materialized: no repository
// path, or path segments that would leave the data directory.
func (t Target) Validate() error {
	if t.RepoPath == "" {
		return errors.New(errors.CodeInvalidInput, "no repository in path: expected <host>/<repo>.git/<branch>/<file>")
	}
	if t.Branch == "" {
		return errors.Newf(errors.CodeInvalidInput, "no branch after %q", t.RepoPath)
	}
	for _, seg := range strings.Split(t.Host+"/"+t.RepoPath+t.Branch, "/") {
		if seg == ".." || seg == "." {
			return errors.Newf(errors.CodeInvalidInput, "invalid path segment %q in %s", seg, t.Identity())
		}
	}
	return nil
}

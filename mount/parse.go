package mount

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// DefaultBranch is the branch of a path that names no repository.
const DefaultBranch = "master"

// pathPattern splits a URL path at the last ".git/" marker: the repository
// path (marker included), the branch segment, and the rest.
var pathPattern = regexp.MustCompile(`^/(.*\.git/)([^/]*)/?(.*)$`)

// ParsedPath is the structural decomposition of a virtual path.
type ParsedPath struct {
	// RepoPath is everything up to and including ".git/", without the
	// leading slash. Example: "org/repo.git/".
	RepoPath string
	// Branch is the path segment after the repository path.
	Branch string
	// FilePath is the in-repository path, without a leading slash.
	FilePath string
}

// Parse splits the path portion of raw into repository path, branch and
// file path. raw may be a full URI or a bare path. Parse never fails: a
// path without a ".git/" segment yields an empty repository path, branch
// "master" and an empty file path. The branch is not checked to exist.
func Parse(raw string) ParsedPath {
	m := pathPattern.FindStringSubmatch(uriPath(raw))
	if m == nil {
		return ParsedPath{Branch: DefaultBranch}
	}
	return ParsedPath{RepoPath: m[1], Branch: m[2], FilePath: m[3]}
}

// uriPath returns the path portion of raw, always starting with "/".
func uriPath(raw string) string {
	p := raw
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil {
			p = u.Path
		}
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Target is everything derived from one virtual URI: where the repository
// lives remotely and which branch and file are addressed.
type Target struct {
	Scheme string
	Host   string
	ParsedPath
}

// Resolve parses raw into a Target. A raw value without a scheme is read
// as "<host>/<path>" under defaultScheme.
func Resolve(raw, defaultScheme string) Target {
	if !strings.Contains(raw, "://") {
		raw = defaultScheme + "://" + strings.TrimPrefix(raw, "/")
	}

	t := Target{Scheme: defaultScheme, ParsedPath: Parse(raw)}
	if u, err := url.Parse(raw); err == nil {
		t.Scheme = u.Scheme
		t.Host = u.Host
	}
	return t
}

// Identity returns the cache key of the mount the target falls into.
func (t Target) Identity() Identity {
	return Identity("https://" + t.Host + "/" + t.RepoPath + t.Branch + "/")
}

// RemoteURL is the URL fetched from: the target's own scheme and host
// followed by the repository path.
func (t Target) RemoteURL() string {
	return t.Scheme + "://" + t.Host + "/" + strings.TrimSuffix(t.RepoPath, "/")
}

// VirtualBase is the URI every virtual path of the mount starts with. It
// always ends in "/".
func (t Target) VirtualBase() string {
	return t.Scheme + "://" + t.Host + "/" + t.RepoPath + t.Branch + "/"
}

// LocalDir is the working copy location relative to the data directory:
// <host>/<repo-path>/<branch>.
func (t Target) LocalDir() string {
	dir := path.Join(t.Host, t.RepoPath, t.Branch)
	return strings.TrimPrefix(dir, "/")
}

package mount

import (
	"path"
	"strings"
)

// ToLocal maps a virtual path under the mount's virtual base to the
// corresponding path under the local base. It reports false when virtual
// is not under the virtual base.
func (h *Handle) ToLocal(virtual string) (string, bool) {
	rel, ok := relativize(h.virtualBase, virtual)
	if !ok {
		return "", false
	}
	return h.localBase + rel, true
}

// ToVirtual is the inverse of ToLocal.
func (h *Handle) ToVirtual(local string) (string, bool) {
	rel, ok := relativize(h.localBase, local)
	if !ok {
		return "", false
	}
	return h.virtualBase + rel, true
}

// relativize returns p relative to base, which ends in "/". The base
// itself, with or without the trailing slash, relativizes to "". Paths that
// climb out of base through ".." do not relativize.
func relativize(base, p string) (string, bool) {
	if p == base || p == strings.TrimSuffix(base, "/") {
		return "", true
	}
	rel, ok := strings.CutPrefix(p, base)
	if !ok {
		return "", false
	}
	if c := path.Clean(rel); c == ".." || strings.HasPrefix(c, "../") {
		return "", false
	}
	return rel, true
}

// inRepo turns a name given to a read into a cleaned path relative to the
// working copy root. name is either a virtual URI or already relative to
// the repository.
func (h *Handle) inRepo(name string) (string, bool) {
	rel := name
	if strings.Contains(name, "://") {
		var ok bool
		if rel, ok = relativize(h.virtualBase, name); !ok {
			return "", false
		}
	}

	rel = path.Clean("/" + rel)[1:]
	if rel == "" {
		rel = "."
	}
	if rel == ".git" || strings.HasPrefix(rel, ".git/") {
		return "", false
	}
	return rel, true
}

// localPath is the local base URI form of an in-repository path.
func (h *Handle) localPath(rel string) string {
	if rel == "." {
		return h.localBase
	}
	return h.localBase + rel
}

// symlinkTarget resolves the target of the symbolic link at rel to a
// virtual path. Targets outside the working copy resolve to "".
func (h *Handle) symlinkTarget(rel string) string {
	target, err := h.fs.Readlink(rel)
	if err != nil {
		return ""
	}
	target = strings.ReplaceAll(target, "\\", "/")

	// Absolute targets come back rooted at the working copy; ones that left
	// it are reported with a leading "/..".
	var joined string
	if strings.HasPrefix(target, "/") {
		if target == "/.." || strings.HasPrefix(target, "/../") {
			return ""
		}
		joined = path.Clean(target)[1:]
	} else {
		joined = path.Join(path.Dir(rel), target)
	}
	if joined == "" || joined == "." {
		joined = "."
	} else if joined == ".." || strings.HasPrefix(joined, "../") {
		return ""
	}

	v, ok := h.ToVirtual(h.localPath(joined))
	if !ok {
		return ""
	}
	return v
}

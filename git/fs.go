package git

import (
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// isMemoryFilesystem checks if the given filesystem is memory-based.
// Memory-based filesystems (like memfs) cannot be used with git CLI operations
// since the CLI operates on the real filesystem. Chroot wrappers are looked
// through.
func isMemoryFilesystem(fs billy.Basic) bool {
	for fs != nil {
		// Check the type name - if it contains "mem", it's likely a memory filesystem
		typeName := fmt.Sprintf("%T", fs)
		if strings.Contains(strings.ToLower(typeName), "mem") {
			return true
		}
		u, ok := fs.(interface{ Underlying() billy.Basic })
		if !ok {
			return false
		}
		fs = u.Underlying()
	}
	return false
}

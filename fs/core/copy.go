package core

import (
	"io/fs"
	"path"
	"strings"
)

// CopyFS copies every regular file under srcRoot in src into dst,
// preserving the directory structure and permission bits. Use "." to copy
// the whole source.
//
//	src := fstest.MapFS{"readme.md": {Data: []byte("hello")}}
//	err := core.CopyFS(src, worktree, ".")
func CopyFS(src fs.FS, dst WriteFS, srcRoot string) error {
	return fs.WalkDir(src, srcRoot, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		data, err := fs.ReadFile(src, filePath)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		dstPath := filePath
		if srcRoot != "." && srcRoot != "" {
			dstPath = strings.TrimPrefix(strings.TrimPrefix(filePath, srcRoot), "/")
		}
		if dir := path.Dir(dstPath); dir != "." && dir != "" {
			if err := dst.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}

		perm := info.Mode().Perm()
		if perm == 0 {
			perm = 0o644
		}
		return dst.WriteFile(dstPath, data, perm)
	})
}

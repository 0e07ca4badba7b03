package filesystem

import (
	"path/filepath"
	"strings"
)

// ResolvePath converts a document reference to a local path. It accepts
// file:// URIs, absolute paths and paths relative to root.
func ResolvePath(root, ref string) string {
	ref = strings.TrimPrefix(ref, "file://")
	if ref == "" || filepath.IsAbs(ref) || root == "" {
		return ref
	}
	return filepath.Join(root, ref)
}

// Package headers decides which C headers take part in a translation run
// and where on disk each of them lives.
package headers

import (
	"os"
	"path/filepath"
)

// FallbackIncludeDir is used when no include root contains a header. The
// translation engine then reports the missing file in context.
const FallbackIncludeDir = "/usr/include"

// Resolve returns the path of header under the first root that contains it.
// Roots are tried in order; when none matches, the conventional system
// location is returned instead of an error.
func Resolve(roots []string, header string) string {
	for _, root := range roots {
		candidate := filepath.Join(root, header)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return filepath.Join(FallbackIncludeDir, header)
}

// ResolveAll resolves every header against roots, preserving order.
func ResolveAll(roots []string, hdrs []string) []string {
	paths := make([]string, len(hdrs))
	for i, h := range hdrs {
		paths[i] = Resolve(roots, h)
	}
	return paths
}

//go:build !unix

package config

// fdLimit reports that no file-descriptor limit is readable on this
// platform; callers fall back to fixed defaults.
func fdLimit() (int, bool) {
	return 0, false
}

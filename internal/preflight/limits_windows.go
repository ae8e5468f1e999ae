//go:build windows

package preflight

// openFileLimit is not meaningful on Windows.
func openFileLimit() (int, bool) {
	return 0, false
}

package schema

import "path/filepath"

// globMatch matches pattern against path using shell glob syntax,
// falling back to a basename-only match when pattern has no path
// separator so that schema authors can write bare patterns like
// "*.txt" that apply regardless of directory.
func globMatch(pattern, path string) (bool, error) {
	if ok, err := filepath.Match(pattern, path); err == nil && ok {
		return true, nil
	}
	return filepath.Match(pattern, filepath.Base(path))
}

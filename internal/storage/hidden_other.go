//go:build !windows

package storage

// hasHiddenAttr is a no-op outside Windows; dot-prefixed names cover hidden folders there.
func hasHiddenAttr(string) (bool, error) {
	return false, nil
}

//go:build windows

package storage

import "golang.org/x/sys/windows"

// hasHiddenAttr reports whether the hidden or system attribute is set.
func hasHiddenAttr(path string) (bool, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false, err
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return false, err
	}
	return attrs&(windows.FILE_ATTRIBUTE_HIDDEN|windows.FILE_ATTRIBUTE_SYSTEM) != 0, nil
}

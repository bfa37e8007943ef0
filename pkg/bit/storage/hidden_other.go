//go:build !windows

package storage

// hide is a no-op: a leading dot already hides the folder.
func hide(string) error {
	return nil
}

//go:build !darwin && !linux && !windows

package tree

import (
	"io/fs"
	"time"
)

// creationTime falls back to the modification time on platforms without a
// portable birth time.
func creationTime(_ string, info fs.FileInfo) time.Time {
	return info.ModTime()
}

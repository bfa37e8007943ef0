//go:build windows

package tree

import (
	"io/fs"
	"syscall"
	"time"
)

// creationTime reads the birth time from the stat data. os reports it as
// *syscall.Win32FileAttributeData, not the x/sys/windows type.
func creationTime(_ string, info fs.FileInfo) time.Time {
	attrs, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return info.ModTime()
	}
	return time.Unix(0, attrs.CreationTime.Nanoseconds())
}

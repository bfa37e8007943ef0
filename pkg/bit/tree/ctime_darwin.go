//go:build darwin

package tree

import (
	"io/fs"
	"syscall"
	"time"
)

// creationTime returns the birth time from the stat structure.
func creationTime(_ string, info fs.FileInfo) time.Time {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime()
	}
	return unixTime(stat.Birthtimespec.Sec, stat.Birthtimespec.Nsec)
}

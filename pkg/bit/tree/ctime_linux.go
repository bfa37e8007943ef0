//go:build linux

package tree

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// creationTime returns the birth time of p via statx. File systems that do
// not report it fall back to the modification time.
func creationTime(p string, info fs.FileInfo) time.Time {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, p, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx)
	if err != nil || stx.Mask&unix.STATX_BTIME == 0 {
		return info.ModTime()
	}
	return unixTime(stx.Btime.Sec, int64(stx.Btime.Nsec))
}

package filebrowser

import (
	"os"
	"syscall"
	"time"
)

func fileTimes(info os.FileInfo) (created, accessed time.Time) {
	attr, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return time.Time{}, time.Time{}
	}
	return time.Unix(0, attr.CreationTime.Nanoseconds()), time.Unix(0, attr.LastAccessTime.Nanoseconds())
}

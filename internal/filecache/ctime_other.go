//go:build !linux && !darwin

package filecache

import (
	"os"
	"time"
)

// changeTime falls back to the modification time where no inode change time
// is available.
func changeTime(_ string, info os.FileInfo) time.Time {
	return info.ModTime()
}

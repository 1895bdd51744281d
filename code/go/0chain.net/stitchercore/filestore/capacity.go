package filestore

import (
	"golang.org/x/sys/unix"
)

// CalculateCurrentDiskCapacity refreshes the free bytes available on the mount point.
func (fs *FileStore) CalculateCurrentDiskCapacity() error {
	var volStat unix.Statfs_t
	err := unix.Statfs(fs.mp, &volStat)
	if err != nil {
		return err
	}

	fs.diskCapacity.Store(volStat.Bavail * uint64(volStat.Bsize))
	return nil
}

func (fs *FileStore) GetCurrentDiskCapacity() uint64 {
	return fs.diskCapacity.Load()
}

package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"github.com/lithammer/shortuuid/v3"
	"go.uber.org/zap"
)

type FileStore struct {
	mp        string
	algorithm string
	// maxChunkSize caps a single chunk payload, 0 disables the cap.
	maxChunkSize int64

	diskCapacity atomic.Uint64

	// removeAll deletes expired entries during a sweep.
	removeAll func(path string) error
}

type Option func(fs *FileStore)

func WithMaxChunkSize(n int64) Option {
	return func(fs *FileStore) {
		fs.maxChunkSize = n
	}
}

// NewFileStore prepares the chunks, artifacts and tmp roots under mountPoint.
func NewFileStore(mountPoint, algorithm string, opts ...Option) (*FileStore, error) {
	if mountPoint == "" {
		return nil, fmt.Errorf("storage mount point is empty")
	}
	if _, err := newHasher(algorithm); err != nil {
		return nil, err
	}

	mp, err := filepath.Abs(mountPoint)
	if err != nil {
		return nil, err
	}

	fs := &FileStore{
		mp:        mp,
		algorithm: algorithm,
		removeAll: os.RemoveAll,
	}
	for _, opt := range opts {
		opt(fs)
	}

	for _, dir := range []string{fs.chunksDir(), fs.artifactsDir(), fs.tempDir()} {
		if err := createDirs(dir); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	if err := fs.CalculateCurrentDiskCapacity(); err != nil {
		logging.Logger.Warn("Unable to read disk capacity", zap.String("mount_point", mp), zap.Error(err))
	}
	return fs, nil
}

// MountPoint returns the absolute root of the store.
func (fs *FileStore) MountPoint() string {
	return fs.mp
}

func (fs *FileStore) Algorithm() string {
	return fs.algorithm
}

// createTempFile opens a uniquely named, exclusively created file in tmp/.
func (fs *FileStore) createTempFile(prefix string) (*os.File, error) {
	name := filepath.Join(fs.tempDir(), prefix+"."+shortuuid.New())
	return os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
}

func (fs *FileStore) removeTempFile(f *os.File) {
	_ = f.Close()
	if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
		logging.Logger.Warn("Unable to remove temp file", zap.String("path", f.Name()), zap.Error(err))
	}
}

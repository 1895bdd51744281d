package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"github.com/remeh/sizedwaitgroup"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sweep removes every top-level entry of chunks/, artifacts/ and tmp/ whose
// modification time is older than now-retention. Each removal stands on its
// own: failures are logged and counted, and the next pass retries them.
func (fs *FileStore) Sweep(now time.Time, retention time.Duration, numWorkers int) SweepReport {
	if numWorkers < 1 {
		numWorkers = 1
	}
	cutoff := now.Add(-retention)

	var scanned, removed, failed atomic.Int64
	swg := sizedwaitgroup.New(numWorkers)

	var eg errgroup.Group
	for _, root := range []string{fs.chunksDir(), fs.artifactsDir(), fs.tempDir()} {
		root := root
		eg.Go(func() error {
			entries, err := os.ReadDir(root)
			if err != nil {
				failed.Add(1)
				return fmt.Errorf("scan %s: %w", root, err)
			}
			for _, entry := range entries {
				scanned.Add(1)
				finfo, err := entry.Info()
				if err != nil {
					// removed underneath us
					continue
				}
				if !finfo.ModTime().Before(cutoff) {
					continue
				}

				path := filepath.Join(root, entry.Name())
				swg.Add()
				go func() {
					defer swg.Done()
					if err := fs.removeAll(path); err != nil {
						logging.Logger.Error("Unable to remove expired entry", zap.String("path", path), zap.Error(err))
						failed.Add(1)
						return
					}
					removed.Add(1)
				}()
			}
			return nil
		})
	}
	// the other roots are still swept when one cannot be read
	if err := eg.Wait(); err != nil {
		logging.Logger.Error("Unable to scan storage root", zap.Error(err))
	}
	swg.Wait()

	report := SweepReport{
		Scanned: int(scanned.Load()),
		Removed: int(removed.Load()),
		Failed:  int(failed.Load()),
	}
	if report.Removed > 0 || report.Failed > 0 {
		logging.Logger.Info("Retention sweep done",
			zap.Int("scanned", report.Scanned),
			zap.Int("removed", report.Removed),
			zap.Int("failed", report.Failed))
	}
	return report
}

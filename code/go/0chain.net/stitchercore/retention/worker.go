package retention

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/filestore"
	"go.uber.org/zap"
)

// Pruner drops bookkeeping older than the given time.
type Pruner func(ctx context.Context, before time.Time) (int64, error)

// Sweeper deletes chunks, artifacts and staging files that outlived the
// retention window.
type Sweeper struct {
	fs         filestore.FileStorer
	window     time.Duration
	numWorkers int
	prune      Pruner

	iterInprogress atomic.Bool
	now            func() time.Time
}

func NewSweeper(fs filestore.FileStorer, window time.Duration, numWorkers int, prune Pruner) *Sweeper {
	return &Sweeper{
		fs:         fs,
		window:     window,
		numWorkers: numWorkers,
		prune:      prune,
		now:        time.Now,
	}
}

// SetupWorkers starts the periodic sweep.
func SetupWorkers(ctx context.Context, s *Sweeper, interval time.Duration) {
	go s.SweepWorker(ctx, interval)
}

// SweepWorker runs a pass right away and then once per interval until ctx is done.
func (s *Sweeper) SweepWorker(ctx context.Context, interval time.Duration) {
	logging.Logger.Info("start retention worker",
		zap.Duration("window", s.window), zap.Duration("interval", interval))

	var tk = time.NewTicker(interval)
	defer tk.Stop()

	var (
		tick = tk.C
		quit = ctx.Done()
	)

	s.RunOnce(ctx)
	for {
		select {
		case <-tick:
			s.RunOnce(ctx)
		case <-quit:
			return
		}
	}
}

// RunOnce performs one pass. It returns false without doing anything when
// another pass is still running.
func (s *Sweeper) RunOnce(ctx context.Context) (filestore.SweepReport, bool) {
	if !s.iterInprogress.CompareAndSwap(false, true) {
		logging.Logger.Info("Retention sweep still in progress, skipping")
		return filestore.SweepReport{}, false
	}
	defer s.iterInprogress.Store(false)

	now := s.now()
	report := s.fs.Sweep(now, s.window, s.numWorkers)

	if s.prune != nil {
		n, err := s.prune(ctx, now.Add(-s.window))
		if err != nil {
			logging.Logger.Warn("Unable to prune journal", zap.Error(err))
		} else if n > 0 {
			logging.Logger.Info("Journal pruned", zap.Int64("entries", n))
		}
	}

	if err := s.fs.CalculateCurrentDiskCapacity(); err != nil {
		logging.Logger.Warn("Unable to refresh disk capacity", zap.Error(err))
	}
	return report, true
}

package journal

import (
	"context"
	"sync"
	"time"

	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/datastore"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate creates the journal tables on the current store.
func Migrate() error {
	store := datastore.GetStore()
	if store == nil {
		return nil
	}
	return store.AutoMigrate(&AssemblyLog{})
}

func getDB(ctx context.Context) *gorm.DB {
	store := datastore.GetStore()
	if store == nil || store.GetDB() == nil {
		return nil
	}
	return store.GetDB().WithContext(ctx)
}

// Record appends an entry. It is a no-op when no store is open.
func Record(ctx context.Context, entry *AssemblyLog) error {
	db := getDB(ctx)
	if db == nil {
		return nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return db.Create(entry).Error
}

// recordTimeout bounds a background write.
const recordTimeout = 10 * time.Second

var pending sync.WaitGroup

// RecordAsync records entry in the background and only logs failures. The
// write is detached from ctx cancellation so entries produced while the
// process drains are kept.
func RecordAsync(ctx context.Context, entry *AssemblyLog) {
	pending.Add(1)
	go func() {
		defer pending.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()

		if err := Record(ctx, entry); err != nil {
			logging.Logger.Warn("Unable to record assembly",
				zap.String("transfer_id", entry.TransferID), zap.Error(err))
		}
	}()
}

// Wait blocks until every background write has finished.
func Wait() {
	pending.Wait()
}

// Summarize counts attempts and bytes per result since the given time.
func Summarize(ctx context.Context, since time.Time) ([]Summary, error) {
	db := getDB(ctx)
	if db == nil {
		return nil, nil
	}

	var out []Summary
	err := db.Model(&AssemblyLog{}).
		Select("result, count(*) AS count, coalesce(sum(size), 0) AS bytes").
		Where("created_at >= ?", since).
		Group("result").
		Order("result").
		Scan(&out).Error
	return out, err
}

// Recent returns the latest entries for a transfer, newest first.
func Recent(ctx context.Context, transferID string, limit int) ([]AssemblyLog, error) {
	db := getDB(ctx)
	if db == nil {
		return nil, nil
	}

	var out []AssemblyLog
	err := db.Where("transfer_id = ?", transferID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Prune deletes entries created before the given time.
func Prune(ctx context.Context, before time.Time) (int64, error) {
	store := datastore.GetStore()
	if store == nil {
		return 0, nil
	}

	var rows int64
	err := store.WithNewTransaction(ctx, func(ctx context.Context) error {
		tx := store.GetTransaction(ctx)
		res := tx.Where("created_at < ?", before).Delete(&AssemblyLog{})
		rows = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, err
	}
	logging.Logger.Debug("Journal pruned", zap.Time("before", before), zap.Int64("rows", rows))
	return rows, nil
}

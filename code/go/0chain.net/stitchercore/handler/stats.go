package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/config"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/filestore"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/journal"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/transfer"
	"go.uber.org/zap"
)

const (
	statsWindow = 24 * time.Hour
	recentLimit = 20
)

type HealthResponse struct {
	Status    string `json:"status"`
	DiskFree  uint64 `json:"disk_free"`
	UptimeSec int64  `json:"uptime_sec"`
}

type StatsResponse struct {
	Transfers transfer.Stats        `json:"transfers"`
	Journal   []journal.Summary     `json:"journal,omitempty"`
	Recent    []journal.AssemblyLog `json:"recent,omitempty"`
	DiskFree  uint64                `json:"disk_free"`
	Config    StatsConfig           `json:"config"`
}

type StatsConfig struct {
	DigestAlgorithm      string `json:"digest_algorithm"`
	MaxChunksPerTransfer int    `json:"max_chunks_per_transfer"`
	MaxChunkSize         int64  `json:"max_chunk_size"`
	RetentionWindow      string `json:"retention_window"`
	AssemblyWorkers      int    `json:"assembly_workers"`
	JournalEnabled       bool   `json:"journal_enabled"`
}

// swagger:route GET /_health health
// Liveness with free disk space on the storage volume.
func HealthHandler(ctx context.Context, r *http.Request) (interface{}, error) {
	resp := &HealthResponse{
		Status:    "ok",
		UptimeSec: int64(time.Since(startedAt).Seconds()),
	}
	if fs := filestore.GetFileStore(); fs != nil {
		resp.DiskFree = fs.GetCurrentDiskCapacity()
	}
	return resp, nil
}

// StatsHandler reports counters of this process, the journal summary over
// the last day and the effective limits. With ?transfer_id= it also lists
// the latest recorded attempts for that transfer.
func StatsHandler(ctx context.Context, r *http.Request) (interface{}, error) {
	cfg := config.Configuration
	resp := &StatsResponse{
		Transfers: service.Stats(),
		Config: StatsConfig{
			DigestAlgorithm:      cfg.Digest.Algorithm,
			MaxChunksPerTransfer: cfg.MaxChunksPerTransfer,
			MaxChunkSize:         cfg.MaxChunkSize,
			RetentionWindow:      cfg.Retention.Window.String(),
			AssemblyWorkers:      cfg.Assembly.NumWorkers,
			JournalEnabled:       cfg.Journal.Enabled,
		},
	}
	if fs := filestore.GetFileStore(); fs != nil {
		resp.DiskFree = fs.GetCurrentDiskCapacity()
	}

	summary, err := journal.Summarize(ctx, time.Now().Add(-statsWindow))
	if err != nil {
		logging.Logger.Warn("Unable to summarize journal", zap.Error(err))
	}
	resp.Journal = summary

	if transferID := r.URL.Query().Get("transfer_id"); transferID != "" {
		recent, err := journal.Recent(ctx, transferID, recentLimit)
		if err != nil {
			logging.Logger.Warn("Unable to read journal", zap.String("transfer_id", transferID), zap.Error(err))
		}
		resp.Recent = recent
	}
	return resp, nil
}

package transfer

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0chain/errors"
	"github.com/0chain/stitcher/code/go/0chain.net/core/common"
	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/filestore"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/journal"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/remeh/sizedwaitgroup"
	"go.uber.org/zap"
)

type Ack int

const (
	AckNew Ack = iota
	AckExisting
)

func (a Ack) String() string {
	if a == AckExisting {
		return "duplicate"
	}
	return "accepted"
}

type ChunkRequest struct {
	TransferID string
	Index      int
	Total      int
	// Digest is the hex digest the whole artifact must match.
	Digest  string
	Payload io.Reader
}

type IngestResult struct {
	TransferID string
	Index      int
	Ack        Ack
	Size       int64
	// Complete is set once every chunk is present or the artifact is published.
	Complete bool
}

// Recorder persists a finished assembly attempt somewhere outside the
// filestore. It must not block the assembly worker.
type Recorder func(ctx context.Context, entry *journal.AssemblyLog)

type Options struct {
	MaxChunksPerTransfer int
	// NumWorkers bounds concurrent assemblies in this process.
	NumWorkers int
	// InflightSize bounds the set of transfers with a scheduled assembly.
	InflightSize int
	Recorder     Recorder
}

type Stats struct {
	ChunksAccepted   int64 `json:"chunks_accepted"`
	ChunksDuplicate  int64 `json:"chunks_duplicate"`
	ChunksRejected   int64 `json:"chunks_rejected"`
	AssembliesReady  int64 `json:"assemblies_ready"`
	DigestMismatches int64 `json:"digest_mismatches"`
	Incomplete       int64 `json:"assemblies_incomplete"`
	AssemblyErrors   int64 `json:"assembly_errors"`
}

// Service implements the boundary operations on top of a FileStorer.
type Service struct {
	ctx  context.Context
	fs   filestore.FileStorer
	opts Options

	swg      sizedwaitgroup.SizedWaitGroup
	pending  sync.WaitGroup
	inflight *lru.Cache[string, struct{}]

	chunksAccepted   atomic.Int64
	chunksDuplicate  atomic.Int64
	chunksRejected   atomic.Int64
	assembliesReady  atomic.Int64
	digestMismatches atomic.Int64
	incomplete       atomic.Int64
	assemblyErrors   atomic.Int64
}

func NewService(ctx context.Context, fs filestore.FileStorer, opts Options) (*Service, error) {
	if opts.NumWorkers < 1 {
		opts.NumWorkers = 1
	}
	if opts.InflightSize < 1 {
		opts.InflightSize = 1024
	}

	inflight, err := lru.New[string, struct{}](opts.InflightSize)
	if err != nil {
		return nil, err
	}

	return &Service{
		ctx:      ctx,
		fs:       fs,
		opts:     opts,
		swg:      sizedwaitgroup.New(opts.NumWorkers),
		inflight: inflight,
	}, nil
}

// IngestChunk stores one chunk and, when the chunk set is complete,
// schedules an assembly. The completion check also runs for duplicates so a
// retried chunk re-triggers a failed or lost assembly.
func (s *Service) IngestChunk(ctx context.Context, req *ChunkRequest) (*IngestResult, error) {
	if err := s.validate(req); err != nil {
		s.chunksRejected.Add(1)
		return nil, err
	}

	res, err := s.fs.PutChunk(req.TransferID, req.Index, req.Total, req.Payload)
	if err != nil {
		if isInputError(err) {
			s.chunksRejected.Add(1)
			return nil, toInputError(err)
		}
		logging.Logger.Error("Unable to store chunk",
			zap.String("transfer_id", req.TransferID),
			zap.Int("index", req.Index),
			zap.Error(err))
		return nil, common.InternalError("chunk_write_failed")
	}

	result := &IngestResult{
		TransferID: req.TransferID,
		Index:      req.Index,
		Size:       res.Size,
	}
	if res.AlreadyExisted {
		result.Ack = AckExisting
		s.chunksDuplicate.Add(1)
	} else {
		s.chunksAccepted.Add(1)
	}

	complete, err := s.fs.IsComplete(req.TransferID, req.Total)
	if err != nil {
		// the chunk is durable; the next write retries the check
		logging.Logger.Warn("Completion check failed",
			zap.String("transfer_id", req.TransferID), zap.Error(err))
		return result, nil
	}

	if complete {
		s.scheduleAssembly(ctx, req.TransferID, req.Total, req.Digest)
		result.Complete = true
	} else if res.AlreadyExisted {
		status, err := s.fs.Resolve(req.TransferID)
		result.Complete = err == nil && status.State == filestore.StateReady
	}
	return result, nil
}

// GetStatus classifies a transfer as ready, in progress or not found.
func (s *Service) GetStatus(ctx context.Context, transferID string) (*filestore.TransferStatus, error) {
	status, err := s.fs.Resolve(transferID)
	if err != nil {
		if isInputError(err) {
			return nil, toInputError(err)
		}
		logging.Logger.Error("Unable to resolve transfer", zap.String("transfer_id", transferID), zap.Error(err))
		return nil, common.InternalError("status_failed")
	}
	return status, nil
}

// ReadArtifact opens the published artifact. The caller closes the file.
func (s *Service) ReadArtifact(ctx context.Context, transferID string) (*os.File, os.FileInfo, error) {
	f, finfo, err := s.fs.OpenArtifact(transferID)
	if err != nil {
		switch {
		case isInputError(err):
			return nil, nil, toInputError(err)
		case errors.Is(err, filestore.ErrTransferNotFound):
			return nil, nil, common.NewErrorfWithStatusCode(http.StatusNotFound, "not_found",
				"transfer %s has no artifact", transferID)
		}
		logging.Logger.Error("Unable to open artifact", zap.String("transfer_id", transferID), zap.Error(err))
		return nil, nil, common.InternalError("download_failed")
	}
	return f, finfo, nil
}

// Wait blocks until every scheduled assembly has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) Stats() Stats {
	return Stats{
		ChunksAccepted:   s.chunksAccepted.Load(),
		ChunksDuplicate:  s.chunksDuplicate.Load(),
		ChunksRejected:   s.chunksRejected.Load(),
		AssembliesReady:  s.assembliesReady.Load(),
		DigestMismatches: s.digestMismatches.Load(),
		Incomplete:       s.incomplete.Load(),
		AssemblyErrors:   s.assemblyErrors.Load(),
	}
}

func (s *Service) validate(req *ChunkRequest) error {
	if req == nil || req.Payload == nil {
		return common.NewErrorfWithStatusCode(http.StatusBadRequest, "invalid_parameters", "chunk payload is missing")
	}
	if err := filestore.ValidateChunkInput(req.TransferID, req.Index, req.Total); err != nil {
		return toInputError(err)
	}
	if s.opts.MaxChunksPerTransfer > 0 && req.Total > s.opts.MaxChunksPerTransfer {
		return common.NewErrorfWithStatusCode(http.StatusBadRequest, "invalid_parameters",
			"total %d exceeds the limit of %d chunks", req.Total, s.opts.MaxChunksPerTransfer)
	}
	if err := s.fs.ValidateDigest(req.Digest); err != nil {
		return toInputError(err)
	}
	return nil
}

// scheduleAssembly starts an assembly unless this process already has one
// pending for the transfer. It blocks while every assembly worker is busy;
// when ctx ends first nothing is scheduled and the next write of a chunk of
// the transfer triggers it again.
func (s *Service) scheduleAssembly(ctx context.Context, transferID string, total int, digest string) bool {
	if found, _ := s.inflight.ContainsOrAdd(transferID, struct{}{}); found {
		return false
	}

	if err := s.swg.AddWithContext(ctx); err != nil {
		s.inflight.Remove(transferID)
		logging.Logger.Warn("Assembly not scheduled, workers busy",
			zap.String("transfer_id", transferID), zap.Error(err))
		return false
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer s.inflight.Remove(transferID)
		defer s.swg.Done()

		s.assemble(transferID, total, digest)
	}()
	return true
}

func (s *Service) assemble(transferID string, total int, digest string) {
	start := time.Now()
	outcome, err := s.fs.Assemble(transferID, total, digest)
	elapsed := time.Since(start)

	fields := []zap.Field{
		zap.String("transfer_id", transferID),
		zap.Int("chunks", outcome.Chunks),
		zap.Int64("size", outcome.Size),
		zap.Duration("duration", elapsed),
	}
	switch outcome.Result {
	case filestore.AssemblyReady:
		s.assembliesReady.Add(1)
		logging.Logger.Info("Artifact published", fields...)
	case filestore.AssemblyDigestMismatch:
		s.digestMismatches.Add(1)
		logging.Logger.Warn("Artifact digest mismatch, transfer discarded",
			append(fields, zap.String("expected", digest), zap.String("actual", outcome.Digest))...)
	case filestore.AssemblyIncomplete:
		s.incomplete.Add(1)
		logging.Logger.Debug("Assembly found an incomplete chunk set", fields...)
	default:
		s.assemblyErrors.Add(1)
		logging.Logger.Error("Assembly failed", append(fields, zap.Error(err))...)
	}

	if s.opts.Recorder == nil {
		return
	}
	entry := &journal.AssemblyLog{
		TransferID: transferID,
		Result:     outcome.Result.String(),
		Chunks:     outcome.Chunks,
		Size:       outcome.Size,
		DurationMs: elapsed.Milliseconds(),
	}
	// attempts drained during shutdown are still recorded
	s.opts.Recorder(context.WithoutCancel(s.ctx), entry)
}

func isInputError(err error) bool {
	return errors.Is(err, filestore.ErrInvalidParameter) || errors.Is(err, filestore.ErrChunkTooLarge)
}

func toInputError(err error) error {
	code := "invalid_parameters"
	if errors.Is(err, filestore.ErrChunkTooLarge) {
		code = "chunk_too_large"
	}
	msg := err.Error()
	var appErr *errors.ApplicationError
	if errors.As(err, &appErr) && len(appErr.MsgList) > 0 {
		msg = strings.Join(appErr.MsgList, "; ")
	}
	return common.NewErrorfWithStatusCode(http.StatusBadRequest, code, "%s", msg)
}

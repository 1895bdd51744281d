package filestore

import (
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/0chain/errors"
	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"go.uber.org/zap"
)

// Assemble concatenates chunks 0..total-1 into a private staging file while
// hashing the stream, then publishes it as artifacts/{transfer_id} with a
// single rename. Any number of attempts for the same transfer may run at
// once: each one only ever touches its own staging file, and a rename over
// an existing artifact replaces it with identical bytes.
//
// The error is non-nil only for AssemblyIOError.
func (fs *FileStore) Assemble(transferID string, total int, expectedDigest string) (*AssemblyOutcome, error) {
	outcome := &AssemblyOutcome{Result: AssemblyIOError}
	if err := ValidateTransferID(transferID); err != nil {
		return outcome, err
	}
	if total < 1 {
		return outcome, errors.Throw(ErrInvalidParameter, "total must be a positive integer")
	}
	if err := fs.ValidateDigest(expectedDigest); err != nil {
		return outcome, err
	}

	artifactPath := fs.getArtifactPath(transferID)
	if finfo, err := os.Stat(artifactPath); err == nil {
		outcome.Result = AssemblyReady
		outcome.Chunks = total
		outcome.Size = finfo.Size()
		return outcome, nil
	}

	chunks, err := fs.listChunks(transferID)
	if err != nil {
		if os.IsNotExist(err) {
			outcome.Result = AssemblyIncomplete
			return outcome, nil
		}
		return outcome, errors.ThrowLog(err.Error(), ErrStorage, "unable to list chunks")
	}
	outcome.Chunks = chunks.Size()
	declared, ok, err := fs.readDeclaredTotal(transferID)
	if err != nil {
		return outcome, err
	}
	if (ok && declared != total) || !isContiguous(chunks, total) {
		outcome.Result = AssemblyIncomplete
		return outcome, nil
	}

	f, err := fs.createTempFile(transferID)
	if err != nil {
		return outcome, errors.ThrowLog(err.Error(), ErrStorage, "unable to create temp file")
	}

	h := fs.newHasher()
	w := io.MultiWriter(f, h)

	it := chunks.Iterator()
	for it.Next() {
		n, err := appendChunk(w, it.Value().(string))
		if err != nil {
			fs.removeTempFile(f)
			if os.IsNotExist(err) {
				// swept or consumed by a concurrent attempt
				outcome.Result = AssemblyIncomplete
				return outcome, nil
			}
			return outcome, errors.ThrowLog(err.Error(), ErrStorage, "unable to read chunk")
		}
		outcome.Size += n
	}

	if err := f.Sync(); err != nil {
		fs.removeTempFile(f)
		return outcome, errors.ThrowLog(err.Error(), ErrStorage, "unable to sync artifact")
	}
	if err := f.Close(); err != nil {
		fs.removeTempFile(f)
		return outcome, errors.ThrowLog(err.Error(), ErrStorage, "unable to close artifact")
	}

	outcome.Digest = hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(outcome.Digest, expectedDigest) {
		fs.removeTempFile(f)
		logging.Logger.Warn("Artifact digest mismatch, discarding chunks",
			zap.String("transfer_id", transferID),
			zap.String("expected", expectedDigest),
			zap.String("actual", outcome.Digest))
		fs.removeChunkDir(transferID)
		outcome.Result = AssemblyDigestMismatch
		return outcome, nil
	}

	if err := os.Rename(f.Name(), artifactPath); err != nil {
		fs.removeTempFile(f)
		return outcome, errors.ThrowLog(err.Error(), ErrStorage, "unable to publish artifact")
	}

	fs.removeChunkDir(transferID)
	outcome.Result = AssemblyReady
	return outcome, nil
}

func appendChunk(w io.Writer, path string) (int64, error) {
	r, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return io.Copy(w, r)
}

// removeChunkDir is best effort; leftovers are collected by the sweeper.
func (fs *FileStore) removeChunkDir(transferID string) {
	if err := os.RemoveAll(fs.getChunkDir(transferID)); err != nil {
		logging.Logger.Warn("Unable to remove chunk dir",
			zap.String("transfer_id", transferID), zap.Error(err))
	}
}

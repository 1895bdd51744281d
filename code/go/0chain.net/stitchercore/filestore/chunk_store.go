package filestore

import (
	"encoding/hex"
	"io"
	"os"
	"strconv"

	"github.com/0chain/errors"
	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/minio/sha256-simd"
	"go.uber.org/zap"
)

// PutChunk durably stores one chunk blob. The payload is staged in tmp/,
// fsynced and then hard-linked to chunks/{transfer_id}/{index}; link(2)
// fails on an existing name, so exactly one concurrent writer of the same
// (transfer, index) wins and the others are reported as AlreadyExisted.
// The first chunk of a transfer fixes its total; a new chunk declaring a
// different one is rejected.
func (fs *FileStore) PutChunk(transferID string, index, total int, payload io.Reader) (*ChunkResult, error) {
	if err := ValidateChunkInput(transferID, index, total); err != nil {
		return nil, err
	}

	if exists(fs.getArtifactPath(transferID)) {
		return &ChunkResult{AlreadyExisted: true}, nil
	}

	chunkPath := fs.getChunkPath(transferID, index)
	if finfo, err := os.Lstat(chunkPath); err == nil {
		return &ChunkResult{AlreadyExisted: true, Size: finfo.Size()}, nil
	}

	f, err := fs.createTempFile("chunk")
	if err != nil {
		return nil, errors.ThrowLog(err.Error(), ErrStorage, "unable to create temp file")
	}
	defer fs.removeTempFile(f)

	h := sha256.New()
	var src io.Reader = payload
	if fs.maxChunkSize > 0 {
		src = io.LimitReader(payload, fs.maxChunkSize+1)
	}
	n, err := io.Copy(io.MultiWriter(f, h), src)
	if err != nil {
		return nil, errors.ThrowLog(err.Error(), ErrStorage, "unable to write chunk")
	}
	if fs.maxChunkSize > 0 && n > fs.maxChunkSize {
		return nil, errors.Throw(ErrChunkTooLarge,
			"chunk "+strconv.Itoa(index)+" is larger than "+strconv.FormatInt(fs.maxChunkSize, 10)+" bytes")
	}
	if err := f.Sync(); err != nil {
		return nil, errors.ThrowLog(err.Error(), ErrStorage, "unable to sync chunk")
	}
	if err := f.Close(); err != nil {
		return nil, errors.ThrowLog(err.Error(), ErrStorage, "unable to close chunk")
	}

	result := &ChunkResult{Size: n, Hash: hex.EncodeToString(h.Sum(nil))}

	// A finishing assembly may remove the chunk directory between MkdirAll
	// and Link, so the link gets one retry.
	for attempt := 0; ; attempt++ {
		if err := createDirs(fs.getChunkDir(transferID)); err != nil {
			return nil, errors.ThrowLog(err.Error(), ErrStorage, "unable to create chunk dir")
		}

		err = fs.declareTotal(transferID, total)
		if err == nil {
			err = os.Link(f.Name(), chunkPath)
		} else if errors.Is(err, ErrInvalidParameter) {
			return nil, err
		}
		switch {
		case err == nil:
			return result, nil
		case os.IsExist(err):
			logging.Logger.Debug("Duplicate chunk",
				zap.String("transfer_id", transferID), zap.Int("index", index))
			return &ChunkResult{AlreadyExisted: true, Size: n, Hash: result.Hash}, nil
		case os.IsNotExist(err) && exists(fs.getArtifactPath(transferID)):
			return &ChunkResult{AlreadyExisted: true}, nil
		case os.IsNotExist(err) && attempt == 0:
			continue
		case errors.Is(err, ErrStorage):
			return nil, err
		default:
			return nil, errors.ThrowLog(err.Error(), ErrStorage, "unable to link chunk")
		}
	}
}

// CountChunks returns the number of chunk blobs currently stored for the transfer.
func (fs *FileStore) CountChunks(transferID string) (int, error) {
	if err := ValidateTransferID(transferID); err != nil {
		return 0, err
	}
	chunks, err := fs.listChunks(transferID)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return chunks.Size(), nil
}

// IsComplete reports whether every index in [0, total) is present and total
// is the one declared by the first chunk of the transfer.
func (fs *FileStore) IsComplete(transferID string, total int) (bool, error) {
	if total < 1 {
		return false, errors.Throw(ErrInvalidParameter, "total must be a positive integer")
	}
	if err := ValidateTransferID(transferID); err != nil {
		return false, err
	}
	chunks, err := fs.listChunks(transferID)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if declared, ok, err := fs.readDeclaredTotal(transferID); err != nil {
		return false, err
	} else if ok && declared != total {
		return false, nil
	}
	return isContiguous(chunks, total), nil
}

// listChunks maps chunk index to blob path, ordered numerically. Entries
// whose names are not canonical decimal indices are ignored.
func (fs *FileStore) listChunks(transferID string) (*treemap.Map, error) {
	dir := fs.getChunkDir(transferID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	chunks := treemap.NewWithIntComparator()
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		index, ok := parseChunkName(entry.Name())
		if !ok {
			continue
		}
		chunks.Put(index, fs.getChunkPath(transferID, index))
	}
	return chunks, nil
}

func parseChunkName(name string) (int, bool) {
	index, err := strconv.Atoi(name)
	if err != nil || index < 0 || strconv.Itoa(index) != name {
		return 0, false
	}
	return index, true
}

// isContiguous is true when chunks holds exactly the keys 0..total-1.
func isContiguous(chunks *treemap.Map, total int) bool {
	if chunks.Size() != total {
		return false
	}
	minKey, _ := chunks.Min()
	maxKey, _ := chunks.Max()
	return minKey == 0 && maxKey == total-1
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

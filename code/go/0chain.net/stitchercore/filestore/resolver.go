package filestore

import (
	"os"

	"github.com/0chain/errors"
)

// Resolve classifies a transfer from the filesystem alone. The artifact is
// checked first: once it exists, the transfer is ready regardless of any
// chunk directory still lying around.
func (fs *FileStore) Resolve(transferID string) (*TransferStatus, error) {
	if err := ValidateTransferID(transferID); err != nil {
		return nil, err
	}
	status := &TransferStatus{TransferID: transferID, State: StateNotFound}

	finfo, err := os.Stat(fs.getArtifactPath(transferID))
	switch {
	case err == nil && finfo.Mode().IsRegular():
		status.State = StateReady
		status.ArtifactSize = finfo.Size()
		status.ModTime = finfo.ModTime()
		return status, nil
	case err != nil && !os.IsNotExist(err):
		return nil, errors.ThrowLog(err.Error(), ErrStorage, "unable to stat artifact")
	}

	finfo, err = os.Stat(fs.getChunkDir(transferID))
	switch {
	case err == nil && finfo.IsDir():
		n, err := fs.CountChunks(transferID)
		if err != nil {
			return nil, errors.ThrowLog(err.Error(), ErrStorage, "unable to count chunks")
		}
		status.State = StateInProgress
		status.ReceivedChunks = n
	case err != nil && !os.IsNotExist(err):
		return nil, errors.ThrowLog(err.Error(), ErrStorage, "unable to stat chunk dir")
	}
	return status, nil
}

// OpenArtifact opens the published artifact for reading. The caller closes it.
func (fs *FileStore) OpenArtifact(transferID string) (*os.File, os.FileInfo, error) {
	if err := ValidateTransferID(transferID); err != nil {
		return nil, nil, err
	}

	f, err := os.Open(fs.getArtifactPath(transferID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.Throw(ErrTransferNotFound, transferID)
		}
		return nil, nil, errors.ThrowLog(err.Error(), ErrStorage, "unable to open artifact")
	}
	finfo, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, errors.ThrowLog(err.Error(), ErrStorage, "unable to stat artifact")
	}
	return f, finfo, nil
}

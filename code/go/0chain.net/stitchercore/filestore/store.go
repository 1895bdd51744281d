package filestore

// Layout of the shared volume ({mount_point} is storage.files_dir):
//
//	{mount_point}/chunks/{transfer_id}/{index}   chunk blobs, decimal index names
//	{mount_point}/artifacts/{transfer_id}        assembled, digest-verified artifact
//	{mount_point}/tmp/...                        private staging files
//
// All three live on the same volume so link(2) and rename(2) are atomic
// between them. Nothing else is persisted: a transfer is ready iff its
// artifact exists, in progress iff its chunk directory exists.

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/0chain/errors"
)

const (
	ChunksDirName    = "chunks"
	ArtifactsDirName = "artifacts"
	TempDirName      = "tmp"

	MaxTransferIDLength = 128
)

var (
	ErrInvalidParameter = errors.New("invalid_parameter", "invalid parameter")
	ErrTransferNotFound = errors.New("transfer_not_found", "transfer not found")
	ErrChunkTooLarge    = errors.New("chunk_too_large", "chunk exceeds the maximum chunk size")
	ErrStorage          = errors.New("storage_error", "storage operation failed")
)

var transferIDRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ChunkResult is what PutChunk reports back for a single chunk write.
type ChunkResult struct {
	// AlreadyExisted is true when the (transfer, index) blob was stored by an
	// earlier write, or the transfer is already assembled. Nothing was written.
	AlreadyExisted bool
	Size           int64
	// Hash is the hex sha256 of the bytes written by this call.
	Hash string
}

type AssemblyResult int

const (
	AssemblyReady AssemblyResult = iota
	AssemblyDigestMismatch
	AssemblyIncomplete
	AssemblyIOError
)

func (r AssemblyResult) String() string {
	switch r {
	case AssemblyReady:
		return "ready"
	case AssemblyDigestMismatch:
		return "digest_mismatch"
	case AssemblyIncomplete:
		return "incomplete"
	case AssemblyIOError:
		return "io_error"
	}
	return "AssemblyResult(" + strconv.Itoa(int(r)) + ")"
}

// AssemblyOutcome describes a finished assembly attempt.
type AssemblyOutcome struct {
	Result AssemblyResult
	Chunks int
	Size   int64
	// Digest is the recomputed hex digest, empty if the stream was not fully read.
	Digest string
}

type TransferState int

const (
	StateNotFound TransferState = iota
	StateInProgress
	StateReady
)

func (s TransferState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateInProgress:
		return "in_progress"
	default:
		return "not_found"
	}
}

// TransferStatus is a point-in-time classification of a transfer.
type TransferStatus struct {
	TransferID string
	State      TransferState
	// ArtifactSize and ModTime are set for StateReady.
	ArtifactSize int64
	ModTime      time.Time
	// ReceivedChunks is set for StateInProgress.
	ReceivedChunks int
}

// SweepReport summarizes one retention pass.
type SweepReport struct {
	Scanned int
	Removed int
	Failed  int
}

type FileStorer interface {
	PutChunk(transferID string, index, total int, payload io.Reader) (*ChunkResult, error)
	CountChunks(transferID string) (int, error)
	IsComplete(transferID string, total int) (bool, error)
	Assemble(transferID string, total int, expectedDigest string) (*AssemblyOutcome, error)
	Resolve(transferID string) (*TransferStatus, error)
	OpenArtifact(transferID string) (*os.File, os.FileInfo, error)
	Sweep(now time.Time, retention time.Duration, numWorkers int) SweepReport
	ValidateDigest(hexDigest string) error
	CalculateCurrentDiskCapacity() error
	GetCurrentDiskCapacity() uint64
}

var fileStore FileStorer

func SetFileStore(fs FileStorer) {
	fileStore = fs
}

func GetFileStore() FileStorer {
	return fileStore
}

// ValidateTransferID rejects identifiers that are empty, too long or not
// safe to use as a single path element.
func ValidateTransferID(transferID string) error {
	if transferID == "" {
		return errors.Throw(ErrInvalidParameter, "transfer_id is missing")
	}
	if len(transferID) > MaxTransferIDLength || !transferIDRE.MatchString(transferID) {
		return errors.Throw(ErrInvalidParameter, "transfer_id is malformed: "+strconv.Quote(transferID))
	}
	return nil
}

// ValidateChunkInput checks a chunk's addressing before anything touches storage.
func ValidateChunkInput(transferID string, index, total int) error {
	if err := ValidateTransferID(transferID); err != nil {
		return err
	}
	if total < 1 {
		return errors.Throw(ErrInvalidParameter, "total must be a positive integer")
	}
	if index < 0 || index >= total {
		return errors.Throw(ErrInvalidParameter,
			"index "+strconv.Itoa(index)+" is out of range [0,"+strconv.Itoa(total)+")")
	}
	return nil
}

/*****************************************Paths*****************************************/

func (fs *FileStore) chunksDir() string {
	return filepath.Join(fs.mp, ChunksDirName)
}

func (fs *FileStore) artifactsDir() string {
	return filepath.Join(fs.mp, ArtifactsDirName)
}

func (fs *FileStore) tempDir() string {
	return filepath.Join(fs.mp, TempDirName)
}

func (fs *FileStore) getChunkDir(transferID string) string {
	return filepath.Join(fs.chunksDir(), transferID)
}

func (fs *FileStore) getChunkPath(transferID string, index int) string {
	return filepath.Join(fs.getChunkDir(transferID), strconv.Itoa(index))
}

func (fs *FileStore) getArtifactPath(transferID string) string {
	return filepath.Join(fs.artifactsDir(), transferID)
}

func createDirs(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err = os.MkdirAll(dir, 0700)
		if err != nil {
			return err
		}
	}
	return nil
}

//go:build !integration
// +build !integration

package filestore

import (
	"bytes"
	"encoding/hex"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0chain/errors"
	"github.com/minio/sha256-simd"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/errgroup"
)

const (
	KB = 1024
)

func setupStorage(t *testing.T, opts ...Option) *FileStore {
	fs, err := NewFileStore(t.TempDir(), DigestSHA256, opts...)
	require.NoError(t, err)
	return fs
}

func digestOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func splitChunks(data []byte, n int) [][]byte {
	size := (len(data) + n - 1) / n
	chunks := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		start := i * size
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end])
	}
	return chunks
}

func randBytes(n int) []byte {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	b := make([]byte, n)
	r.Read(b)
	return b
}

func readArtifact(t *testing.T, fs *FileStore, transferID string) []byte {
	f, _, err := fs.OpenArtifact(transferID)
	require.NoError(t, err)
	defer f.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(f)
	require.NoError(t, err)
	return buf.Bytes()
}

func requireEmptyDir(t *testing.T, dir string) {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "expected %s to be empty", dir)
}

func TestPutChunkOutOfOrderAndAssemble(t *testing.T) {
	fs := setupStorage(t)
	chunks := []string{"Hello", " ", "World"}
	digest := digestOf([]byte("Hello World"))

	for n, index := range []int{1, 0, 2} {
		res, err := fs.PutChunk("hello", index, 3, strings.NewReader(chunks[index]))
		require.NoError(t, err)
		require.False(t, res.AlreadyExisted)
		require.EqualValues(t, len(chunks[index]), res.Size)

		complete, err := fs.IsComplete("hello", 3)
		require.NoError(t, err)
		require.Equal(t, n == 2, complete)
	}

	outcome, err := fs.Assemble("hello", 3, digest)
	require.NoError(t, err)
	require.Equal(t, AssemblyReady, outcome.Result)
	require.EqualValues(t, 11, outcome.Size)
	require.Equal(t, digest, outcome.Digest)

	require.Equal(t, "Hello World", string(readArtifact(t, fs, "hello")))
	require.NoDirExists(t, fs.getChunkDir("hello"))
	requireEmptyDir(t, fs.tempDir())

	status, err := fs.Resolve("hello")
	require.NoError(t, err)
	require.Equal(t, StateReady, status.State)
	require.EqualValues(t, 11, status.ArtifactSize)
	require.False(t, status.ModTime.IsZero())
}

func TestAssembleDigestIsCaseInsensitive(t *testing.T) {
	fs := setupStorage(t)
	data := []byte("case does not matter")

	_, err := fs.PutChunk("upper", 0, 1, bytes.NewReader(data))
	require.NoError(t, err)

	outcome, err := fs.Assemble("upper", 1, strings.ToUpper(digestOf(data)))
	require.NoError(t, err)
	require.Equal(t, AssemblyReady, outcome.Result)
}

func TestAssembleDigestMismatch(t *testing.T) {
	fs := setupStorage(t)
	data := []byte("Hello World")
	for i, c := range splitChunks(data, 3) {
		_, err := fs.PutChunk("bad", i, 3, bytes.NewReader(c))
		require.NoError(t, err)
	}

	outcome, err := fs.Assemble("bad", 3, digestOf([]byte("something else")))
	require.NoError(t, err)
	require.Equal(t, AssemblyDigestMismatch, outcome.Result)

	require.NoFileExists(t, fs.getArtifactPath("bad"))
	require.NoDirExists(t, fs.getChunkDir("bad"))
	requireEmptyDir(t, fs.tempDir())

	status, err := fs.Resolve("bad")
	require.NoError(t, err)
	require.Equal(t, StateNotFound, status.State)
}

func TestAssembleIncomplete(t *testing.T) {
	fs := setupStorage(t)
	data := []byte("Hello World")
	chunks := splitChunks(data, 3)
	for _, i := range []int{0, 2} {
		_, err := fs.PutChunk("partial", i, 3, bytes.NewReader(chunks[i]))
		require.NoError(t, err)
	}

	complete, err := fs.IsComplete("partial", 3)
	require.NoError(t, err)
	require.False(t, complete)

	outcome, err := fs.Assemble("partial", 3, digestOf(data))
	require.NoError(t, err)
	require.Equal(t, AssemblyIncomplete, outcome.Result)
	require.Equal(t, 2, outcome.Chunks)
	require.DirExists(t, fs.getChunkDir("partial"))

	status, err := fs.Resolve("partial")
	require.NoError(t, err)
	require.Equal(t, StateInProgress, status.State)
	require.Equal(t, 2, status.ReceivedChunks)
}

func TestAssembleUnknownTransfer(t *testing.T) {
	fs := setupStorage(t)

	outcome, err := fs.Assemble("nothing", 2, digestOf(nil))
	require.NoError(t, err)
	require.Equal(t, AssemblyIncomplete, outcome.Result)

	status, err := fs.Resolve("nothing")
	require.NoError(t, err)
	require.Equal(t, StateNotFound, status.State)

	_, _, err = fs.OpenArtifact("nothing")
	require.True(t, errors.Is(err, ErrTransferNotFound))
}

func TestPutChunkDuplicate(t *testing.T) {
	fs := setupStorage(t)

	res, err := fs.PutChunk("dup", 0, 2, strings.NewReader("first"))
	require.NoError(t, err)
	require.False(t, res.AlreadyExisted)

	res, err = fs.PutChunk("dup", 0, 2, strings.NewReader("second"))
	require.NoError(t, err)
	require.True(t, res.AlreadyExisted)

	stored, err := os.ReadFile(fs.getChunkPath("dup", 0))
	require.NoError(t, err)
	require.Equal(t, "first", string(stored))

	n, err := fs.CountChunks("dup")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	requireEmptyDir(t, fs.tempDir())
}

func TestPutChunkAfterArtifact(t *testing.T) {
	fs := setupStorage(t)
	data := []byte("done")

	_, err := fs.PutChunk("late", 0, 1, bytes.NewReader(data))
	require.NoError(t, err)
	outcome, err := fs.Assemble("late", 1, digestOf(data))
	require.NoError(t, err)
	require.Equal(t, AssemblyReady, outcome.Result)

	res, err := fs.PutChunk("late", 0, 1, strings.NewReader("again"))
	require.NoError(t, err)
	require.True(t, res.AlreadyExisted)
	require.NoDirExists(t, fs.getChunkDir("late"))
	require.Equal(t, data, readArtifact(t, fs, "late"))

	// assembling a published transfer is a no-op
	outcome, err = fs.Assemble("late", 1, digestOf(data))
	require.NoError(t, err)
	require.Equal(t, AssemblyReady, outcome.Result)
}

func TestAssembleNumericOrder(t *testing.T) {
	fs := setupStorage(t)
	const total = 12

	var expected bytes.Buffer
	for i := 0; i < total; i++ {
		expected.WriteString("<" + strconv.Itoa(i) + ">")
	}
	for i := total - 1; i >= 0; i-- {
		_, err := fs.PutChunk("numeric", i, total, strings.NewReader("<"+strconv.Itoa(i)+">"))
		require.NoError(t, err)
	}

	outcome, err := fs.Assemble("numeric", total, digestOf(expected.Bytes()))
	require.NoError(t, err)
	require.Equal(t, AssemblyReady, outcome.Result)
	require.Equal(t, expected.Bytes(), readArtifact(t, fs, "numeric"))
}

func TestListChunksIgnoresForeignNames(t *testing.T) {
	fs := setupStorage(t)

	_, err := fs.PutChunk("foreign", 0, 2, strings.NewReader("a"))
	require.NoError(t, err)
	for _, name := range []string{"01", "-1", "x", "1.tmp"} {
		require.NoError(t, os.WriteFile(filepath.Join(fs.getChunkDir("foreign"), name), []byte("junk"), 0600))
	}

	n, err := fs.CountChunks("foreign")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	complete, err := fs.IsComplete("foreign", 2)
	require.NoError(t, err)
	require.False(t, complete)
}

func TestConcurrentChunkDelivery(t *testing.T) {
	fs := setupStorage(t)
	data := randBytes(256 * KB)
	const total = 32
	chunks := splitChunks(data, total)

	var eg errgroup.Group
	for _, i := range rand.Perm(total) {
		i := i
		eg.Go(func() error {
			_, err := fs.PutChunk("parallel", i, total, bytes.NewReader(chunks[i]))
			return err
		})
	}
	require.NoError(t, eg.Wait())

	complete, err := fs.IsComplete("parallel", total)
	require.NoError(t, err)
	require.True(t, complete)

	outcome, err := fs.Assemble("parallel", total, digestOf(data))
	require.NoError(t, err)
	require.Equal(t, AssemblyReady, outcome.Result)
	require.Equal(t, data, readArtifact(t, fs, "parallel"))
}

func TestConcurrentDuplicateChunk(t *testing.T) {
	fs := setupStorage(t)
	const writers = 16

	var (
		mu      sync.Mutex
		winners []string
	)
	var eg errgroup.Group
	for w := 0; w < writers; w++ {
		payload := "writer-" + strconv.Itoa(w)
		eg.Go(func() error {
			res, err := fs.PutChunk("race", 0, 1, strings.NewReader(payload))
			if err != nil {
				return err
			}
			if !res.AlreadyExisted {
				mu.Lock()
				winners = append(winners, payload)
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	require.Len(t, winners, 1)
	stored, err := os.ReadFile(fs.getChunkPath("race", 0))
	require.NoError(t, err)
	require.Equal(t, winners[0], string(stored))
	requireEmptyDir(t, fs.tempDir())
}

func TestConcurrentRedundantAssembly(t *testing.T) {
	fs := setupStorage(t)
	data := randBytes(64 * KB)
	const total = 8
	for i, c := range splitChunks(data, total) {
		_, err := fs.PutChunk("redundant", i, total, bytes.NewReader(c))
		require.NoError(t, err)
	}

	results := make([]AssemblyResult, 8)
	var eg errgroup.Group
	for i := range results {
		i := i
		eg.Go(func() error {
			outcome, err := fs.Assemble("redundant", total, digestOf(data))
			results[i] = outcome.Result
			return err
		})
	}
	require.NoError(t, eg.Wait())

	ready := 0
	for _, r := range results {
		// a loser may find the chunks already consumed by the winner
		require.Contains(t, []AssemblyResult{AssemblyReady, AssemblyIncomplete}, r)
		if r == AssemblyReady {
			ready++
		}
	}
	require.GreaterOrEqual(t, ready, 1)
	require.Equal(t, data, readArtifact(t, fs, "redundant"))
	require.NoDirExists(t, fs.getChunkDir("redundant"))
	requireEmptyDir(t, fs.tempDir())

	status, err := fs.Resolve("redundant")
	require.NoError(t, err)
	require.Equal(t, StateReady, status.State)
}

func TestMaxChunkSize(t *testing.T) {
	fs := setupStorage(t, WithMaxChunkSize(4))

	_, err := fs.PutChunk("small", 0, 2, strings.NewReader("1234"))
	require.NoError(t, err)

	_, err = fs.PutChunk("small", 1, 2, strings.NewReader("12345"))
	require.True(t, errors.Is(err, ErrChunkTooLarge))
	require.NoFileExists(t, fs.getChunkPath("small", 1))
	requireEmptyDir(t, fs.tempDir())
}

func TestSHA3Digest(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), DigestSHA3_256)
	require.NoError(t, err)

	data := []byte("keccak")
	sum := sha3.Sum256(data)
	_, err = fs.PutChunk("sha3", 0, 1, bytes.NewReader(data))
	require.NoError(t, err)

	outcome, err := fs.Assemble("sha3", 1, hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	require.Equal(t, AssemblyReady, outcome.Result)
}

func TestUnknownDigestAlgorithm(t *testing.T) {
	_, err := NewFileStore(t.TempDir(), "md5")
	require.Error(t, err)
}

func TestValidateChunkInput(t *testing.T) {
	tests := []struct {
		name       string
		transferID string
		index      int
		total      int
		wantErr    bool
	}{
		{name: "ok", transferID: "abc", index: 0, total: 1},
		{name: "last index", transferID: "a.b_c-d", index: 9, total: 10},
		{name: "empty id", transferID: "", index: 0, total: 1, wantErr: true},
		{name: "dot dot", transferID: "..", index: 0, total: 1, wantErr: true},
		{name: "slash", transferID: "a/b", index: 0, total: 1, wantErr: true},
		{name: "leading dash", transferID: "-abc", index: 0, total: 1, wantErr: true},
		{name: "too long", transferID: strings.Repeat("a", MaxTransferIDLength+1), index: 0, total: 1, wantErr: true},
		{name: "negative index", transferID: "abc", index: -1, total: 1, wantErr: true},
		{name: "index equals total", transferID: "abc", index: 3, total: 3, wantErr: true},
		{name: "zero total", transferID: "abc", index: 0, total: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateChunkInput(tc.transferID, tc.index, tc.total)
			if tc.wantErr {
				require.True(t, errors.Is(err, ErrInvalidParameter))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateDigest(t *testing.T) {
	fs := setupStorage(t)

	require.NoError(t, fs.ValidateDigest(digestOf([]byte("x"))))
	require.NoError(t, fs.ValidateDigest(strings.ToUpper(digestOf([]byte("x")))))
	require.Error(t, fs.ValidateDigest(""))
	require.Error(t, fs.ValidateDigest("abcd"))
	require.Error(t, fs.ValidateDigest(strings.Repeat("z", 64)))
}

func TestSweep(t *testing.T) {
	fs := setupStorage(t)
	now := time.Now()
	old := now.Add(-25 * time.Hour)

	for _, id := range []string{"stale", "fresh"} {
		_, err := fs.PutChunk(id, 0, 3, strings.NewReader(id))
		require.NoError(t, err)
	}
	require.NoError(t, os.Chtimes(fs.getChunkDir("stale"), old, old))

	data := []byte("artifact")
	_, err := fs.PutChunk("published", 0, 1, bytes.NewReader(data))
	require.NoError(t, err)
	_, err = fs.Assemble("published", 1, digestOf(data))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(fs.getArtifactPath("published"), old, old))

	leftover := filepath.Join(fs.tempDir(), "chunk.leftover")
	require.NoError(t, os.WriteFile(leftover, []byte("x"), 0600))
	require.NoError(t, os.Chtimes(leftover, old, old))

	report := fs.Sweep(now, 24*time.Hour, 2)
	require.Equal(t, 3, report.Removed)
	require.Zero(t, report.Failed)
	require.Equal(t, 4, report.Scanned)

	require.NoDirExists(t, fs.getChunkDir("stale"))
	require.DirExists(t, fs.getChunkDir("fresh"))
	require.NoFileExists(t, fs.getArtifactPath("published"))
	require.NoFileExists(t, leftover)

	status, err := fs.Resolve("stale")
	require.NoError(t, err)
	require.Equal(t, StateNotFound, status.State)
}

func TestFirstDeclaredTotalIsKept(t *testing.T) {
	fs := setupStorage(t)
	digest := digestOf([]byte("Hello World"))

	for i, c := range []string{"Hello", " World"} {
		_, err := fs.PutChunk("t", i, 3, strings.NewReader(c))
		require.NoError(t, err)
	}

	complete, err := fs.IsComplete("t", 2)
	require.NoError(t, err)
	require.False(t, complete)

	outcome, err := fs.Assemble("t", 2, digest)
	require.NoError(t, err)
	require.Equal(t, AssemblyIncomplete, outcome.Result)
	require.NoFileExists(t, fs.getArtifactPath("t"))

	// a new chunk cannot redeclare the total
	_, err = fs.PutChunk("t", 2, 4, strings.NewReader("!"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidParameter))

	n, err := fs.CountChunks("t")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = fs.PutChunk("t", 2, 3, strings.NewReader("!"))
	require.NoError(t, err)
	complete, err = fs.IsComplete("t", 3)
	require.NoError(t, err)
	require.True(t, complete)

	outcome, err = fs.Assemble("t", 3, digestOf([]byte("Hello World!")))
	require.NoError(t, err)
	require.Equal(t, AssemblyReady, outcome.Result)
	require.Equal(t, "Hello World!", string(readArtifact(t, fs, "t")))
}

func TestConcurrentFirstChunksAgreeOnTotal(t *testing.T) {
	fs := setupStorage(t)

	var accepted, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		total := 8 + i%2
		index := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fs.PutChunk("race", index, total, strings.NewReader("x"))
			if err != nil {
				require.True(t, errors.Is(err, ErrInvalidParameter))
				rejected.Add(1)
				return
			}
			accepted.Add(1)
		}()
	}
	wg.Wait()

	declared, ok, err := fs.readDeclaredTotal("race")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 4, accepted.Load())
	require.EqualValues(t, 4, rejected.Load())

	n, err := fs.CountChunks("race")
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Contains(t, []int{8, 9}, declared)
}

func TestSweepContinuesAfterFailedRemoval(t *testing.T) {
	fs := setupStorage(t)
	now := time.Now()
	old := now.Add(-25 * time.Hour)

	ids := []string{"expired-a", "expired-b", "expired-c"}
	for _, id := range ids {
		_, err := fs.PutChunk(id, 0, 2, strings.NewReader(id))
		require.NoError(t, err)
		require.NoError(t, os.Chtimes(fs.getChunkDir(id), old, old))
	}

	stuck := fs.getChunkDir("expired-b")
	fs.removeAll = func(path string) error {
		if path == stuck {
			return errors.New("device_busy", "device busy")
		}
		return os.RemoveAll(path)
	}

	report := fs.Sweep(now, 24*time.Hour, 1)
	require.Equal(t, 3, report.Scanned)
	require.Equal(t, 2, report.Removed)
	require.Equal(t, 1, report.Failed)

	require.NoDirExists(t, fs.getChunkDir("expired-a"))
	require.DirExists(t, stuck)
	require.NoDirExists(t, fs.getChunkDir("expired-c"))
}

func TestSweepContinuesAfterUnreadableRoot(t *testing.T) {
	fs := setupStorage(t)
	now := time.Now()
	old := now.Add(-25 * time.Hour)

	_, err := fs.PutChunk("expired", 0, 2, strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(fs.getChunkDir("expired"), old, old))

	data := []byte("artifact")
	_, err = fs.PutChunk("published", 0, 1, bytes.NewReader(data))
	require.NoError(t, err)
	_, err = fs.Assemble("published", 1, digestOf(data))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(fs.getArtifactPath("published"), old, old))

	// a regular file where the staging directory should be
	require.NoError(t, os.RemoveAll(fs.tempDir()))
	require.NoError(t, os.WriteFile(fs.tempDir(), []byte("x"), 0600))

	report := fs.Sweep(now, 24*time.Hour, 2)
	require.Equal(t, 2, report.Removed)
	require.Equal(t, 1, report.Failed)

	require.NoDirExists(t, fs.getChunkDir("expired"))
	require.NoFileExists(t, fs.getArtifactPath("published"))
}

func TestDiskCapacity(t *testing.T) {
	fs := setupStorage(t)
	require.NoError(t, fs.CalculateCurrentDiskCapacity())
	require.NotZero(t, fs.GetCurrentDiskCapacity())
}

package filestore

import (
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/0chain/errors"
	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/sha3"
)

const (
	DigestSHA256   = "sha256"
	DigestSHA3_256 = "sha3-256"
)

func newHasher(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case DigestSHA256, "":
		return sha256.New(), nil
	case DigestSHA3_256:
		return sha3.New256(), nil
	}
	return nil, fmt.Errorf("unsupported digest algorithm %q", algorithm)
}

func (fs *FileStore) newHasher() hash.Hash {
	h, err := newHasher(fs.algorithm)
	if err != nil {
		// algorithm was checked in NewFileStore
		panic(err)
	}
	return h
}

// ValidateDigest checks that hexDigest is a well-formed hex digest for the
// store's algorithm. Case is not significant.
func (fs *FileStore) ValidateDigest(hexDigest string) error {
	size := fs.newHasher().Size()
	if hexDigest == "" {
		return errors.Throw(ErrInvalidParameter, "digest is missing")
	}
	if len(hexDigest) != 2*size {
		return errors.Throw(ErrInvalidParameter,
			fmt.Sprintf("digest must be %d hex characters, got %d", 2*size, len(hexDigest)))
	}
	if _, err := hex.DecodeString(hexDigest); err != nil {
		return errors.Throw(ErrInvalidParameter, "digest is not valid hex")
	}
	return nil
}

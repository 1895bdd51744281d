package filestore

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/0chain/errors"
)

// TotalFileName holds the chunk count declared by the first chunk of a
// transfer. It is not a decimal index, so chunk listings skip it.
const TotalFileName = "total"

func (fs *FileStore) getTotalPath(transferID string) string {
	return filepath.Join(fs.getChunkDir(transferID), TotalFileName)
}

// declareTotal records total for the transfer unless an earlier chunk already
// did, in which case total has to match it. The record is published with
// link(2), so concurrent first chunks settle on a single value.
func (fs *FileStore) declareTotal(transferID string, total int) error {
	declared, ok, err := fs.readDeclaredTotal(transferID)
	if err != nil {
		return err
	}
	if ok {
		return checkTotal(declared, total)
	}

	f, err := fs.createTempFile(TotalFileName)
	if err != nil {
		return err
	}
	defer fs.removeTempFile(f)

	if _, err := f.WriteString(strconv.Itoa(total)); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	err = os.Link(f.Name(), fs.getTotalPath(transferID))
	if err == nil || !os.IsExist(err) {
		return err
	}

	declared, ok, err = fs.readDeclaredTotal(transferID)
	if err != nil {
		return err
	}
	if !ok {
		// chunk directory consumed between link and read
		return os.ErrNotExist
	}
	return checkTotal(declared, total)
}

// readDeclaredTotal returns the total recorded for the transfer, if any.
func (fs *FileStore) readDeclaredTotal(transferID string) (int, bool, error) {
	b, err := os.ReadFile(fs.getTotalPath(transferID))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, err
	}

	total, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || total < 1 {
		return 0, false, errors.Throw(ErrStorage, "malformed total record for "+transferID)
	}
	return total, true, nil
}

func checkTotal(declared, total int) error {
	if declared != total {
		return errors.Throw(ErrInvalidParameter,
			"total "+strconv.Itoa(total)+" does not match the declared total "+strconv.Itoa(declared))
	}
	return nil
}

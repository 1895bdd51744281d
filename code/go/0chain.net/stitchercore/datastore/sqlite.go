package datastore

import (
	"github.com/0chain/stitcher/code/go/0chain.net/core/common"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const inMemoryDSN = "file::memory:?cache=shared"

// sqliteStore keeps the journal in a local sqlite file, or in memory when
// no path is configured.
type sqliteStore struct {
	gormStore
	path string
}

func (store *sqliteStore) Open() error {
	dsn := store.path
	if dsn == "" {
		dsn = inMemoryDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		return common.NewErrorf("db_open_error", "Error opening the DB connection: %v", err)
	}

	sqldb, err := db.DB()
	if err != nil {
		return common.NewErrorf("db_open_error", "Error opening the DB connection: %v", err)
	}
	// sqlite serializes writers anyway
	sqldb.SetMaxOpenConns(1)

	store.db = db
	return nil
}

// UseSqlite set the DB instance to the sqlite database at dsn.
func UseSqlite(dsn string) (*gorm.DB, error) {
	s := &sqliteStore{path: dsn}
	if err := s.Open(); err != nil {
		return nil, err
	}

	instance = s
	return s.db, nil
}

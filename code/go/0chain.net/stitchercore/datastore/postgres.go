package datastore

import (
	"fmt"
	"time"

	"github.com/0chain/stitcher/code/go/0chain.net/core/common"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// postgresStore store implementation for postgres
type postgresStore struct {
	gormStore
	cfg config.DBConfig
}

func (store *postgresStore) Open() error {
	db, err := gorm.Open(postgres.Open(fmt.Sprintf(
		"host=%v port=%v user=%v dbname=%v password=%v sslmode=disable",
		store.cfg.Host, store.cfg.Port,
		store.cfg.User, store.cfg.Name,
		store.cfg.Password)), &gorm.Config{
		SkipDefaultTransaction: true, // https://gorm.io/docs/performance.html#Disable-Default-Transaction
		PrepareStmt:            true, //https://gorm.io/docs/performance.html#Caches-Prepared-Statement
	})
	if err != nil {
		return common.NewErrorf("db_open_error", "Error opening the DB connection: %v", err)
	}

	sqldb, err := db.DB()
	if err != nil {
		return common.NewErrorf("db_open_error", "Error opening the DB connection: %v", err)
	}

	if err := sqldb.Ping(); err != nil {
		return common.NewErrorf("db_open_error", "Error opening the DB connection: %v", err)
	}

	sqldb.SetMaxIdleConns(10)
	sqldb.SetMaxOpenConns(20)
	sqldb.SetConnMaxLifetime(30 * time.Second)
	store.db = db
	return nil
}

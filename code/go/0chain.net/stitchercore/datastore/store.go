package datastore

import (
	"context"
	"fmt"

	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/config"
	"gorm.io/gorm"
)

type contextKey int

const (
	ContextKeyTransaction contextKey = iota
)

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

type Store interface {
	// GetDB get raw gorm db
	GetDB() *gorm.DB
	// CreateTransaction create transaction, and save it in context
	CreateTransaction(ctx context.Context) context.Context
	// GetTransaction get transaction from context
	GetTransaction(ctx context.Context) *gorm.DB
	WithNewTransaction(ctx context.Context, f func(ctx context.Context) error) error

	// AutoMigrate creates or updates the tables of the given models
	AutoMigrate(models ...interface{}) error

	Open() error
	Close()
}

var instance Store

// GetStore returns the current store, nil until one is opened.
func GetStore() Store {
	return instance
}

// Open opens the store selected by the db.driver setting and makes it the
// current one.
func Open(cfg config.DBConfig) error {
	var s Store
	switch cfg.Driver {
	case DriverPostgres:
		s = &postgresStore{cfg: cfg}
	case DriverSqlite, "":
		s = &sqliteStore{path: cfg.SqlitePath}
	default:
		return fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}

	if err := s.Open(); err != nil {
		return err
	}
	instance = s
	return nil
}

// gormStore carries the transaction plumbing shared by every backend.
type gormStore struct {
	db *gorm.DB
}

func (store *gormStore) GetDB() *gorm.DB {
	return store.db
}

func (store *gormStore) Close() {
	if store.db != nil {
		if sqldb, _ := store.db.DB(); sqldb != nil {
			sqldb.Close()
		}
	}
}

func (store *gormStore) CreateTransaction(ctx context.Context) context.Context {
	db := store.db.WithContext(ctx).Begin()
	return context.WithValue(ctx, ContextKeyTransaction, db)
}

func (store *gormStore) GetTransaction(ctx context.Context) *gorm.DB {
	conn := ctx.Value(ContextKeyTransaction)
	if conn != nil {
		return conn.(*gorm.DB)
	}
	logging.Logger.Error("No connection in the context.")
	return nil
}

func (store *gormStore) WithNewTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	ctx = store.CreateTransaction(ctx)
	tx := store.GetTransaction(ctx)
	if err := tx.Error; err != nil {
		return err
	}

	if err := f(ctx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func (store *gormStore) AutoMigrate(models ...interface{}) error {
	return store.db.AutoMigrate(models...)
}

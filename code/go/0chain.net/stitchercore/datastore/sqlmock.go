package datastore

import (
	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// UseSqlmock use sqlmock to mock sql driver
func UseSqlmock() *Sqlmock {
	s := &Sqlmock{}
	if err := s.Open(); err != nil {
		panic("UseSqlmock: " + err.Error())
	}

	instance = s
	return s
}

// Sqlmock mock sql driver in data-dog/sqlmock
type Sqlmock struct {
	gormStore
	Sqlmock sqlmock.Sqlmock
}

func (store *Sqlmock) Open() error {
	db, mock, err := sqlmock.New()
	if err != nil {
		return err
	}

	var dialector = postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		DriverName:           "postgres",
		Conn:                 db,
		PreferSimpleProtocol: true,
	})
	gdb, err := gorm.Open(dialector, &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		return err
	}

	store.db = gdb
	store.Sqlmock = mock
	return nil
}

func (store *Sqlmock) AutoMigrate(models ...interface{}) error {
	return nil
}

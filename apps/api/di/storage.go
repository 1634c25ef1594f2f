package di

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/ledger"
	"github.com/academictoken/registry/storage/database"
	"github.com/academictoken/registry/storage/inmem"
	"github.com/academictoken/registry/storage/records"
)

// Storage is the record store and the block log of one storage engine.
type Storage struct {
	Store      records.Store
	LedgerRepo ledger.Repository
	DB         *sqlx.DB // nil on the memory engine
}

// OpenStorage sets up the configured engine. PostgreSQL databases are created and migrated when needed.
func OpenStorage(conf *core.Config) (*Storage, error) {
	if conf.Storage != core.StoragePostgres {
		return &Storage{Store: inmem.NewStore(), LedgerRepo: inmem.NewLedgerRepository()}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Storage{
		Store:      database.NewStore(db),
		LedgerRepo: database.NewLedgerRepository(db),
		DB:         db,
	}, nil
}

func (s *Storage) Close() error {
	if s.DB == nil {
		return nil
	}
	return errors.Wrap(s.DB.Close(), "closing database")
}

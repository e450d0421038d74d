// Package localstore is the terminal's durable store: a sqlite database
// holding the transaction queue, till sessions, pending closes, id
// mappings and the catalog cache. Everything the terminal needs to keep
// trading through an outage lives here.
package localstore

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pos/backend/internal/domain/shared"
)

// schemaVersion is bumped when a migration adds tables or columns.
// Migrations are additive only: an older binary must be able to read a
// newer database, so removals and renames are off the table.
const schemaVersion = 1

// Store wraps the local sqlite database
type Store struct {
	DB *gorm.DB

	// Degraded is set when the durable file could not be opened and the
	// store fell back to memory. Captured data will not survive restart;
	// the terminal surfaces this prominently.
	Degraded bool
}

// Open opens (or creates) the durable store at the given path. When the
// file cannot be opened the store falls back to an in-memory database
// rather than refusing to trade.
func Open(dataPath string, logger *zap.Logger, gormLog gormlogger.Interface) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := open(dataPath, gormLog)
	if err == nil {
		return store, nil
	}

	logger.Error("durable store unavailable, falling back to memory",
		zap.String("path", dataPath),
		zap.Error(err),
	)

	store, memErr := open(":memory:", gormLog)
	if memErr != nil {
		return nil, fmt.Errorf("open durable store: %w", err)
	}
	store.Degraded = true
	return store, nil
}

// OpenInMemory opens a throwaway store, used by tests and degraded mode
func OpenInMemory(gormLog gormlogger.Interface) (*Store, error) {
	return open(":memory:", gormLog)
}

func open(path string, gormLog gormlogger.Interface) (*Store, error) {
	if gormLog == nil {
		gormLog = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	// Serialize writers instead of surfacing SQLITE_BUSY.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &Store{DB: db}, nil
}

// migrate brings the schema up to the current version. AutoMigrate only
// adds tables and columns, which keeps the additive guarantee.
func migrate(db *gorm.DB) error {
	if err := checkSchemaVersion(db); err != nil {
		return err
	}

	if err := db.AutoMigrate(
		&TransactionModel{},
		&TillModel{},
		&PendingCloseModel{},
		&OpenMappingModel{},
		&ProductModel{},
		&CategoryModel{},
		&SchemaInfoModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate local store: %w", err)
	}

	return db.Save(&SchemaInfoModel{ID: 1, Version: schemaVersion}).Error
}

// checkSchemaVersion refuses to touch a database written by a newer
// binary. Downgrading would require destructive changes.
func checkSchemaVersion(db *gorm.DB) error {
	if !db.Migrator().HasTable(&SchemaInfoModel{}) {
		return nil
	}
	var info SchemaInfoModel
	if err := db.First(&info, "id = ?", 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if info.Version > schemaVersion {
		return shared.NewDomainError("SCHEMA_TOO_NEW",
			fmt.Sprintf("Local store schema version %d is newer than supported version %d", info.Version, schemaVersion))
	}
	return nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Transaction executes a function within a database transaction
func (s *Store) Transaction(fn func(tx *gorm.DB) error) error {
	return s.DB.Transaction(fn)
}

// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bo3bdo/kms-server/internal/wire"
)

// Store is the gorm-backed activation store. The zero value is not
// usable; construct one with Open. A Store satisfies kms.RecordStore.
type Store struct {
	db *gorm.DB

	// locks serializes updates per CMID: updates from a single CMID
	// are serialized, while concurrent updates to different CMIDs may
	// proceed in parallel, independent of whatever isolation the SQL
	// engine itself provides.
	locks sync.Map // string(cmid) -> *sync.Mutex
}

// Open connects to the activation store identified by driver ("sqlite"
// or "postgres") and dsn, and migrates the schema. For sqlite, dsn may
// be a file path or ":memory:".
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q (must be sqlite or postgres)", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if err := db.AutoMigrate(&ClientRecord{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) lockFor(cmid string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(cmid, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// UpsertAndEPID implements kms.RecordStore:
//   - first request for a cmid records first_request_time,
//     assigns candidateEPID, sets n_requests = 1;
//   - subsequent requests update last_request_time, push requestTime
//     into the ring, and increment n_requests, returning the
//     previously assigned EPID unchanged.
//
// Records are looked up by cmid alone (the table's primary key): a
// request from a cmid already on record under another application
// group updates that record and gets its EPID back, and app_group and
// sku keep the values from the first request.
//
// The transaction is atomic: either the full record is persisted or no
// change is made. When the lookup, insert or update fails, the
// transaction is rolled back and a failed rollback is combined with
// the original cause via multierr; a commit error is returned as is.
func (s *Store) UpsertAndEPID(cmid, appGroup, sku wire.UUID, requestTime wire.FileTime, candidateEPID string) (string, error) {
	key := cmid.String()
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	tx := s.db.Begin()
	if tx.Error != nil {
		return "", tx.Error
	}

	var rec ClientRecord
	err := tx.Where("cmid = ?", key).First(&rec).Error
	now := time.Now().UTC()

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec = ClientRecord{
			CMID:             key,
			AppGroup:         appGroup.String(),
			SKU:              sku.String(),
			EPID:             candidateEPID,
			FirstRequestTime: now,
			LastRequestTime:  now,
			NRequests:        1,
		}
		rec.pushRing(int64(requestTime))
		if err := tx.Create(&rec).Error; err != nil {
			return "", rollbackAndCombine(tx, err)
		}
	case err != nil:
		return "", rollbackAndCombine(tx, err)
	default:
		rec.LastRequestTime = now
		rec.NRequests++
		rec.pushRing(int64(requestTime))
		if err := tx.Save(&rec).Error; err != nil {
			return "", rollbackAndCombine(tx, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return "", err
	}
	return rec.EPID, nil
}

func rollbackAndCombine(tx *gorm.DB, cause error) error {
	if rbErr := tx.Rollback().Error; rbErr != nil {
		return multierr.Combine(cause, rbErr)
	}
	return cause
}

// Package mirror is the durable key-value copy of client state. It survives
// process restarts and is read back once on start-up.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradezone/marketplace/pkg/db"
)

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	SetMany(ctx context.Context, pairs map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

type Entry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:191"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "mirror_entries"
}

type GormStore struct {
	DB *gorm.DB
}

func New(gdb *gorm.DB) *GormStore { return &GormStore{DB: gdb} }

// Open opens (creating if needed) the mirror file at path.
func Open(path string) (*GormStore, error) {
	gdb, err := db.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	s := New(gdb)
	if err := s.Migrate(); err != nil {
		_ = db.Close(gdb)
		return nil, fmt.Errorf("migrate mirror: %w", err)
	}
	return s, nil
}

func (s *GormStore) Migrate() error {
	return s.DB.AutoMigrate(&Entry{})
}

func (s *GormStore) Close() error {
	return db.Close(s.DB)
}

func (s *GormStore) Get(ctx context.Context, key string) (string, bool, error) {
	var e Entry
	err := s.DB.WithContext(ctx).Where("entry_key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (s *GormStore) Set(ctx context.Context, key, value string) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Entry{Key: key, Value: value}).Error
}

// SetMany writes all pairs in one transaction.
func (s *GormStore) SetMany(ctx context.Context, pairs map[string]string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for k, v := range pairs {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "entry_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&Entry{Key: k, Value: v}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Where("entry_key IN ?", keys).Delete(&Entry{}).Error
}

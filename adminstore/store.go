// Package adminstore is a gorm-backed AdminProvider over SQLite. It owns the
// admin identity table; admingate itself only reads records and writes the
// password hash and last-login fields through the provider interface.
package adminstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/harborcms/admingate"
)

// ErrNotFound is returned when no admin matches the lookup. It wraps
// admingate.ErrIdentityNotFound per the AdminProvider contract.
var ErrNotFound = fmt.Errorf("adminstore: admin not found: %w", admingate.ErrIdentityNotFound)

// ErrHandleTaken is returned by Create when the handle already exists.
var ErrHandleTaken = errors.New("adminstore: handle already taken")

// Admin is the persistence model. Rows are deactivated, never deleted.
type Admin struct {
	ID           string `gorm:"primaryKey;size:36"`
	Handle       string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"size:256;not null"`
	DisplayName  string `gorm:"size:128"`
	Role         string `gorm:"size:32;not null"`
	Active       bool   `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
	LastLoginIP  string `gorm:"size:64"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store implements admingate.AdminProvider on top of gorm.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at path and migrates the
// admin table.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return New(db)
}

// New wraps an existing gorm handle and migrates the admin table.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Admin{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Create inserts a new active admin and returns its generated ID. The
// password hash must already be in PHC form; adminstore never sees secrets.
func (s *Store) Create(ctx context.Context, handle, displayName string, role admingate.Role, passwordHash string) (string, error) {
	if !role.Valid() {
		return "", errors.New("adminstore: invalid role " + string(role))
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&Admin{}).Where("handle = ?", handle).Count(&count).Error; err != nil {
		return "", err
	}
	if count > 0 {
		return "", ErrHandleTaken
	}

	row := Admin{
		ID:           uuid.New().String(),
		Handle:       handle,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		Role:         string(role),
		Active:       true,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return row.ID, nil
}

// Deactivate marks the admin inactive. Existing sessions die on their next
// validation through the engine.
func (s *Store) Deactivate(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&Admin{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByHandle implements admingate.AdminProvider.
func (s *Store) GetByHandle(ctx context.Context, handle string) (admingate.AdminRecord, error) {
	var row Admin
	err := s.db.WithContext(ctx).Where("handle = ?", handle).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return admingate.AdminRecord{}, ErrNotFound
		}
		return admingate.AdminRecord{}, err
	}
	return recordFromRow(row), nil
}

// GetByID implements admingate.AdminProvider.
func (s *Store) GetByID(ctx context.Context, id string) (admingate.AdminRecord, error) {
	var row Admin
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return admingate.AdminRecord{}, ErrNotFound
		}
		return admingate.AdminRecord{}, err
	}
	return recordFromRow(row), nil
}

// UpdatePasswordHash implements admingate.AdminProvider.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res := s.db.WithContext(ctx).Model(&Admin{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLastLogin implements admingate.AdminProvider.
func (s *Store) UpdateLastLogin(ctx context.Context, id string, at time.Time, ip string) error {
	res := s.db.WithContext(ctx).Model(&Admin{}).Where("id = ?", id).Updates(map[string]any{
		"last_login_at": at,
		"last_login_ip": ip,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func recordFromRow(row Admin) admingate.AdminRecord {
	rec := admingate.AdminRecord{
		ID:           row.ID,
		Handle:       row.Handle,
		PasswordHash: row.PasswordHash,
		DisplayName:  row.DisplayName,
		Role:         admingate.Role(row.Role),
		Active:       row.Active,
		LastLoginIP:  row.LastLoginIP,
	}
	if row.LastLoginAt != nil {
		rec.LastLoginAt = *row.LastLoginAt
	}
	return rec
}

var _ admingate.AdminProvider = (*Store)(nil)

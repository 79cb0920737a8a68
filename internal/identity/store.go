package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/loomcms/accounts/pkg/models"
)

const bcryptCost = 12

// Store is the system of record for accounts and credentials.
type Store struct {
	logger   *zap.Logger
	db       *gorm.DB
	validate *validator.Validate
}

// NewStore creates a new identity store.
func NewStore(logger *zap.Logger, db *gorm.DB) *Store {
	return &Store{
		logger:   logger,
		db:       db,
		validate: validator.New(),
	}
}

// AutoMigrate creates or updates the store schema.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.Account{},
		&models.AccountRole{},
		&models.PasswordResetToken{},
	)
}

// FindByID returns the account with the given id, or nil if none exists.
func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var acct models.Account
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &acct, nil
}

// FindByEmail returns the account with the given email, or nil if none exists.
func (s *Store) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var acct models.Account
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &acct, nil
}

// EmailTaken reports whether an account with the given email already exists.
func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

// ListByProject returns all accounts belonging to the given project.
func (s *Store) ListByProject(ctx context.Context, projectID string) ([]models.Account, error) {
	var accts []models.Account
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at").Find(&accts).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accts, nil
}

// Create validates the account and password, hashes the password and persists
// the record. Policy violations are returned as a *ValidationError.
func (s *Store) Create(ctx context.Context, acct *models.Account, password string) error {
	if entries := validatePassword(password); len(entries) > 0 {
		return &ValidationError{Entries: entries}
	}
	if err := s.validate.Struct(acct); err != nil {
		return s.structValidationError(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	acct.PasswordHash = string(hashed)

	now := time.Now()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(acct).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// Save persists changes to an existing account.
func (s *Store) Save(ctx context.Context, acct *models.Account) error {
	if err := s.validate.Struct(acct); err != nil {
		return s.structValidationError(err)
	}
	acct.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(acct).Error; err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// SetPassword validates and sets a new password for the account.
func (s *Store) SetPassword(ctx context.Context, accountID uuid.UUID, password string) error {
	if entries := validatePassword(password); len(entries) > 0 {
		return &ValidationError{Entries: entries}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return storePasswordHash(s.db.WithContext(ctx), accountID, string(hashed))
}

// storePasswordHash writes an already-hashed credential through the given
// handle, which may be a transaction.
func storePasswordHash(db *gorm.DB, accountID uuid.UUID, hash string) error {
	res := db.Model(&models.Account{}).Where("id = ?", accountID).Updates(map[string]interface{}{
		"password_hash": hash,
		"updated_at":    time.Now(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to set password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("account %s not found", accountID)
	}
	return nil
}

// VerifyPassword reports whether the password matches the account's hash.
func (s *Store) VerifyPassword(acct *models.Account, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) == nil
}

// Delete removes the account and its role assignments.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", id).Delete(&models.AccountRole{}).Error; err != nil {
			return fmt.Errorf("failed to delete roles: %w", err)
		}
		if err := tx.Where("account_id = ?", id).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return fmt.Errorf("failed to delete reset tokens: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.Account{}).Error; err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		return nil
	})
}

func (s *Store) structValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate account: %w", err)
	}
	entries := make([]ErrorEntry, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		entries = append(entries, ErrorEntry{
			Code:        "Invalid" + fe.Field(),
			Description: fmt.Sprintf("Field %s failed validation on rule %q.", fe.Field(), fe.Tag()),
		})
	}
	return &ValidationError{Entries: entries}
}

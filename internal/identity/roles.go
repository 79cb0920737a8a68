package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/loomcms/accounts/pkg/models"
)

// AddToRole grants the role to the account. Granting an already-held role is
// a no-op.
func (s *Store) AddToRole(ctx context.Context, accountID uuid.UUID, role string) error {
	if role == "" {
		return &ValidationError{Entries: []ErrorEntry{{
			Code:        "InvalidRoleName",
			Description: "Role name must not be empty.",
		}}}
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check account: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("account %s not found", accountID)
	}

	assignment := models.AccountRole{
		AccountID: accountID,
		Role:      role,
		CreatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&assignment).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// RemoveFromRole revokes the role from the account.
func (s *Store) RemoveFromRole(ctx context.Context, accountID uuid.UUID, role string) error {
	if err := s.db.WithContext(ctx).Where("account_id = ? AND role = ?", accountID, role).Delete(&models.AccountRole{}).Error; err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	return nil
}

// RolesFor returns the roles held by the account.
func (s *Store) RolesFor(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	var assignments []models.AccountRole
	if err := s.db.WithContext(ctx).Where("account_id = ?", accountID).Order("role").Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	roles := make([]string, len(assignments))
	for i, a := range assignments {
		roles[i] = a.Role
	}
	return roles, nil
}

// IsInRole reports whether the account holds the role.
func (s *Store) IsInRole(ctx context.Context, accountID uuid.UUID, role string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.AccountRole{}).Where("account_id = ? AND role = ?", accountID, role).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return count > 0, nil
}

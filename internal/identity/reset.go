package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/loomcms/accounts/pkg/models"
)

// DefaultResetTokenTTL bounds the lifetime of a reset token when no TTL is
// configured.
const DefaultResetTokenTTL = 30 * time.Minute

// IssueResetToken creates a one-time password-reset token for the account and
// returns the plaintext token. Only its hash is persisted.
func (s *Store) IssueResetToken(ctx context.Context, accountID uuid.UUID, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}

	acct, err := s.FindByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", fmt.Errorf("account %s not found", accountID)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	record := models.PasswordResetToken{
		ID:        uuid.New(),
		AccountID: accountID,
		TokenHash: hashResetToken(token),
		ExpiresAt: time.Now().Add(ttl),
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	return token, nil
}

// ConsumeResetToken burns the token and sets the new password on the owning
// account. Unknown, expired or already-used tokens yield ErrTokenInvalid;
// policy violations on the new password yield a *ValidationError. The lookup,
// the password write and the burn commit as one transaction so the token can
// never outlive the credential change.
func (s *Store) ConsumeResetToken(ctx context.Context, token, newPassword string) error {
	if entries := validatePassword(newPassword); len(entries) > 0 {
		return &ValidationError{Entries: entries}
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.PasswordResetToken
		err := tx.Where("token_hash = ?", hashResetToken(token)).First(&record).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTokenInvalid
			}
			return fmt.Errorf("failed to look up reset token: %w", err)
		}

		if record.UsedAt != nil || time.Now().After(record.ExpiresAt) {
			return ErrTokenInvalid
		}

		if err := storePasswordHash(tx, record.AccountID, string(hashed)); err != nil {
			return err
		}

		now := time.Now()
		record.UsedAt = &now
		if err := tx.Save(&record).Error; err != nil {
			return fmt.Errorf("failed to burn reset token: %w", err)
		}
		return nil
	})
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

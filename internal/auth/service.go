package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/loomcms/accounts/internal/identity"
	"github.com/loomcms/accounts/pkg/models"
)

var (
	// ErrInvalidCredentials is returned for unknown emails and wrong
	// passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned while a lockout is in effect.
	ErrAccountLocked = errors.New("account temporarily locked")
)

// Service authenticates accounts and issues access tokens.
type Service struct {
	logger  *zap.Logger
	store   *identity.Store
	issuer  *TokenIssuer
	lockout *Lockout
}

// NewService creates an auth service. lockout may be nil, in which case
// failed-attempt tracking is disabled.
func NewService(logger *zap.Logger, store *identity.Store, issuer *TokenIssuer, lockout *Lockout) *Service {
	return &Service{
		logger:  logger,
		store:   store,
		issuer:  issuer,
		lockout: lockout,
	}
}

// Login verifies the credentials and returns a signed access token with the
// authenticated account.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.Account, error) {
	if s.lockout != nil {
		locked, err := s.lockout.IsLocked(ctx, email)
		if err != nil {
			s.logger.Warn("failed to check lockout status", zap.Error(err))
		} else if locked {
			return "", nil, ErrAccountLocked
		}
	}

	acct, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if acct == nil || !s.store.VerifyPassword(acct, password) {
		if s.lockout != nil {
			if err := s.lockout.RecordFailure(ctx, email); err != nil {
				s.logger.Warn("failed to record login failure", zap.Error(err))
			}
		}
		return "", nil, ErrInvalidCredentials
	}

	if s.lockout != nil {
		if err := s.lockout.Clear(ctx, email); err != nil {
			s.logger.Warn("failed to clear login failures", zap.Error(err))
		}
	}

	token, err := s.issuer.Issue(acct.ID, acct.ProjectID)
	if err != nil {
		return "", nil, err
	}
	return token, acct, nil
}

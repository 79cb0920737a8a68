package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomcms/accounts/internal/auth"
)

func TestIssueAndValidate(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	accountID := uuid.New()

	token, err := issuer.Issue(accountID, "T1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	parsed, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, accountID, parsed)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	other := auth.NewTokenIssuer("other-secret", time.Hour)

	token, err := issuer.Issue(uuid.New(), "T1")
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	_, err := issuer.Validate("not-a-token")
	assert.Error(t, err)
}

func TestCallerIDRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := auth.CallerID(ctx)
	assert.False(t, ok)

	id := uuid.New()
	ctx = auth.WithCallerID(ctx, id)

	got, ok := auth.CallerID(ctx)
	require.True(t, ok)
	assert.Equal(t, id, got)

	src := auth.ContextSource{}
	got, ok = src.CallerID(ctx)
	require.True(t, ok)
	assert.Equal(t, id, got)
}

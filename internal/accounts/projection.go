package accounts

import (
	"context"

	"github.com/loomcms/accounts/pkg/models"
)

// viewOf projects a stored account record to its wire shape.
func viewOf(acct *models.Account, roles []string) *models.AccountView {
	if roles == nil {
		roles = []string{}
	}
	return &models.AccountView{
		ID:          acct.ID,
		Email:       acct.Email,
		FirstName:   acct.FirstName,
		LastName:    acct.LastName,
		DisplayName: acct.DisplayName,
		ProjectID:   acct.ProjectID,
		Roles:       roles,
		CreatedAt:   acct.CreatedAt,
		UpdatedAt:   acct.UpdatedAt,
	}
}

// project loads the account's roles and builds its view.
func (m *Manager) project(ctx context.Context, acct *models.Account) (*models.AccountView, error) {
	roles, err := m.store.RolesFor(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	return viewOf(acct, roles), nil
}

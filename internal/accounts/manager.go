package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loomcms/accounts/internal/identity"
	"github.com/loomcms/accounts/pkg/models"
)

// ErrCallerNotFound is returned by read operations when the caller's identity
// cannot be resolved to a stored account.
var ErrCallerNotFound = errors.New("logged in user not found")

// CallerSource yields the authenticated caller's account id for the current
// request, if any.
type CallerSource interface {
	CallerID(ctx context.Context) (uuid.UUID, bool)
}

// Manager orchestrates account lifecycle operations against the identity
// store. One Manager serves one request; the only state it holds is the last
// caller record resolved during that request.
type Manager struct {
	logger  *zap.Logger
	store   *identity.Store
	callers CallerSource

	caller *models.Account
}

// NewManager creates a request-scoped account manager.
func NewManager(logger *zap.Logger, store *identity.Store, callers CallerSource) *Manager {
	return &Manager{
		logger:  logger,
		store:   store,
		callers: callers,
	}
}

// ResolveCallerTenant returns the project id of the authenticated caller, or
// false if there is no caller claim or the claim does not resolve to a stored
// account. The resolved record is kept for CurrentCallerID.
func (m *Manager) ResolveCallerTenant(ctx context.Context) (string, bool) {
	acct, err := m.resolveCaller(ctx)
	if err != nil || acct == nil {
		return "", false
	}
	return acct.ProjectID, true
}

// CurrentCallerID returns the id of whichever account was most recently
// resolved by ResolveCallerTenant or GetByID during this manager's lifetime.
func (m *Manager) CurrentCallerID() (uuid.UUID, bool) {
	if m.caller == nil {
		return uuid.Nil, false
	}
	return m.caller.ID, true
}

func (m *Manager) resolveCaller(ctx context.Context) (*models.Account, error) {
	id, ok := m.callers.CallerID(ctx)
	if !ok {
		return nil, nil
	}
	acct, err := m.store.FindByID(ctx, id)
	if err != nil {
		m.logger.Error("failed to resolve caller", zap.String("caller_id", id.String()), zap.Error(err))
		return nil, err
	}
	if acct != nil {
		m.caller = acct
	}
	return acct, nil
}

// List returns the account views of the caller's project. An unresolvable
// caller yields ErrCallerNotFound.
func (m *Manager) List(ctx context.Context) ([]models.AccountView, error) {
	projectID, ok := m.ResolveCallerTenant(ctx)
	if !ok {
		return nil, ErrCallerNotFound
	}

	accts, err := m.store.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	views := make([]models.AccountView, 0, len(accts))
	for i := range accts {
		view, err := m.project(ctx, &accts[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// GetByID returns the account view for the given id, or nil when no such
// account exists. The fetched record is kept for CurrentCallerID.
func (m *Manager) GetByID(ctx context.Context, id uuid.UUID) (*models.AccountView, error) {
	acct, err := m.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, nil
	}
	m.caller = acct
	return m.project(ctx, acct)
}

// Create provisions a new account inside the caller's project. The project id
// always comes from the resolved caller, never from the request.
func (m *Manager) Create(ctx context.Context, req models.CreateAccountRequest) Result {
	projectID, ok := m.ResolveCallerTenant(ctx)
	if !ok {
		return internalFault("Logged in user not found.")
	}

	taken, err := m.store.EmailTaken(ctx, req.Email)
	if err != nil {
		return internalFault(err.Error())
	}
	if taken {
		return failure(ErrorEntry{Code: CodeConflict, Description: "E-mail already taken."})
	}

	acct := &models.Account{
		ID:          uuid.New(),
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DisplayName: req.DisplayName,
		ProjectID:   projectID,
	}
	if err := m.store.Create(ctx, acct, req.Password); err != nil {
		return storeFailure(err)
	}

	if err := m.store.AddToRole(ctx, acct.ID, models.RoleProjectUser); err != nil {
		// Report the role assignment's own failure, not the creation result.
		m.logger.Error("failed to assign default role",
			zap.String("account_id", acct.ID.String()), zap.Error(err))
		return storeFailure(err)
	}

	view, err := m.project(ctx, acct)
	if err != nil {
		return internalFault(err.Error())
	}
	return success(view)
}

// Update merges the supplied fields onto the stored account and, when a
// password is supplied, sets the new credential through the store.
func (m *Manager) Update(ctx context.Context, id uuid.UUID, req models.UpdateAccountRequest) Result {
	acct, err := m.store.FindByID(ctx, id)
	if err != nil {
		return internalFault(err.Error())
	}
	if acct == nil {
		return notFound()
	}

	if req.Email != nil {
		acct.Email = *req.Email
	}
	if req.FirstName != nil {
		acct.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		acct.LastName = *req.LastName
	}
	if req.DisplayName != nil {
		acct.DisplayName = *req.DisplayName
	}

	if err := m.store.Save(ctx, acct); err != nil {
		return storeFailure(err)
	}

	if req.Password != nil {
		if err := m.store.SetPassword(ctx, acct.ID, *req.Password); err != nil {
			return storeFailure(err)
		}
	}

	view, err := m.project(ctx, acct)
	if err != nil {
		return internalFault(err.Error())
	}
	return success(view)
}

// Delete removes the account. The result carries no payload.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) Result {
	acct, err := m.store.FindByID(ctx, id)
	if err != nil {
		return internalFault(err.Error())
	}
	if acct == nil {
		return notFound()
	}

	if err := m.store.Delete(ctx, id); err != nil {
		return storeFailure(err)
	}
	return Result{}
}

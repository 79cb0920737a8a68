package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/loomcms/accounts/internal/auth"
	"github.com/loomcms/accounts/internal/identity"
	"github.com/loomcms/accounts/pkg/models"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	store  *identity.Store
	issuer *auth.TokenIssuer
	caller *models.Account
}

func setupEnv(t *testing.T) *testEnv {
	return setupEnvWithLogger(t, zap.NewNop())
}

func setupEnvWithLogger(t *testing.T, logger *zap.Logger) *testEnv {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	store := identity.NewStore(logger, db)
	require.NoError(t, store.AutoMigrate())

	caller := &models.Account{ID: uuid.New(), Email: "admin@t1.com", ProjectID: "T1"}
	require.NoError(t, store.Create(context.Background(), caller, "C4llerPass"))

	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	authSvc := auth.NewService(logger, store, issuer, nil)
	srv := NewServer(logger, store, authSvc, issuer, time.Minute)

	return &testEnv{
		router: srv.Router(),
		db:     db,
		store:  store,
		issuer: issuer,
		caller: caller,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string, authenticated bool) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		token, err := e.issuer.Issue(e.caller.ID, e.caller.ProjectID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestAccountsRequireAuth(t *testing.T) {
	env := setupEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/accounts", "", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAccountHandler(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/accounts",
		`{"email":"a@x.com","password":"P@ss1234","first_name":"Ada"}`, true)
	require.Equal(t, http.StatusCreated, w.Code)

	var view models.AccountView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "a@x.com", view.Email)
	assert.Equal(t, "T1", view.ProjectID)
	assert.Contains(t, view.Roles, models.RoleProjectUser)
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/accounts",
		`{"email":"a@x.com","password":"P@ss1234"}`, true)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/accounts",
		`{"email":"a@x.com","password":"P@ss1234"}`, true)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Errors []struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "400", body.Errors[0].Code)
	assert.Equal(t, "E-mail already taken.", body.Errors[0].Description)
}

func TestListAccountsHandler(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/accounts",
		`{"email":"a@x.com","password":"P@ss1234"}`, true)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/accounts", "", true)
	require.Equal(t, http.StatusOK, w.Code)

	var views []models.AccountView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	assert.Len(t, views, 2) // caller + created
}

func TestGetAccountHandler(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/accounts/"+env.caller.ID.String(), "", true)
	require.Equal(t, http.StatusOK, w.Code)

	var view models.AccountView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, env.caller.ID, view.ID)
}

func TestGetAccountNotFound(t *testing.T) {
	env := setupEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/accounts/"+uuid.NewString(), "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetAccountBadID(t *testing.T) {
	env := setupEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/accounts/not-a-uuid", "", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateAccountHandler(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/accounts",
		`{"email":"a@x.com","password":"P@ss1234","first_name":"Ada"}`, true)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.AccountView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = env.do(t, http.MethodPut, "/api/v1/accounts/"+created.ID.String(),
		`{"first_name":"Grace"}`, true)
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.AccountView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Grace", updated.FirstName)
	assert.Equal(t, "a@x.com", updated.Email)
}

func TestUpdateAccountNotFound(t *testing.T) {
	env := setupEnv(t)
	w := env.do(t, http.MethodPut, "/api/v1/accounts/"+uuid.NewString(),
		`{"first_name":"Grace"}`, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteAccountHandler(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/accounts",
		`{"email":"a@x.com","password":"P@ss1234"}`, true)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.AccountView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = env.do(t, http.MethodDelete, "/api/v1/accounts/"+created.ID.String(), "", true)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/accounts/"+created.ID.String(), "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/accounts/"+created.ID.String(), "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginHandler(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"admin@t1.com","password":"C4llerPass"}`, false)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, env.caller.ID, resp.Account.ID)

	parsed, err := env.issuer.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, env.caller.ID, parsed)
}

func TestLoginHandlerRejectsBadPassword(t *testing.T) {
	env := setupEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"admin@t1.com","password":"WrongPass1"}`, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestForgotAndResetPassword(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	w := env.do(t, http.MethodPost, "/api/v1/auth/forgot-password",
		`{"email":"admin@t1.com"}`, false)
	assert.Equal(t, http.StatusAccepted, w.Code)

	// Unknown emails get the same response.
	w = env.do(t, http.MethodPost, "/api/v1/auth/forgot-password",
		`{"email":"nobody@example.com"}`, false)
	assert.Equal(t, http.StatusAccepted, w.Code)

	// Drive the reset through the store directly; the token normally travels
	// out of band.
	token, err := env.store.IssueResetToken(ctx, env.caller.ID, time.Minute)
	require.NoError(t, err)

	w = env.do(t, http.MethodPost, "/api/v1/auth/reset-password",
		`{"token":"`+token+`","password":"N3wSecret!"}`, false)
	assert.Equal(t, http.StatusNoContent, w.Code)

	acct, err := env.store.FindByID(ctx, env.caller.ID)
	require.NoError(t, err)
	assert.True(t, env.store.VerifyPassword(acct, "N3wSecret!"))
}

func TestForgotPasswordDoesNotLogToken(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	env := setupEnvWithLogger(t, zap.New(core))

	w := env.do(t, http.MethodPost, "/api/v1/auth/forgot-password",
		`{"email":"admin@t1.com"}`, false)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.NotEmpty(t, logs.FilterMessage("password reset token issued").All())

	// The plaintext token travels out of band only; no log field may carry a
	// value that the reset endpoint would accept.
	for _, entry := range logs.All() {
		for _, field := range entry.Context {
			assert.NotEqual(t, "token", field.Key)
			if field.Type == zapcore.StringType {
				err := env.store.ConsumeResetToken(context.Background(), field.String, "Hij4cked1")
				assert.ErrorIs(t, err, identity.ErrTokenInvalid)
			}
		}
	}
}

func TestLoginRolesEmptyWhenLookupFails(t *testing.T) {
	env := setupEnv(t)

	// With the role table gone the lookup errors; the response must still
	// carry an empty list, never null.
	require.NoError(t, env.db.Migrator().DropTable(&models.AccountRole{}))

	w := env.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"admin@t1.com","password":"C4llerPass"}`, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"roles":[]`)
	assert.NotContains(t, w.Body.String(), `"roles":null`)
}

func TestResetPasswordInvalidToken(t *testing.T) {
	env := setupEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/auth/reset-password",
		`{"token":"bogus","password":"N3wSecret!"}`, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthz(t *testing.T) {
	env := setupEnv(t)
	w := env.do(t, http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
}

package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loomcms/accounts/internal/accounts"
	"github.com/loomcms/accounts/internal/auth"
	"github.com/loomcms/accounts/internal/identity"
	"github.com/loomcms/accounts/pkg/metrics"
	"github.com/loomcms/accounts/pkg/models"
)

// manager builds the request-scoped account manager. The caller id travels in
// the request context, injected by the auth middleware.
func (s *Server) manager() *accounts.Manager {
	return accounts.NewManager(s.logger, s.store, auth.ContextSource{})
}

// statusFor derives the HTTP status from the first error entry. Manager codes
// are numeric; store validation codes map to 400.
func statusFor(entries []accounts.ErrorEntry) int {
	if len(entries) == 0 {
		return http.StatusOK
	}
	if code, err := strconv.Atoi(entries[0].Code); err == nil && code >= 400 && code < 600 {
		return code
	}
	return http.StatusBadRequest
}

func respondResult(c *gin.Context, res accounts.Result, successStatus int) {
	if !res.Succeeded() {
		c.JSON(statusFor(res.Errors), gin.H{"errors": res.Errors})
		return
	}
	if res.Payload == nil {
		c.Status(successStatus)
		return
	}
	c.JSON(successStatus, res.Payload)
}

func (s *Server) listAccounts(c *gin.Context) {
	views, err := s.manager().List(c.Request.Context())
	if err != nil {
		if errors.Is(err, accounts.ErrCallerNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"errors": []accounts.ErrorEntry{
				{Code: accounts.CodeInternal, Description: "Logged in user not found."},
			}})
			return
		}
		s.logger.Error("failed to list accounts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list accounts"})
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) getAccount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	view, err := s.manager().GetByID(c.Request.Context(), id)
	if err != nil {
		s.logger.Error("failed to get account", zap.String("id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get account"})
		return
	}
	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) createAccount(c *gin.Context) {
	var req models.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := s.manager().Create(c.Request.Context(), req)
	metrics.AccountOperations.WithLabelValues("create", outcomeOf(res)).Inc()
	respondResult(c, res, http.StatusCreated)
}

func (s *Server) updateAccount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	var req models.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := s.manager().Update(c.Request.Context(), id, req)
	metrics.AccountOperations.WithLabelValues("update", outcomeOf(res)).Inc()
	respondResult(c, res, http.StatusOK)
}

func (s *Server) deleteAccount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	res := s.manager().Delete(c.Request.Context(), id)
	metrics.AccountOperations.WithLabelValues("delete", outcomeOf(res)).Inc()
	respondResult(c, res, http.StatusNoContent)
}

func (s *Server) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, acct, err := s.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountLocked):
			metrics.LoginAttempts.WithLabelValues("locked").Inc()
			c.JSON(http.StatusLocked, gin.H{"error": "account temporarily locked"})
		case errors.Is(err, auth.ErrInvalidCredentials):
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		default:
			s.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()

	roles, err := s.store.RolesFor(c.Request.Context(), acct.ID)
	if err != nil {
		s.logger.Warn("failed to load roles", zap.Error(err))
		roles = []string{}
	}
	c.JSON(http.StatusOK, models.LoginResponse{
		Token: token,
		Account: &models.AccountView{
			ID:          acct.ID,
			Email:       acct.Email,
			FirstName:   acct.FirstName,
			LastName:    acct.LastName,
			DisplayName: acct.DisplayName,
			ProjectID:   acct.ProjectID,
			Roles:       roles,
			CreatedAt:   acct.CreatedAt,
			UpdatedAt:   acct.UpdatedAt,
		},
	})
}

// forgotPassword issues a one-time reset token. The response is 202 whether
// or not the email resolves, so account existence is not leaked; the token is
// delivered out of band.
func (s *Server) forgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acct, err := s.store.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		s.logger.Error("failed to look up account for reset", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start password reset"})
		return
	}
	if acct != nil {
		// TODO: hand the token to the notification pipeline once one exists.
		// The plaintext token must never reach the log.
		if _, err := s.store.IssueResetToken(c.Request.Context(), acct.ID, s.resetTokenTTL); err != nil {
			s.logger.Error("failed to issue reset token", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start password reset"})
			return
		}
		s.logger.Info("password reset token issued",
			zap.String("account_id", acct.ID.String()))
	}

	c.Status(http.StatusAccepted)
}

func (s *Server) resetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.store.ConsumeResetToken(c.Request.Context(), req.Token, req.Password)
	if err != nil {
		var ve *identity.ValidationError
		switch {
		case errors.Is(err, identity.ErrTokenInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "reset token is invalid or expired"})
		case errors.As(err, &ve):
			c.JSON(http.StatusBadRequest, gin.H{"errors": ve.Entries})
		default:
			s.logger.Error("failed to reset password", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset password"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}

func outcomeOf(res accounts.Result) string {
	if res.Succeeded() {
		return "success"
	}
	return "failure"
}

package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/loomcms/accounts/internal/auth"
	"github.com/loomcms/accounts/internal/identity"
)

// Server wires the HTTP surface of the accounts service.
type Server struct {
	logger        *zap.Logger
	store         *identity.Store
	authSvc       *auth.Service
	issuer        *auth.TokenIssuer
	resetTokenTTL time.Duration
}

// NewServer creates a new HTTP server.
func NewServer(logger *zap.Logger, store *identity.Store, authSvc *auth.Service, issuer *auth.TokenIssuer, resetTokenTTL time.Duration) *Server {
	return &Server{
		logger:        logger,
		store:         store,
		authSvc:       authSvc,
		issuer:        issuer,
		resetTokenTTL: resetTokenTTL,
	}
}

// Router creates the HTTP router.
func (s *Server) Router() *gin.Engine {
	router := gin.New()

	router.Use(ginzap.Ginzap(s.logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))
	router.Use(otelgin.Middleware("loom-accounts"))
	router.Use(cors.Default())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/login", s.login)
		authGroup.POST("/forgot-password", s.forgotPassword)
		authGroup.POST("/reset-password", s.resetPassword)
	}

	accountsGroup := v1.Group("/accounts")
	accountsGroup.Use(auth.RequireAuth(s.issuer))
	{
		accountsGroup.GET("", s.listAccounts)
		accountsGroup.GET("/:id", s.getAccount)
		accountsGroup.POST("", s.createAccount)
		accountsGroup.PUT("/:id", s.updateAccount)
		accountsGroup.DELETE("/:id", s.deleteAccount)
	}

	return router
}

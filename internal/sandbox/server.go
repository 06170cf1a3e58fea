// Package sandbox is a self-contained banking API the CLI can be pointed at.
// It serves every endpoint the client uses from an in-memory SQLite database
// seeded with demo accounts.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/bankctl-dev/bankctl/internal/auth"
	"github.com/bankctl-dev/bankctl/internal/config"
)

// Server represents the sandbox HTTP server
type Server struct {
	router *gin.Engine
	db     *gorm.DB
	config config.SandboxConfig
	logger zerolog.Logger
	signer *auth.Signer
}

// New creates a new sandbox with a migrated and seeded database
func New(cfg config.SandboxConfig, zlog zerolog.Logger) (*Server, error) {
	db, err := initDatabase(cfg.DatabaseURL, zlog)
	if err != nil {
		return nil, err
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := seed(db); err != nil {
		return nil, err
	}

	registerValidators()

	server := &Server{
		db:     db,
		config: cfg,
		logger: zlog.With().Str("component", "sandbox").Logger(),
		signer: auth.NewSigner(cfg.JWTSecret, cfg.TokenTTL),
	}

	server.setupRouter()

	return server, nil
}

// registerValidators adds the custom tags used by request bindings
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterValidation("alphanumdash", func(fl validator.FieldLevel) bool {
		// Allow alphanumeric, hyphens, and underscores only
		value := fl.Field().String()
		for _, char := range value {
			if !((char >= 'a' && char <= 'z') ||
				(char >= 'A' && char <= 'Z') ||
				(char >= '0' && char <= '9') ||
				char == '-' ||
				char == '_') {
				return false
			}
		}
		return true
	})
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.router.GET("/health", s.healthCheck)

	public := s.router.Group("/api")
	{
		public.POST("/auth/login", s.login)
		public.POST("/auth/login/2fa", s.login2FA)
		public.POST("/auth/register", s.register)
		public.POST("/auth/password-reset", s.requestPasswordReset)
		public.POST("/auth/password-reset/confirm", s.confirmPasswordReset)

		public.GET("/blog/posts", s.listPosts)
		public.GET("/blog/posts/:slug", s.getPost)
		public.GET("/blog/posts/:slug/comments", s.listComments)
		public.POST("/blog/posts/:slug/comments", s.addComment)
		public.GET("/blog/categories", s.listCategories)
		public.GET("/blog/tags", s.listTags)
	}

	api := s.router.Group("/api")
	api.Use(JWTAuthMiddleware(s.db, s.signer, s.logger))
	{
		api.GET("/auth/me", s.getCurrentUser)
		api.POST("/auth/refresh", s.refreshToken)
		api.POST("/auth/logout", s.logout)
		api.POST("/auth/change-password", s.changePassword)

		api.PUT("/users/me", s.updateCurrentUser)
		api.GET("/users/search", s.searchUsers)
		api.GET("/users/:id", s.getUser)
		api.PUT("/users/:id", s.updateUser)

		api.GET("/wallets/", s.listWallets)
		api.POST("/wallets/", s.createWallet)
		api.GET("/wallets/balance", s.getBalance)
		api.POST("/wallets/deposit", s.deposit)
		api.POST("/wallets/withdraw", s.withdraw)
		api.POST("/wallets/transfer", s.transfer)
		api.GET("/wallets/:id", s.getWallet)
		api.PUT("/wallets/:id", s.updateWallet)
		api.DELETE("/wallets/:id", s.deleteWallet)
		api.GET("/wallets/:id/transactions", s.listWalletTransactions)

		api.GET("/transactions/", s.listTransactions)
		api.GET("/transactions/:id", s.getTransaction)

		api.GET("/support/tickets", s.listTickets)
		api.POST("/support/tickets", s.createTicket)
		api.GET("/support/tickets/:id", s.getTicket)
		api.PUT("/support/tickets/:id", s.updateTicket)
		api.POST("/support/tickets/:id/close", s.closeTicket)
		api.GET("/support/tickets/:id/replies", s.listReplies)
		api.POST("/support/tickets/:id/replies", s.addReply)

		api.GET("/login-history/", s.listLoginHistory)
		api.GET("/login-history/recent/", s.recentLoginHistory)

		api.GET("/2fa/status", s.twoFactorStatus)
		api.POST("/2fa/enable", s.enableTwoFactor)
		api.POST("/2fa/disable", s.disableTwoFactor)
		api.POST("/2fa/verify", s.verifyTwoFactor)

		api.GET("/data/stats", s.dataStats)

		admin := api.Group("")
		admin.Use(AdminOnlyMiddleware(s.logger))
		{
			admin.GET("/users/", s.listUsers)
			admin.DELETE("/users/:id", s.deleteUser)
			admin.POST("/transactions/", s.createTransaction)
			admin.PUT("/transactions/:id", s.updateTransaction)
			admin.DELETE("/transactions/:id", s.deleteTransaction)

			admin.GET("/admin/dashboard", s.adminDashboard)
			admin.GET("/admin/users", s.adminUsers)
			admin.GET("/admin/transactions/", s.adminTransactions)
			admin.GET("/admin/settings", s.getSettings)
			admin.POST("/admin/settings", s.saveSettings)
			admin.POST("/data/reset-database", s.resetDatabase)
		}
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetHeader("X-Request-ID")).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "bankctl-sandbox",
	})
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database
func (s *Server) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.config.Addr).Msg("Starting sandbox API")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("sandbox server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if err := s.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database")
	}

	s.logger.Info().Msg("Sandbox shutdown complete")
	return nil
}

// bindJSON decodes the request body, answering 400 on failure
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// errorJSON writes {"error": message}
func errorJSON(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// internalError logs err and answers 500
func (s *Server) internalError(c *gin.Context, err error, msg string) {
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
	errorJSON(c, http.StatusInternalServerError, "Internal server error")
}

package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusdesk-dev/campusdesk/internal/auth"
	"github.com/campusdesk-dev/campusdesk/internal/directory"
	"github.com/campusdesk-dev/campusdesk/internal/email"
	"github.com/campusdesk-dev/campusdesk/internal/models"
)

// PasswordResetRequest asks for a reset link to be emailed
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetConfirmRequest carries the token from the emailed link
// together with the new password
type PasswordResetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TestEmailRequest sends a test message, optionally with caller-supplied
// SMTP credentials (e.g. while configuring the institute's mail account)
type TestEmailRequest struct {
	To          string `json:"to" binding:"required,email"`
	SMTPServer  string `json:"smtp_server"`
	SMTPPort    int    `json:"smtp_port"`
	SMTPEmail   string `json:"smtp_email"`
	AppPassword string `json:"app_password"`
}

// instituteSMTPCredentials builds per-call credentials from the
// configured institute mail account, or nil when none is configured
func (s *Server) instituteSMTPCredentials() *email.SMTPCredentials {
	cfg := s.config.Email
	if cfg.SMTPEmail == "" || cfg.SMTPPassword == "" {
		return nil
	}
	return &email.SMTPCredentials{
		Server:      cfg.SMTPServer,
		Port:        cfg.SMTPPort,
		Email:       cfg.SMTPEmail,
		AppPassword: cfg.SMTPPassword,
	}
}

// @Summary Request password reset
// @Description Emails a password reset link. Always answers 200 so account existence is not leaked.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Password reset request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/password-reset [post]
func (s *Server) requestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{"message": "If the account exists, a reset link has been sent"}

	record, err := s.directory.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, directory.ErrNotFound) {
			s.logger.Error().Err(err).Msg("Directory lookup failed during password reset")
		}
		c.JSON(http.StatusOK, response)
		return
	}
	if !record.IsActive {
		c.JSON(http.StatusOK, response)
		return
	}

	token, err := auth.GenerateResetToken(s.config.Session.Secret, record.ID, record.Email)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate reset token")
		c.JSON(http.StatusOK, response)
		return
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.config.Server.CORSOrigin, token)
	msg := email.Message{
		To:      record.Email,
		Subject: fmt.Sprintf("[%s] Password reset", s.config.Email.AppName),
		Text:    fmt.Sprintf("Hello %s,\n\nA password reset was requested for your account. The link below is valid for one hour:\n\n%s\n\nIf you did not request this, you can ignore this message.", record.Name, link),
		HTML:    fmt.Sprintf("<p>Hello %s,</p><p>A password reset was requested for your account. The link below is valid for one hour:</p><p><a href=%q>%s</a></p><p>If you did not request this, you can ignore this message.</p>", record.Name, link, link),
	}

	// Delivery failures are logged, not surfaced: the response must not
	// reveal whether the account exists
	if _, err := s.dispatcher.Dispatch(c.Request.Context(), msg, s.instituteSMTPCredentials()); err != nil {
		s.logger.Error().Err(err).Str("email", record.Email).Msg("Failed to send password reset email")
	}

	c.JSON(http.StatusOK, response)
}

// @Summary Confirm password reset
// @Description Sets a new password using a valid reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body PasswordResetConfirmRequest true "Password reset confirmation"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/password-reset/confirm [post]
func (s *Server) confirmPasswordReset(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := auth.ValidateResetToken(s.config.Session.Secret, req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	var user models.User
	if err := models.FindByID(s.db, claims.UserID, &user); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	user.PasswordHash = passwordHash
	if err := s.db.Save(&user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Password reset completed")

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated"})
}

// @Summary Send test email
// @Description Sends a test message to verify email configuration (manager only). Caller-supplied SMTP credentials take priority over the configured institute account.
// @Tags settings
// @Accept json
// @Produce json
// @Param request body TestEmailRequest true "Test email request"
// @Success 200 {object} email.Receipt
// @Failure 400 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/settings/email/test [post]
func (s *Server) sendTestEmail(c *gin.Context) {
	var req TestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creds := s.instituteSMTPCredentials()
	if req.SMTPEmail != "" && req.AppPassword != "" {
		port := req.SMTPPort
		if port == 0 {
			port = 587
		}
		creds = &email.SMTPCredentials{
			Server:      req.SMTPServer,
			Port:        port,
			Email:       req.SMTPEmail,
			AppPassword: req.AppPassword,
		}
	}

	msg := email.Message{
		To:      req.To,
		Subject: fmt.Sprintf("[%s] Test email", s.config.Email.AppName),
		Text:    "This is a test message confirming your email configuration works.",
		HTML:    "<p>This is a test message confirming your email configuration works.</p>",
	}

	receipt, err := s.dispatcher.Dispatch(c.Request.Context(), msg, creds)
	if err != nil {
		if errors.Is(err, email.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No usable email transport configured"})
			return
		}
		s.logger.Error().Err(err).Msg("Test email failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, receipt)
}

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusdesk-dev/campusdesk/internal/auth"
	"github.com/campusdesk-dev/campusdesk/internal/models"
	"github.com/campusdesk-dev/campusdesk/internal/session"
)

// SetupRequest represents the first-run setup request
type SetupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	User *UserDetail `json:"user"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func userDetail(user *models.User) *UserDetail {
	return &UserDetail{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}

// startSession creates a session bound to the user and sets the cookie
func (s *Server) startSession(c *gin.Context, user *models.User) error {
	sessionID, err := s.sessions.Create(session.UserEntry{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		LoginType: auth.LoginTypePassword,
	})
	if err != nil {
		return err
	}

	cookie := session.NewCookie(
		s.config.Session.CookieName,
		sessionID,
		s.sessions.TTL(),
		s.config.Server.IsProduction(),
	)
	http.SetCookie(c.Writer, cookie)
	return nil
}

// @Summary First-run setup
// @Description Creates the first manager account (only works if no users exist)
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SetupRequest true "Setup request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/setup [post]
func (s *Server) setupFirstManager(c *gin.Context) {
	var req SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Check if any users exist
	var count int64
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Setup already completed"})
		return
	}

	// Hash password
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	// Create manager account
	user := &models.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		Name:         req.Name,
		Role:         models.RoleManager,
		IsActive:     true,
	}

	if err := s.db.Create(user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create manager account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	if err := s.startSession(c, user); err != nil {
		s.logger.Error().Err(err).Msg("Failed to create session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("First manager account created")

	c.JSON(http.StatusOK, LoginResponse{User: userDetail(user)})
}

// @Summary Login
// @Description Authenticate with email and password, establishing a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Find user by email
	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// Verify password
	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is deactivated"})
		return
	}

	if err := s.startSession(c, &user); err != nil {
		s.logger.Error().Err(err).Msg("Failed to create session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User logged in")

	c.JSON(http.StatusOK, LoginResponse{User: userDetail(&user)})
}

// clearRequestSession removes the user entry from whatever session the
// request carries; logging out an already-anonymous session is a no-op
func (s *Server) clearRequestSession(c *gin.Context) {
	sessionID, err := c.Cookie(s.config.Session.CookieName)
	if err != nil {
		return
	}
	if err := s.sessions.ClearUser(sessionID); err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear session user")
	}
	// Tell the browser to drop the now-anonymous cookie as well
	http.SetCookie(c.Writer, session.ExpiredCookie(s.config.Session.CookieName, s.config.Server.IsProduction()))
}

// @Summary Logout (browser navigation)
// @Description Clears the session's user entry and redirects to the login page
// @Tags auth
// @Success 302
// @Router /api/logout [get]
func (s *Server) logoutRedirect(c *gin.Context) {
	s.clearRequestSession(c)
	c.Redirect(http.StatusFound, "/login")
}

// @Summary Logout (API)
// @Description Clears the session's user entry
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/logout [post]
func (s *Server) logoutJSON(c *gin.Context) {
	s.clearRequestSession(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

// @Summary Get current user
// @Description Get the verified principal for the current session
// @Tags auth
// @Produce json
// @Success 200 {object} auth.Principal
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/user [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	principal, exists := GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, principal)
}

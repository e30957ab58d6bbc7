package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusdesk-dev/campusdesk/internal/auth"
	"github.com/campusdesk-dev/campusdesk/internal/models"
)

// CreateUserRequest represents a request to create a new user
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

// CreateUserResponse includes the created user details
type CreateUserResponse struct {
	User *UserDetail `json:"user"`
}

// @Summary List users
// @Description List all users (manager only)
// @Tags users
// @Produce json
// @Success 200 {array} UserDetail
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/users [get]
func (s *Server) listUsers(c *gin.Context) {
	var users []models.User
	if err := s.db.Order("created_at DESC").Find(&users).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	userDetails := make([]UserDetail, len(users))
	for i, user := range users {
		userDetails[i] = *userDetail(&user)
	}

	c.JSON(http.StatusOK, userDetails)
}

// @Summary Create user
// @Description Create a new user account (manager only)
// @Tags users
// @Accept json
// @Produce json
// @Param request body CreateUserRequest true "Create user request"
// @Success 201 {object} CreateUserResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/users [post]
func (s *Server) createUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := strings.ToLower(req.Role)
	if role == "" {
		role = models.RoleStaff
	}
	if err := s.validator.Var(role, "rolename"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role name"})
		return
	}

	// Hash the provided password
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	// Create user
	user := &models.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		Name:         req.Name,
		Role:         role,
		IsActive:     true,
	}

	if err := s.db.Create(user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	principal, _ := GetPrincipal(c)
	s.logger.Info().
		Str("user_id", user.ID).
		Str("email", user.Email).
		Str("created_by", principal.SubjectID).
		Msg("User created")

	c.JSON(http.StatusCreated, CreateUserResponse{User: userDetail(user)})
}

// @Summary Deactivate user
// @Description Deactivate a user account; their sessions stop authenticating on the next request (manager only, cannot deactivate self)
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} UserDetail
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/users/{id}/deactivate [post]
func (s *Server) deactivateUser(c *gin.Context) {
	s.setUserActive(c, false)
}

// @Summary Reactivate user
// @Description Reactivate a previously deactivated user account (manager only)
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} UserDetail
// @Failure 404 {object} map[string]interface{}
// @Router /api/users/{id}/reactivate [post]
func (s *Server) reactivateUser(c *gin.Context) {
	s.setUserActive(c, true)
}

func (s *Server) setUserActive(c *gin.Context, active bool) {
	userID := c.Param("id")

	principal, _ := GetPrincipal(c)

	// Prevent locking yourself out
	if !active && userID == principal.SubjectID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot deactivate yourself"})
		return
	}

	// Find user
	var user models.User
	if err := models.FindByID(s.db, userID, &user); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user.IsActive = active
	if err := s.db.Save(&user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Bool("is_active", active).
		Str("changed_by", principal.SubjectID).
		Msg("User active state changed")

	c.JSON(http.StatusOK, userDetail(&user))
}

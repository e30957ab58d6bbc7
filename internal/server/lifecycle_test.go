package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusdesk-dev/campusdesk/internal/auth"
)

// TestAccountLifecycle walks one account through the whole flow: first-run
// setup, onboarding a teacher, mid-session deactivation, reactivation and
// a password reset.
func TestAccountLifecycle(t *testing.T) {
	srv := newTestServer(t)

	var managerCookie *http.Cookie
	var teacherCookie *http.Cookie
	var teacherID string

	t.Run("Setup", func(t *testing.T) {
		w := doJSON(srv, http.MethodPost, "/api/setup", SetupRequest{
			Email:    "head@example.edu",
			Password: "manager-pass",
			Name:     "Head of School",
		}, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, "manager", resp.User.Role)
		managerCookie = sessionCookie(t, w)
	})

	t.Run("Onboarding", func(t *testing.T) {
		w := doJSON(srv, http.MethodPost, "/api/users", CreateUserRequest{
			Email:    "teacher@example.edu",
			Name:     "A Teacher",
			Password: "teacher-pass",
			Role:     "teacher",
		}, managerCookie)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp CreateUserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.User.ID)
		teacherID = resp.User.ID

		w = doJSON(srv, http.MethodPost, "/api/auth/login", LoginRequest{
			Email:    "teacher@example.edu",
			Password: "teacher-pass",
		}, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		teacherCookie = sessionCookie(t, w)

		w = doJSON(srv, http.MethodGet, "/api/auth/user", nil, teacherCookie)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Deactivation", func(t *testing.T) {
		w := doJSON(srv, http.MethodPost, "/api/users/"+teacherID+"/deactivate", nil, managerCookie)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		// The teacher's live session dies on its next request
		w = doJSON(srv, http.MethodGet, "/api/auth/user", nil, teacherCookie)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Reactivation", func(t *testing.T) {
		w := doJSON(srv, http.MethodPost, "/api/users/"+teacherID+"/reactivate", nil, managerCookie)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		// The cleared session stays dead; a fresh login is required
		w = doJSON(srv, http.MethodGet, "/api/auth/user", nil, teacherCookie)
		require.Equal(t, http.StatusUnauthorized, w.Code)

		teacherCookie = loginAs(t, srv, "teacher@example.edu", "teacher-pass")
	})

	t.Run("PasswordReset", func(t *testing.T) {
		w := doJSON(srv, http.MethodPost, "/api/password-reset", PasswordResetRequest{
			Email: "teacher@example.edu",
		}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		token, err := auth.GenerateResetToken(srv.config.Session.Secret, teacherID, "teacher@example.edu")
		require.NoError(t, err)

		w = doJSON(srv, http.MethodPost, "/api/password-reset/confirm", PasswordResetConfirmRequest{
			Token:    token,
			Password: "rotated-pass",
		}, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		loginAs(t, srv, "teacher@example.edu", "rotated-pass")
	})
}

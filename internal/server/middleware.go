package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/campusdesk-dev/campusdesk/internal/auth"
	"github.com/campusdesk-dev/campusdesk/internal/directory"
	"github.com/campusdesk-dev/campusdesk/internal/session"
)

var (
	ErrNoSessionCookie = errors.New("missing session cookie")
	ErrNoSession       = errors.New("session not found")
	ErrNoSessionUser   = errors.New("no user bound to session")
	ErrWrongLoginType  = errors.New("unsupported login type")
	ErrUserNotFound    = errors.New("user not found")
	ErrUserInactive    = errors.New("user is deactivated")
)

func setPrincipal(c *gin.Context, principal *auth.Principal) {
	c.Set("principal", principal)
}

// GetPrincipal returns the verified principal attached by the session
// authenticator
func GetPrincipal(c *gin.Context) (*auth.Principal, bool) {
	value, exists := c.Get("principal")
	if !exists {
		return nil, false
	}

	principal, ok := value.(*auth.Principal)
	return principal, ok
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// SessionAuthMiddleware gates access to protected routes. It resolves the
// session cookie into a server-held session record and re-validates the
// bound user against the directory on every request, so deactivating an
// account takes effect immediately. Any ambiguity fails closed: the user
// entry is cleared from the session and the request gets a 401.
func SessionAuthMiddleware(store *session.Store, dir directory.UserDirectory, cookieName string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(cookieName)
		if err != nil {
			respondWithError(c, log, http.StatusUnauthorized, ErrNoSessionCookie, "Unauthorized")
			return
		}

		record, err := store.Get(sessionID)
		if err != nil {
			respondWithError(c, log, http.StatusUnauthorized, ErrNoSession, "Unauthorized")
			return
		}

		// Only password-established sessions are accepted
		if record.User == nil {
			respondWithError(c, log, http.StatusUnauthorized, ErrNoSessionUser, "Unauthorized")
			return
		}
		if record.User.LoginType != auth.LoginTypePassword {
			respondWithError(c, log, http.StatusUnauthorized, ErrWrongLoginType, "Unauthorized")
			return
		}

		// Verify the user still exists and is active. A transient
		// directory failure is treated the same as a missing record:
		// clear the session's user entry and force a fresh login.
		userRecord, err := dir.GetByID(c.Request.Context(), record.User.ID)
		if err != nil {
			if !errors.Is(err, directory.ErrNotFound) {
				log.Error().Err(err).Str("user_id", record.User.ID).Msg("Directory check failed")
				err = ErrUserNotFound
			}
			clearSessionUser(store, sessionID, log)
			respondWithError(c, log, http.StatusUnauthorized, err, "Unauthorized")
			return
		}
		if !userRecord.IsActive {
			clearSessionUser(store, sessionID, log)
			respondWithError(c, log, http.StatusUnauthorized, ErrUserInactive, "Unauthorized")
			return
		}

		setPrincipal(c, &auth.Principal{
			SubjectID: userRecord.ID,
			Email:     userRecord.Email,
			Role:      auth.NormalizeRole(userRecord.Role),
			LoginType: auth.LoginTypePassword,
		})

		c.Next()
	}
}

// RequireRole ensures the authenticated principal holds the given role
func RequireRole(role string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, exists := GetPrincipal(c)
		if !exists {
			respondWithError(c, log, http.StatusUnauthorized, errors.New("no principal"), "Unauthorized")
			return
		}

		if principal.Role != role {
			respondWithError(c, log, http.StatusForbidden, errors.New("insufficient role"), "Manager access required")
			return
		}

		c.Next()
	}
}

// clearSessionUser is the only session write the authenticator performs
func clearSessionUser(store *session.Store, sessionID string, log zerolog.Logger) {
	if err := store.ClearUser(sessionID); err != nil {
		log.Error().Err(err).Msg("Failed to clear session user")
	}
}

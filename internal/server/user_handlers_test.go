package server

import (
	"encoding/json"
	"net/http"
	"testing"
)

// createTestUser creates a user through the management API and returns
// its ID
func createTestUser(t *testing.T, srv *Server, managerCookie *http.Cookie, email, password, role string) string {
	t.Helper()

	w := doJSON(srv, http.MethodPost, "/api/users", CreateUserRequest{
		Email:    email,
		Name:     "Test User",
		Password: password,
		Role:     role,
	}, managerCookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create user status = %d, body %s", w.Code, w.Body.String())
	}

	var resp CreateUserResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	return resp.User.ID
}

func loginAs(t *testing.T, srv *Server, email, password string) *http.Cookie {
	t.Helper()

	w := doJSON(srv, http.MethodPost, "/api/auth/login", LoginRequest{Email: email, Password: password}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	return sessionCookie(t, w)
}

func TestCreateAndListUsers(t *testing.T) {
	srv := newTestServer(t)
	managerCookie, _ := setupManager(t, srv)

	createTestUser(t, srv, managerCookie, "teacher@example.edu", "pass1", "teacher")
	createTestUser(t, srv, managerCookie, "office@example.edu", "pass2", "")

	w := doJSON(srv, http.MethodGet, "/api/users", nil, managerCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("list users status = %d, body %s", w.Code, w.Body.String())
	}

	var users []UserDetail
	if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
		t.Fatalf("failed to decode user list: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("user count = %d, want 3", len(users))
	}

	roles := make(map[string]string)
	for _, user := range users {
		roles[user.Email] = user.Role
	}
	if roles["teacher@example.edu"] != "teacher" {
		t.Errorf("teacher role = %q, want teacher", roles["teacher@example.edu"])
	}
	// An omitted role falls back to staff
	if roles["office@example.edu"] != "staff" {
		t.Errorf("default role = %q, want staff", roles["office@example.edu"])
	}
}

func TestCreateUserRoleCasingAndValidation(t *testing.T) {
	srv := newTestServer(t)
	managerCookie, _ := setupManager(t, srv)

	// Mixed casing is accepted and normalized
	w := doJSON(srv, http.MethodPost, "/api/users", CreateUserRequest{
		Email:    "t2@example.edu",
		Name:     "T Two",
		Password: "pass",
		Role:     "Teacher",
	}, managerCookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var resp CreateUserResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if resp.User.Role != "teacher" {
		t.Errorf("role = %q, want teacher", resp.User.Role)
	}

	// Anything beyond plain letters is rejected
	for _, role := range []string{"r0le", "role name", "role-x"} {
		w := doJSON(srv, http.MethodPost, "/api/users", CreateUserRequest{
			Email:    "bad@example.edu",
			Name:     "Bad",
			Password: "pass",
			Role:     role,
		}, managerCookie)
		if w.Code != http.StatusBadRequest {
			t.Errorf("create with role %q status = %d, want 400", role, w.Code)
		}
	}
}

func TestUserManagementRequiresManager(t *testing.T) {
	srv := newTestServer(t)
	managerCookie, _ := setupManager(t, srv)
	createTestUser(t, srv, managerCookie, "teacher@example.edu", "pass1", "teacher")

	teacherCookie := loginAs(t, srv, "teacher@example.edu", "pass1")

	if w := doJSON(srv, http.MethodGet, "/api/users", nil, teacherCookie); w.Code != http.StatusForbidden {
		t.Errorf("list as teacher status = %d, want 403", w.Code)
	}
	if w := doJSON(srv, http.MethodGet, "/api/users", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("list without session status = %d, want 401", w.Code)
	}
}

func TestDeactivateAndReactivateUser(t *testing.T) {
	srv := newTestServer(t)
	managerCookie, _ := setupManager(t, srv)
	teacherID := createTestUser(t, srv, managerCookie, "teacher@example.edu", "pass1", "teacher")

	teacherCookie := loginAs(t, srv, "teacher@example.edu", "pass1")

	w := doJSON(srv, http.MethodPost, "/api/users/"+teacherID+"/deactivate", nil, managerCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d, body %s", w.Code, w.Body.String())
	}

	// The live session stops authenticating on the very next request
	if w := doJSON(srv, http.MethodGet, "/api/auth/user", nil, teacherCookie); w.Code != http.StatusUnauthorized {
		t.Errorf("auth/user after deactivation status = %d, want 401", w.Code)
	}

	// And a fresh login is refused too
	w = doJSON(srv, http.MethodPost, "/api/auth/login", LoginRequest{
		Email:    "teacher@example.edu",
		Password: "pass1",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("login while deactivated status = %d, want 401", w.Code)
	}

	w = doJSON(srv, http.MethodPost, "/api/users/"+teacherID+"/reactivate", nil, managerCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("reactivate status = %d, body %s", w.Code, w.Body.String())
	}
	loginAs(t, srv, "teacher@example.edu", "pass1")
}

func TestCannotDeactivateSelf(t *testing.T) {
	srv := newTestServer(t)
	managerCookie, managerID := setupManager(t, srv)

	w := doJSON(srv, http.MethodPost, "/api/users/"+managerID+"/deactivate", nil, managerCookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("self-deactivate status = %d, want 400", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] != "Cannot deactivate yourself" {
		t.Errorf("error = %v, want self-deactivation message", body["error"])
	}
}

func TestDeactivateUnknownUser(t *testing.T) {
	srv := newTestServer(t)
	managerCookie, _ := setupManager(t, srv)

	if w := doJSON(srv, http.MethodPost, "/api/users/does-not-exist/deactivate", nil, managerCookie); w.Code != http.StatusNotFound {
		t.Errorf("deactivate unknown user status = %d, want 404", w.Code)
	}
}

package auth

import "strings"

// LoginTypePassword marks sessions established by email/password login
const LoginTypePassword = "password"

// NormalizeRole lowercases a directory role so principals compare
// consistently regardless of how the record was stored ("Manager",
// "MANAGER" and "manager" are the same role)
func NormalizeRole(role string) string {
	return strings.ToLower(role)
}

// Principal is the verified identity attached to a request after the
// session authenticator has re-validated it against the user directory.
// It is read-only, rebuilt on every request and never persisted.
type Principal struct {
	SubjectID string `json:"subject_id"`
	Email     string `json:"email"`
	Role      string `json:"role"` // always lowercased
	LoginType string `json:"login_type"`
}

// IsManager reports whether the principal holds the manager role
func (p *Principal) IsManager() bool {
	return p.Role == "manager"
}

package core

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

// Role is a named authority granted to an account.
type Role string

const (
	RoleUser          Role = "USER"
	RoleModerator     Role = "MODERATOR"
	RoleAdministrator Role = "ADMINISTRATOR"
)

// ParseRole normalises a role name (roles are stored upper-case).
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

// RoleSet is a set of roles. The zero value is an empty, read-only set.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from role names, normalising case.
func NewRoleSet(roles ...string) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		if role := ParseRole(r); role != "" {
			set[role] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains role, ignoring case.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[ParseRole(string(role))]
	return ok
}

func (s RoleSet) Add(role Role) {
	s[ParseRole(string(role))] = struct{}{}
}

func (s RoleSet) Remove(role Role) {
	delete(s, ParseRole(string(role)))
}

// Strings returns the roles sorted, for persistence and JSON output.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}

func (s RoleSet) Clone() RoleSet {
	out := make(RoleSet, len(s))
	for r := range s {
		out[r] = struct{}{}
	}
	return out
}

// Account is the persisted user account as seen by the gates.
type Account struct {
	Login        string
	PasswordHash string
	FirstName    string
	LastName     string
	Roles        RoleSet
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserName     string
	PasswordHash string
	Roles        RoleSet
}

// PrincipalFromAccount value-copies the identity fields of an account.
func PrincipalFromAccount(a Account) Principal {
	return Principal{
		UserName:     a.Login,
		PasswordHash: a.PasswordHash,
		Roles:        a.Roles.Clone(),
	}
}

var (
	// ErrUnauthenticated is returned when a request has neither a credential nor a session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrMalformedCredential is returned when the Authorization header cannot be decoded.
	ErrMalformedCredential = errors.New("malformed credential")
	// ErrInvalidCredentials is returned when login/password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrPostNotFound       = errors.New("post not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrAccountExists      = errors.New("account already exists")
)

// GateError carries the HTTP status and fixed message a gate answers with.
type GateError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *GateError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Message
}

func (e *GateError) Unwrap() error {
	return e.Err
}

func unauthenticated() *GateError {
	return &GateError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Invalid token and session ID", Err: ErrUnauthenticated}
}

func malformedCredential(cause error) *GateError {
	return &GateError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Invalid token", Err: errors.Join(ErrMalformedCredential, cause)}
}

func invalidCredentials() *GateError {
	return &GateError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "login or password is invalid", Err: ErrInvalidCredentials}
}

func postNotFound(id string) *GateError {
	return &GateError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "post id = " + id + " not found", Err: ErrNotFound}
}

func forbidden() *GateError {
	return &GateError{Status: http.StatusForbidden, Code: "FORBIDDEN", Err: ErrForbidden}
}

func internalError(cause error) *GateError {
	return &GateError{Status: http.StatusInternalServerError, Code: "INTERNAL_SERVER_ERROR", Message: "internal server error", Err: cause}
}

package core

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleSet(t *testing.T) {
	roles := NewRoleSet("user", " Moderator ", "")
	assert.True(t, roles.Has(RoleUser))
	assert.True(t, roles.Has("moderator"))
	assert.False(t, roles.Has(RoleAdministrator))
	assert.Equal(t, []string{"MODERATOR", "USER"}, roles.Strings())

	clone := roles.Clone()
	clone.Remove("user")
	assert.True(t, roles.Has(RoleUser))
	assert.False(t, clone.Has(RoleUser))

	var empty RoleSet
	assert.False(t, empty.Has(RoleUser))
	assert.Empty(t, empty.Strings())
}

func TestPrincipalFromAccountCopiesRoles(t *testing.T) {
	a := Account{Login: "alice", PasswordHash: "h", Roles: NewRoleSet("USER")}
	p := PrincipalFromAccount(a)
	a.Roles.Add(RoleModerator)

	assert.Equal(t, "alice", p.UserName)
	assert.Equal(t, "h", p.PasswordHash)
	assert.False(t, p.Roles.Has(RoleModerator))
}

func TestGateErrorsMapToTaxonomy(t *testing.T) {
	cases := []struct {
		err     *GateError
		status  int
		message string
		target  error
	}{
		{unauthenticated(), http.StatusUnauthorized, "Invalid token and session ID", ErrUnauthenticated},
		{malformedCredential(errors.New("bad base64")), http.StatusUnauthorized, "Invalid token", ErrMalformedCredential},
		{invalidCredentials(), http.StatusUnauthorized, "login or password is invalid", ErrInvalidCredentials},
		{postNotFound("p9"), http.StatusNotFound, "post id = p9 not found", ErrNotFound},
		{forbidden(), http.StatusForbidden, "", ErrForbidden},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.Status)
		assert.Equal(t, tc.message, tc.err.Message)
		assert.ErrorIs(t, tc.err, tc.target)
	}
}

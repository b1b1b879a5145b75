package core

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrInvalidRegistration is returned when login or password is missing.
	ErrInvalidRegistration = errors.New("login and password are required")
)

// AccountService wraps the account repository with hashing and principal upkeep.
type AccountService struct {
	accounts   AccountRepository
	principals PrincipalContext
}

func NewAccountService(accounts AccountRepository, principals PrincipalContext) *AccountService {
	return &AccountService{accounts: accounts, principals: principals}
}

// Register creates an account with the USER role.
func (s *AccountService) Register(ctx context.Context, login, password, firstName, lastName string) (Account, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" || strings.ContainsAny(login, ": /") {
		return Account{}, ErrInvalidRegistration
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Account{}, err
	}
	account := Account{
		Login:        login,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Roles:        NewRoleSet(string(RoleUser)),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// ChangeRole grants or revokes role. A principal already registered for the
// login is refreshed so in-flight authorization sees the new roles.
func (s *AccountService) ChangeRole(ctx context.Context, login string, role Role, grant bool) (Account, error) {
	var (
		updated *Account
		err     error
	)
	if grant {
		updated, err = s.accounts.AddRole(ctx, login, role)
	} else {
		updated, err = s.accounts.RemoveRole(ctx, login, role)
	}
	if err != nil {
		return Account{}, err
	}
	if _, ok := s.principals.Get(login); ok {
		s.principals.Put(PrincipalFromAccount(*updated))
	}
	return *updated, nil
}

package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountFinder is the lookup the authentication gate needs.
type AccountFinder interface {
	FindByLogin(ctx context.Context, login string) (*Account, error)
}

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	AccountFinder
	Create(ctx context.Context, account Account) error
	HasRole(ctx context.Context, role Role) (bool, error)
	AddRole(ctx context.Context, login string, role Role) (*Account, error)
	RemoveRole(ctx context.Context, login string, role Role) (*Account, error)
}

// PgAccountRepository implements AccountRepository using pgxpool.
type PgAccountRepository struct {
	db *pgxpool.Pool
}

func NewPgAccountRepository(db *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{db: db}
}

const accountColumns = `login, password_hash, first_name, last_name, roles`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	var roles []string
	if err := row.Scan(&a.Login, &a.PasswordHash, &a.FirstName, &a.LastName, &roles); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	a.Roles = NewRoleSet(roles...)
	return &a, nil
}

func (r *PgAccountRepository) FindByLogin(ctx context.Context, login string) (*Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE login=$1`
	return scanAccount(r.db.QueryRow(ctx, q, login))
}

func (r *PgAccountRepository) Create(ctx context.Context, a Account) error {
	const q = `INSERT INTO accounts (login, password_hash, first_name, last_name, roles) VALUES ($1,$2,$3,$4,$5)`
	if _, err := r.db.Exec(ctx, q, a.Login, a.PasswordHash, a.FirstName, a.LastName, a.Roles.Strings()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAccountExists
		}
		return err
	}
	return nil
}

func (r *PgAccountRepository) HasRole(ctx context.Context, role Role) (bool, error) {
	const q = `SELECT 1 FROM accounts WHERE $1 = ANY(roles) LIMIT 1`
	var one int
	if err := r.db.QueryRow(ctx, q, string(ParseRole(string(role)))).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *PgAccountRepository) AddRole(ctx context.Context, login string, role Role) (*Account, error) {
	const q = `UPDATE accounts SET roles = array_append(array_remove(roles, $2), $2) WHERE login=$1 RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, q, login, string(ParseRole(string(role)))))
}

func (r *PgAccountRepository) RemoveRole(ctx context.Context, login string, role Role) (*Account, error) {
	const q = `UPDATE accounts SET roles = array_remove(roles, $2) WHERE login=$1 RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, q, login, string(ParseRole(string(role)))))
}

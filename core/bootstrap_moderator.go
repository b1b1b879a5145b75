package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"os"
)

// BootstrapModeratorLogin is the login of the account created by BootstrapModerator.
const BootstrapModeratorLogin = "moderator"

// BootstrapModerator creates an initial moderator account when none exists.
// It is idempotent: if any account holds the moderator role, it does nothing.
func BootstrapModerator(ctx context.Context, repo AccountRepository, cfg Config) error {
	if !cfg.BootstrapModeratorEnabled {
		return nil
	}

	role := cfg.ModeratorRole
	if role == "" {
		role = RoleModerator
	}
	has, err := repo.HasRole(ctx, role)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	password, err := generatePassword(32)
	if err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	account := Account{
		Login:        BootstrapModeratorLogin,
		PasswordHash: hash,
		Roles:        NewRoleSet(string(RoleUser), string(role), string(RoleAdministrator)),
	}
	if err := repo.Create(ctx, account); err != nil {
		if errors.Is(err, ErrAccountExists) {
			log.Printf("bootstrap skipped: login %q exists without role %s", BootstrapModeratorLogin, role)
			return nil
		}
		return err
	}

	if cfg.InitialModeratorPasswordPath != "" {
		if err := os.WriteFile(cfg.InitialModeratorPasswordPath, []byte(password+"\n"), 0o600); err != nil {
			return err
		}
		log.Printf("initial moderator created; credentials written to %s", cfg.InitialModeratorPasswordPath)
	} else {
		log.Printf("initial moderator created login=%s password=%s", BootstrapModeratorLogin, password)
	}

	return nil
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("password length must be positive")
	}
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}

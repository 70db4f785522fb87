// Package auth verifies user credentials against stored salted digests.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/Clark-Hu/kinoapp/internal/domain"
	"github.com/Clark-Hu/kinoapp/internal/repository"
)

// UserFinder is the credential-store lookup the Authenticator needs.
type UserFinder interface {
	GetByName(ctx context.Context, name string) (domain.User, error)
}

// Authenticator resolves (name, password) pairs to users.
type Authenticator struct {
	users  UserFinder
	hasher *Hasher
}

// NewAuthenticator wires an Authenticator to a credential store.
func NewAuthenticator(users UserFinder, hasher *Hasher) *Authenticator {
	return &Authenticator{users: users, hasher: hasher}
}

// Authenticate returns the user named name if password matches its digest.
// Unknown names and wrong passwords both yield domain.ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, name, password string) (domain.User, error) {
	user, err := a.users.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, domain.ErrNotFound) {
			// Spend the same hashing work as a real check.
			a.hasher.Verify(password, "", "")
			return domain.User{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !a.hasher.Verify(password, user.Salt, user.PasswordHash) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return user, nil
}

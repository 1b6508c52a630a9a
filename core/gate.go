package core

import (
	"context"
	"errors"
	"sync"

	"github.com/wansing/infodesk/auth"
)

// dummyHash is compared against if the email is unknown.
var dummyHash = sync.OnceValue(func() string {
	hash, _ := auth.HashPassword("infodesk")
	return hash
})

// Credentials are sent along with each request. Sessions are an alternative.
type Credentials struct {
	Email    string
	Password string
}

func (cred Credentials) Empty() bool {
	return cred.Email == "" && cred.Password == ""
}

// Authenticate returns the account with the given credentials.
// Unknown emails and wrong passwords both yield ErrAuthentication.
func (c *CoreDB) Authenticate(ctx context.Context, cred Credentials) (*Account, error) {

	if cred.Email == "" || cred.Password == "" {
		return nil, invalid("", "email and password required")
	}

	a, err := c.AccountDB.GetAccountByEmail(ctx, auth.CleanEmail(cred.Email))
	switch {
	case errors.Is(err, ErrNotFound):
		_ = auth.CheckPassword(dummyHash(), cred.Password) // similar timing
		return nil, ErrAuthentication
	case err != nil:
		return nil, err
	}

	if err := auth.CheckPassword(a.PasswordHash, cred.Password); err != nil {
		return nil, ErrAuthentication
	}
	return a, nil
}

// Authorize authenticates the credentials and requires the given capability.
func (c *CoreDB) Authorize(ctx context.Context, cred Credentials, required auth.Capability) (*Account, error) {
	a, err := c.Authenticate(ctx, cred)
	if err != nil {
		return nil, err
	}
	if err := Require(a, required); err != nil {
		return nil, err
	}
	return a, nil
}

// AuthorizeAccount reloads the account with the given id, e.g. from a session, and requires the given capability.
func (c *CoreDB) AuthorizeAccount(ctx context.Context, id int, required auth.Capability) (*Account, error) {
	a, err := c.AccountDB.GetAccount(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, ErrAuthentication // account has been deleted
	case err != nil:
		return nil, err
	}
	if err := Require(a, required); err != nil {
		return nil, err
	}
	return a, nil
}

// Require returns an error if a does not have the required capability.
func Require(a *Account, required auth.Capability) error {
	if a == nil {
		return ErrAuthentication
	}
	if a.Capabilities.Has(required) {
		return nil
	}
	if required != auth.None && !a.Capabilities.Has(auth.Approved) {
		return ErrNotApproved
	}
	return ErrUnauthorized
}

package core

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/wansing/infodesk/auth"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultRole          = "user"
	SuperuserRole        = "superuser"
	MaxDisplayNameLength = 255
	MaxRoleLength        = 100
)

type Account struct {
	ID           int
	Email        string
	DisplayName  string
	Role         string
	Capabilities auth.Capabilities
	PasswordHash string
	ApprovedAt   *time.Time // nil until approved
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a *Account) CanApprove() bool {
	return a != nil && a.Capabilities.CanApprove()
}

func (a *Account) String() string {
	return a.Email
}

// AccountFilter selects accounts. Zero values don't filter.
type AccountFilter struct {
	With    auth.Capability // account must have it
	Without auth.Capability // account must not have it
	Page
}

type AccountDB interface {
	InsertAccount(ctx context.Context, a *Account) error // sets a.ID, returns ErrDuplicate if the email exists
	GetAccount(ctx context.Context, id int) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	GetAccounts(ctx context.Context, ids []int) (map[int]*Account, error)
	ListAccounts(ctx context.Context, filter AccountFilter) ([]*Account, error) // newest first
	UpdateCapabilities(ctx context.Context, a *Account) error                  // stores Capabilities, ApprovedAt and UpdatedAt
	UpdatePasswordHash(ctx context.Context, a *Account) error                  // stores PasswordHash and UpdatedAt
}

type RegisterRequest struct {
	Email           string
	Password        string
	PasswordConfirm string
	DisplayName     string
	Role            string
}

func (c *CoreDB) minPasswordLength() int {
	if c.MinPasswordLength > 0 {
		return c.MinPasswordLength
	}
	return auth.DefaultMinPasswordLength
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, "@")
}

func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// Register creates an unapproved account.
func (c *CoreDB) Register(ctx context.Context, req RegisterRequest) (*Account, error) {

	var email = auth.CleanEmail(req.Email)
	if email == "" {
		return nil, invalid("email", "this field is required")
	}
	if !validEmail(email) {
		return nil, invalid("email", "enter a valid email address")
	}

	if err := auth.ValidatePassword(req.Password, c.minPasswordLength()); err != nil {
		return nil, invalid("password", err.Error())
	}
	if c.RequirePasswordConfirm && req.Password != req.PasswordConfirm {
		return nil, invalid("password_confirm", auth.ErrPasswordMismatch.Error())
	}

	var displayName = cleanText(req.DisplayName)
	if len([]rune(displayName)) > MaxDisplayNameLength {
		return nil, invalid("fullname", "ensure this field has no more than %d characters", MaxDisplayNameLength)
	}

	var role = cleanText(req.Role)
	if role == "" {
		role = DefaultRole
	}
	if len([]rune(role)) > MaxRoleLength {
		return nil, invalid("role", "ensure this field has no more than %d characters", MaxRoleLength)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var now = c.now()
	var a = &Account{
		Email:        email,
		DisplayName:  displayName,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.AccountDB.InsertAccount(ctx, a); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, invalid("email", "user with this email already exists")
		}
		return nil, err
	}

	c.log().Info("account registered", "id", a.ID, "email", a.Email)
	return a, nil
}

// ApproveAccount approves target. Only superusers can approve accounts.
// If grantApprover is true, target may approve content afterwards.
func (c *CoreDB) ApproveAccount(ctx context.Context, target, actor *Account, grantApprover bool) error {

	if err := Require(actor, auth.Superuser); err != nil {
		return err
	}

	var caps = target.Capabilities.Grant(auth.Approved)
	if grantApprover {
		caps = caps.Grant(auth.Approver)
	}

	var now = c.now()
	var before = *target

	target.Capabilities = caps
	target.ApprovedAt = &now
	target.UpdatedAt = now

	if err := c.AccountDB.UpdateCapabilities(ctx, target); err != nil {
		*target = before
		return err
	}

	c.log().Info("account approved", "id", target.ID, "email", target.Email, "by", actor.Email, "capabilities", caps.String())
	return nil
}

// ApproveAccountByID loads the target account and calls ApproveAccount.
func (c *CoreDB) ApproveAccountByID(ctx context.Context, id int, actor *Account, grantApprover bool) (*Account, error) {
	if err := Require(actor, auth.Superuser); err != nil {
		return nil, err
	}
	target, err := c.AccountDB.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return target, c.ApproveAccount(ctx, target, actor, grantApprover)
}

// CreateSuperuser creates an approved superuser account.
func (c *CoreDB) CreateSuperuser(ctx context.Context, email, password, displayName string) (*Account, error) {

	email = auth.CleanEmail(email)
	if !validEmail(email) {
		return nil, invalid("email", "enter a valid email address")
	}

	if err := auth.ValidatePassword(password, c.minPasswordLength()); err != nil {
		return nil, invalid("password", err.Error())
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	var now = c.now()
	var a = &Account{
		Email:        email,
		DisplayName:  cleanText(displayName),
		Role:         SuperuserRole,
		Capabilities: auth.Capabilities(0).Grant(auth.Superuser),
		PasswordHash: hash,
		ApprovedAt:   &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.AccountDB.InsertAccount(ctx, a); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, invalid("email", "user with this email already exists")
		}
		return nil, err
	}
	return a, nil
}

// SetPassword shadows AccountDB.UpdatePasswordHash. It enforces the minimum password length.
func (c *CoreDB) SetPassword(ctx context.Context, a *Account, password string) error {
	if err := auth.ValidatePassword(password, c.minPasswordLength()); err != nil {
		return invalid("password", err.Error())
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	a.UpdatedAt = c.now()
	return c.AccountDB.UpdatePasswordHash(ctx, a)
}

// ListUnapproved returns accounts which wait for approval, newest first.
func (c *CoreDB) ListUnapproved(ctx context.Context, page Page) ([]*Account, error) {
	return c.AccountDB.ListAccounts(ctx, AccountFilter{
		Without: auth.Approved,
		Page:    page.Normalize(),
	})
}

// ListAccounts shadows AccountDB.ListAccounts.
func (c *CoreDB) ListAccounts(ctx context.Context, page Page) ([]*Account, error) {
	return c.AccountDB.ListAccounts(ctx, AccountFilter{
		Page: page.Normalize(),
	})
}

// AnySuperuser returns one superuser account, or ErrNotFound.
func (c *CoreDB) AnySuperuser(ctx context.Context) (*Account, error) {
	accounts, err := c.AccountDB.ListAccounts(ctx, AccountFilter{
		With: auth.Superuser,
		Page: Page{Limit: 1},
	})
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNotFound
	}
	return accounts[0], nil
}

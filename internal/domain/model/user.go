package model

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gym-membership/internal/domain"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// User is a member or an administrator. The live subscription is embedded;
// its history lives in SubscriptionEvent.
type User struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Role         Role          `json:"role"`
	Phone        string        `json:"phone,omitempty"`
	Address      string        `json:"address,omitempty"`
	Gender       string        `json:"gender,omitempty"`
	MembershipID *string       `json:"membershipId,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NewUser(id, name, email, passwordHash string, role Role) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if role == "" {
		role = RoleUser
	}
	u := &User{
		ID:           id,
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) Validate() error {
	switch {
	case u.Name == "":
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	case u.Email == "":
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	case !u.Role.Valid():
		return fmt.Errorf("%w: unknown role %q", domain.ErrValidation, u.Role)
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("%w: invalid email", domain.ErrValidation)
	}
	return nil
}

func (u *User) IsZero() bool  { return u == nil || u.ID == "" }
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// Caller is the authenticated identity performing an operation.
type Caller struct {
	ID   string
	Role Role
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// CanAccess reports whether the caller may act on resources owned by ownerID.
func (c Caller) CanAccess(ownerID string) bool {
	return c.IsAdmin() || (c.ID != "" && c.ID == ownerID)
}

// SystemCaller is used by seeding and background jobs.
var SystemCaller = Caller{ID: "system", Role: RoleAdmin}

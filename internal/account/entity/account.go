package entity

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// Type classifies an account within the reservation platform.
type Type string

const (
	TypeCustomer  Type = "customer"
	TypeAdmin     Type = "admin"
	TypeOrganizer Type = "organizer"
)

// Valid reports whether t is one of the known account types.
func (t Type) Valid() bool {
	switch t {
	case TypeCustomer, TypeAdmin, TypeOrganizer:
		return true
	}
	return false
}

// InactiveMarker is appended (with a random suffix) to username and email on
// soft delete so the original values become free for new registrations.
// Uniqueness is only enforced among active rows.
const InactiveMarker = ".inactive."

// Account is a row in the `accounts` table. The internal ID never leaves the
// service; ExternalID is the only key exposed to clients.
type Account struct {
	ID           int64      `db:"id"`
	ExternalID   string     `db:"external_id"`
	Username     string     `db:"username"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	GivenName    *string    `db:"given_name"`
	FamilyName   *string    `db:"family_name"`
	Phone        *string    `db:"phone"`
	BirthDate    *time.Time `db:"birth_date"`
	RegisteredAt time.Time  `db:"registered_at"`
	LastLoginAt  *time.Time `db:"last_login_at"`
	IsActive     bool       `db:"is_active"`
	IsVerified   bool       `db:"is_verified"`
	AccountType  Type       `db:"account_type"`
}

// FullName joins the given and family names; a lone given name stands alone.
func (a *Account) FullName() string {
	given := ""
	if a.GivenName != nil {
		given = *a.GivenName
	}
	family := ""
	if a.FamilyName != nil {
		family = *a.FamilyName
	}
	if given != "" && family != "" {
		return given + " " + family
	}
	return given
}

// IsAdmin reports whether the account holds administrative privilege.
func (a *Account) IsAdmin() bool {
	return a.AccountType == TypeAdmin
}

// SoftDelete deactivates the account and mutates username and email so the
// original values can be reused by a new registration. Calling it on an
// already soft-deleted account changes nothing beyond is_active: the marker
// guard prevents a second suffix from piling up.
func (a *Account) SoftDelete() {
	suffix := InactiveMarker + randHex(4)
	if !strings.Contains(a.Email, InactiveMarker) {
		a.Email += suffix
	}
	if !strings.Contains(a.Username, InactiveMarker) {
		a.Username += suffix
	}
	a.IsActive = false
}

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// ListView is the minimal projection used by collection endpoints.
// No projection ever carries the password hash or the internal ID.
type ListView struct {
	ExternalID  string `json:"external_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	AccountType Type   `json:"account_type"`
	IsActive    bool   `json:"is_active"`
}

// DetailView is the full projection returned for a single account.
type DetailView struct {
	ExternalID   string     `json:"external_id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	GivenName    *string    `json:"given_name"`
	FamilyName   *string    `json:"family_name"`
	FullName     string     `json:"full_name"`
	Phone        *string    `json:"phone"`
	BirthDate    *string    `json:"birth_date"`
	RegisteredAt time.Time  `json:"registered_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	IsActive     bool       `json:"is_active"`
	IsVerified   bool       `json:"is_verified"`
	AccountType  Type       `json:"account_type"`
}

// AsListItem projects the account for list responses.
func (a *Account) AsListItem() ListView {
	return ListView{
		ExternalID:  a.ExternalID,
		Username:    a.Username,
		Email:       a.Email,
		FullName:    a.FullName(),
		AccountType: a.AccountType,
		IsActive:    a.IsActive,
	}
}

// AsDetail projects the account for detail responses.
func (a *Account) AsDetail() DetailView {
	var birth *string
	if a.BirthDate != nil {
		s := a.BirthDate.Format("2006-01-02")
		birth = &s
	}
	return DetailView{
		ExternalID:   a.ExternalID,
		Username:     a.Username,
		Email:        a.Email,
		GivenName:    a.GivenName,
		FamilyName:   a.FamilyName,
		FullName:     a.FullName(),
		Phone:        a.Phone,
		BirthDate:    birth,
		RegisteredAt: a.RegisteredAt,
		LastLoginAt:  a.LastLoginAt,
		IsActive:     a.IsActive,
		IsVerified:   a.IsVerified,
		AccountType:  a.AccountType,
	}
}

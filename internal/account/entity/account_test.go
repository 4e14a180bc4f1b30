package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestSoftDelete(t *testing.T) {
	a := &Account{
		Username: "alice",
		Email:    "alice@x.com",
		IsActive: true,
	}

	a.SoftDelete()

	assert.False(t, a.IsActive)
	assert.True(t, strings.HasPrefix(a.Username, "alice"+InactiveMarker))
	assert.True(t, strings.HasPrefix(a.Email, "alice@x.com"+InactiveMarker))
	// marker plus 8 hex chars
	require.Len(t, a.Username, len("alice")+len(InactiveMarker)+8)
}

func TestSoftDeleteIdempotent(t *testing.T) {
	a := &Account{
		Username: "bob",
		Email:    "bob@x.com",
		IsActive: true,
	}

	a.SoftDelete()
	username, email := a.Username, a.Email

	a.SoftDelete()

	assert.False(t, a.IsActive)
	assert.Equal(t, username, a.Username, "second soft delete must not re-suffix")
	assert.Equal(t, email, a.Email)
	assert.Equal(t, 1, strings.Count(a.Username, InactiveMarker))
	assert.Equal(t, 1, strings.Count(a.Email, InactiveMarker))
}

func TestSoftDeleteSuffixesDiffer(t *testing.T) {
	a := &Account{Username: "carol", Email: "carol@x.com", IsActive: true}
	b := &Account{Username: "carol", Email: "carol@x.com", IsActive: true}

	a.SoftDelete()
	b.SoftDelete()

	assert.NotEqual(t, a.Username, b.Username, "random suffix must differ between deletions")
}

func TestFullName(t *testing.T) {
	tests := []struct {
		name   string
		given  *string
		family *string
		want   string
	}{
		{"both", strPtr("Ada"), strPtr("Lovelace"), "Ada Lovelace"},
		{"given only", strPtr("Ada"), nil, "Ada"},
		{"family only", nil, strPtr("Lovelace"), ""},
		{"neither", nil, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Account{GivenName: tt.given, FamilyName: tt.family}
			assert.Equal(t, tt.want, a.FullName())
		})
	}
}

func TestTypeValid(t *testing.T) {
	assert.True(t, TypeCustomer.Valid())
	assert.True(t, TypeAdmin.Valid())
	assert.True(t, TypeOrganizer.Valid())
	assert.False(t, Type("root").Valid())
	assert.False(t, Type("").Valid())
}

func TestProjectionsOmitSecrets(t *testing.T) {
	a := &Account{
		ID:           42,
		ExternalID:   "ext-1",
		Username:     "alice",
		Email:        "alice@x.com",
		PasswordHash: "$2a$10$secret",
		GivenName:    strPtr("Alice"),
		AccountType:  TypeCustomer,
		IsActive:     true,
	}

	list := a.AsListItem()
	assert.Equal(t, "ext-1", list.ExternalID)
	assert.Equal(t, "Alice", list.FullName)

	detail := a.AsDetail()
	assert.Equal(t, "ext-1", detail.ExternalID)
	assert.Nil(t, detail.BirthDate)
	// neither projection has a field for the hash or the internal id;
	// the compiler enforces that, this documents it
}

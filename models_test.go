package tripauth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/tourgether/tripauth"
)

func TestProfileComplete(t *testing.T) {
	birth := time.Date(1995, 4, 12, 0, 0, 0, 0, time.UTC)

	full := &tripauth.Profile{
		AccountID: uuid.New(),
		Nickname:  "wanderer",
		Bio:       "travels a lot",
		Gender:    "F",
		BirthDate: &birth,
		Tags:      []string{"hiking"},
	}
	assert.True(t, full.Complete())

	cases := []struct {
		name   string
		mutate func(p *tripauth.Profile)
	}{
		{"missing nickname", func(p *tripauth.Profile) { p.Nickname = "" }},
		{"missing bio", func(p *tripauth.Profile) { p.Bio = "" }},
		{"missing gender", func(p *tripauth.Profile) { p.Gender = "" }},
		{"missing birth date", func(p *tripauth.Profile) { p.BirthDate = nil }},
		{"no tags", func(p *tripauth.Profile) { p.Tags = nil }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := *full
			tc.mutate(&p)
			assert.False(t, p.Complete())
		})
	}

	var nilProfile *tripauth.Profile
	assert.False(t, nilProfile.Complete())
}

func TestAccountNeedsPhoneVerification(t *testing.T) {
	account := &tripauth.Account{
		Status:      tripauth.AccountStatusActive,
		PhoneNumber: "+821012345678",
	}
	assert.False(t, account.NeedsPhoneVerification())

	t.Run("no phone number", func(t *testing.T) {
		a := &tripauth.Account{Status: tripauth.AccountStatusActive}
		assert.True(t, a.NeedsPhoneVerification())
	})

	t.Run("pending status", func(t *testing.T) {
		a := &tripauth.Account{
			Status:      tripauth.AccountStatusPending,
			PhoneNumber: "+821012345678",
		}
		assert.True(t, a.NeedsPhoneVerification())
	})

	t.Run("nil account", func(t *testing.T) {
		var a *tripauth.Account
		assert.True(t, a.NeedsPhoneVerification())
	})
}

func TestAccountDefaults(t *testing.T) {
	a := &tripauth.Account{}
	a.EnsureStatus()
	a.EnsureRoles()
	assert.Equal(t, tripauth.AccountStatusPending, a.Status)
	assert.Equal(t, []string{tripauth.RoleUser}, a.Roles)

	// Existing values are left alone.
	a.Status = tripauth.AccountStatusActive
	a.Roles = []string{tripauth.RoleAdmin}
	a.EnsureStatus()
	a.EnsureRoles()
	assert.Equal(t, tripauth.AccountStatusActive, a.Status)
	assert.Equal(t, []string{tripauth.RoleAdmin}, a.Roles)
}

func TestPlaceholderNickname(t *testing.T) {
	id := uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000000")
	assert.Equal(t, "Usera1b2c3d4", tripauth.PlaceholderNickname(id))
}

package tripauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the decoded claims of an access token. The subject is the
// account email; roles ride along so the coordinator can authorize without a
// store lookup. Refresh tokens reuse the same shape with an empty role set,
// their only meaningful claims being jti and expiry.
type AccessClaims struct {
	jwt.RegisteredClaims
	AccountRoles []string `json:"roles,omitempty"`
}

// Subject returns the subject claim, the account email.
func (c *AccessClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Roles returns the embedded role claims.
func (c *AccessClaims) Roles() []string {
	return c.AccountRoles
}

// TokenID returns the jti claim. Only refresh tokens carry one.
func (c *AccessClaims) TokenID() string {
	return c.RegisteredClaims.ID
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issuance time
func (c *AccessClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// HasRole checks for a specific role claim.
func (c *AccessClaims) HasRole(role string) bool {
	for _, r := range c.AccountRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Identity builds the request-scoped identity from the claims.
func (c *AccessClaims) Identity(accountID string) *AccountIdentity {
	return &AccountIdentity{
		AccountID:    accountID,
		AccountEmail: c.Subject(),
		AccountRoles: append([]string(nil), c.AccountRoles...),
	}
}

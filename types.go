package tripauth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetAccessCookieName() string
	GetSessionCookieName() string
	GetIssuer() string
	GetWebCallbackURL() string
	GetMobileScheme() string
	GetCountryCallingCode() string
}

// TokenService mints and validates the two credential kinds. Access tokens
// carry the subject email and role claims so authorization needs no store
// lookup; refresh tokens carry only a random identifier, so their authority
// comes entirely from still being present in the SessionStore.
type TokenService interface {
	IssueAccess(subject string, roles []string) (string, error)
	IssueRefresh() (string, error)
	Validate(raw string) (*AccessClaims, error)
	Valid(raw string) bool
	Subject(raw string) (string, error)
	TokenID(raw string) (string, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// SessionStore is the shared TTL cache behind server-tracked sessions. All
// writes carry an explicit expiry so store state and token validity decay
// together. The owner index always stores a session id; the refresh token is
// only ever fetched through the session record.
type SessionStore interface {
	Put(ctx context.Context, sessionID, refreshToken, ownerEmail string, ttl time.Duration) error
	GetRefresh(ctx context.Context, sessionID string) (string, error)
	Owner(ctx context.Context, sessionID string) (string, error)
	SessionIDByOwner(ctx context.Context, ownerEmail string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteByOwner(ctx context.Context, ownerEmail string) error
}

// CodeStore is the TTL cache slice used by phone verification. SetNX is the
// rate-limit gate: implementations must make it a single atomic
// set-if-absent-with-expiry, never a read followed by a write.
type CodeStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// CredentialCarrier abstracts how credentials travel on a request so the
// coordinator does not care whether they arrived in an Authorization header,
// a cookie, or a test fixture.
type CredentialCarrier interface {
	AccessToken() string
	SessionID() string
	SetAccessCookie(token string)
	SetSessionCookie(sessionID string)
	ClearAuthCookies()
}

// Identity is the request-scoped result of a successful authentication.
type Identity interface {
	ID() string
	Email() string
	Roles() []string
}

// AccountIdentity is the concrete Identity attached to request context.
type AccountIdentity struct {
	AccountID    string   `json:"account_id"`
	AccountEmail string   `json:"email"`
	AccountRoles []string `json:"roles"`
}

func (a *AccountIdentity) ID() string      { return a.AccountID }
func (a *AccountIdentity) Email() string   { return a.AccountEmail }
func (a *AccountIdentity) Roles() []string { return a.AccountRoles }

// Credentials is the pair minted on login completion, handed to the delivery
// layer (cookies for browsers, deep-link query parameters for the app).
type Credentials struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// Messenger delivers a verification code out of band. The SMS gateway itself
// is an external collaborator; tests and development use a logging stub.
type Messenger interface {
	SendCode(ctx context.Context, phoneNumber, code string) error
}

// NewDefaultLogger returns the stdout fallback logger. Subpackages use it
// when the caller does not inject one.
func NewDefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] TRIPAUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] TRIPAUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] TRIPAUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] TRIPAUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

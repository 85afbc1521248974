package tripauth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AccountSource resolves an account record from the token subject. The
// Accounts repository satisfies it; the coordinator only needs this one read.
type AccountSource interface {
	ByEmail(ctx context.Context, email string) (*Account, error)
}

// AuthStatus is the app-facing snapshot returned by RefreshAuthStatus. An
// unauthenticated caller gets Authenticated=false with zero values, never an
// error, so clients can poll it from a cold start.
type AuthStatus struct {
	Authenticated          bool   `json:"authenticated"`
	NeedsPhoneVerification bool   `json:"need_phone_verification"`
	AccountID              string `json:"user_id,omitempty"`
	Email                  string `json:"email,omitempty"`
}

// SessionCoordinator owns the session lifecycle: minting credential pairs on
// login, resolving requests via access token or silent refresh, and tearing
// sessions down on logout.
type SessionCoordinator struct {
	tokens   TokenService
	sessions SessionStore
	accounts AccountSource
	logger   Logger
}

// CoordinatorOption customizes the coordinator.
type CoordinatorOption func(*SessionCoordinator)

// WithCoordinatorLogger overrides the default logger.
func WithCoordinatorLogger(logger Logger) CoordinatorOption {
	return func(sc *SessionCoordinator) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// NewSessionCoordinator wires the token service, session store, and account
// source together. The account source may be nil; silent refresh then falls
// back to the default role set.
func NewSessionCoordinator(tokens TokenService, sessions SessionStore, accounts AccountSource, opts ...CoordinatorOption) *SessionCoordinator {
	sc := &SessionCoordinator{
		tokens:   tokens,
		sessions: sessions,
		accounts: accounts,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sc)
		}
	}

	return sc
}

// Login establishes a fresh session for the account: a new session id, a new
// credential pair, and a store write that binds them to the owner for the
// refresh TTL. A second login for the same owner overwrites the owner index,
// so the newest session wins and the older one dies at its TTL.
func (sc *SessionCoordinator) Login(ctx context.Context, account *Account) (*Credentials, error) {
	if account == nil || account.Email == "" {
		return nil, ErrAccountNotFound
	}

	account.EnsureRoles()

	access, err := sc.tokens.IssueAccess(account.Email, account.Roles)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to issue access token")
	}

	refresh, err := sc.tokens.IssueRefresh()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to issue refresh token")
	}

	sessionID := uuid.NewString()
	if err := sc.sessions.Put(ctx, sessionID, refresh, account.Email, sc.tokens.RefreshTTL()); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist session")
	}

	sc.logger.Info("session established", "session", sessionID, "owner", account.Email)

	return &Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    sessionID,
	}, nil
}

// Authenticate resolves the request's identity. A valid access token answers
// immediately without touching the store. Otherwise one silent refresh is
// attempted through the session cookie: the stored refresh token must exist
// and still validate, then a fresh access token is minted and written back to
// the carrier. Every failure path, including store outages, collapses to
// ErrUnauthenticated.
func (sc *SessionCoordinator) Authenticate(ctx context.Context, carrier CredentialCarrier) (*AccessClaims, error) {
	if raw := carrier.AccessToken(); raw != "" {
		claims, err := sc.tokens.Validate(raw)
		if err == nil {
			return claims, nil
		}
		if !IsTokenExpiredError(err) {
			sc.logger.Warn("access token rejected", "error", err)
			return nil, ErrUnauthenticated
		}
	}

	sessionID := carrier.SessionID()
	if sessionID == "" {
		return nil, ErrUnauthenticated
	}

	refresh, err := sc.sessions.GetRefresh(ctx, sessionID)
	if err != nil {
		if !errors.IsNotFound(err) && !errors.Is(err, ErrSessionNotFound) {
			sc.logger.Error("session store read failed", "session", sessionID, "error", err)
		}
		return nil, ErrUnauthenticated
	}

	if !sc.tokens.Valid(refresh) {
		if err := sc.sessions.DeleteSession(ctx, sessionID); err != nil {
			sc.logger.Warn("failed to purge dead session", "session", sessionID, "error", err)
		}
		return nil, ErrUnauthenticated
	}

	owner, err := sc.sessions.Owner(ctx, sessionID)
	if err != nil || owner == "" {
		return nil, ErrUnauthenticated
	}

	roles := []string{RoleUser}
	if sc.accounts != nil {
		if account, err := sc.accounts.ByEmail(ctx, owner); err == nil && account != nil {
			account.EnsureRoles()
			roles = account.Roles
		}
	}

	access, err := sc.tokens.IssueAccess(owner, roles)
	if err != nil {
		sc.logger.Error("silent refresh could not mint access token", "owner", owner, "error", err)
		return nil, ErrUnauthenticated
	}

	carrier.SetAccessCookie(access)
	sc.logger.Debug("silent refresh completed", "session", sessionID, "owner", owner)

	claims, err := sc.tokens.Validate(access)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// RefreshAuthStatus runs Authenticate and folds the result into the status
// payload the app polls on startup. Authentication failures are a negative
// status, not an error.
func (sc *SessionCoordinator) RefreshAuthStatus(ctx context.Context, carrier CredentialCarrier) (*AuthStatus, error) {
	claims, err := sc.Authenticate(ctx, carrier)
	if err != nil {
		return &AuthStatus{}, nil
	}

	status := &AuthStatus{
		Authenticated: true,
		Email:         claims.Subject(),
	}

	if sc.accounts == nil {
		return status, nil
	}

	account, err := sc.accounts.ByEmail(ctx, claims.Subject())
	if err != nil {
		if !errors.IsNotFound(err) {
			sc.logger.Error("account lookup failed during status refresh", "email", claims.Subject(), "error", err)
		}
		return &AuthStatus{}, nil
	}

	status.AccountID = account.ID.String()
	status.NeedsPhoneVerification = account.NeedsPhoneVerification()
	return status, nil
}

// Logout tears the session down. Cookies are cleared unconditionally, even
// when the store delete fails or no session exists, so a logout response
// always leaves the client signed out. Safe to call repeatedly.
func (sc *SessionCoordinator) Logout(ctx context.Context, carrier CredentialCarrier) error {
	defer carrier.ClearAuthCookies()

	sessionID := carrier.SessionID()
	if sessionID == "" {
		return nil
	}

	if err := sc.sessions.DeleteSession(ctx, sessionID); err != nil {
		if errors.IsNotFound(err) || errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		sc.logger.Error("session delete failed during logout", "session", sessionID, "error", err)
	}

	return nil
}

// RevokeOwner force-logs-out whichever session the owner currently holds.
// Used by administrative suspension and account deletion.
func (sc *SessionCoordinator) RevokeOwner(ctx context.Context, ownerEmail string) error {
	if err := sc.sessions.DeleteByOwner(ctx, ownerEmail); err != nil {
		if errors.IsNotFound(err) || errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke sessions for owner")
	}
	return nil
}

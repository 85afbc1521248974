package tripauth_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourgether/tripauth"
)

func newCoordinatorFixture(t *testing.T, clock func() time.Time) (*tripauth.SessionCoordinator, *memStore, *tripauth.TokenServiceImpl, *tripauth.Account) {
	t.Helper()

	store := newMemStore()
	tokens := newTestTokenService(clock)
	account := &tripauth.Account{
		ID:    uuid.New(),
		Email: "traveler@example.com",
		Roles: []string{"ROLE_USER"},
	}
	accounts := &memAccounts{byEmail: map[string]*tripauth.Account{
		account.Email: account,
	}}

	return tripauth.NewSessionCoordinator(tokens, store, accounts), store, tokens, account
}

func TestCoordinatorLoginEstablishesSession(t *testing.T) {
	sc, store, tokens, account := newCoordinatorFixture(t, nil)

	creds, err := sc.Login(context.Background(), account)
	require.NoError(t, err)
	require.NotEmpty(t, creds.AccessToken)
	require.NotEmpty(t, creds.RefreshToken)
	require.NotEmpty(t, creds.SessionID)

	claims, err := tokens.Validate(creds.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.Email, claims.Subject())
	assert.Equal(t, []string{"ROLE_USER"}, claims.Roles())

	refresh, err := store.GetRefresh(context.Background(), creds.SessionID)
	require.NoError(t, err)
	assert.Equal(t, creds.RefreshToken, refresh)

	owner, err := store.Owner(context.Background(), creds.SessionID)
	require.NoError(t, err)
	assert.Equal(t, account.Email, owner)
}

func TestCoordinatorSecondLoginWins(t *testing.T) {
	sc, store, _, account := newCoordinatorFixture(t, nil)

	first, err := sc.Login(context.Background(), account)
	require.NoError(t, err)

	second, err := sc.Login(context.Background(), account)
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	// The owner index points at the newest session; the old record is gone.
	current, err := store.SessionIDByOwner(context.Background(), account.Email)
	require.NoError(t, err)
	assert.Equal(t, second.SessionID, current)

	_, err = store.GetRefresh(context.Background(), first.SessionID)
	require.Error(t, err)
}

func TestCoordinatorAuthenticateWithValidAccess(t *testing.T) {
	sc, _, _, account := newCoordinatorFixture(t, nil)

	creds, err := sc.Login(context.Background(), account)
	require.NoError(t, err)

	carrier := &memCarrier{accessToken: creds.AccessToken, sessionID: creds.SessionID}

	claims, err := sc.Authenticate(context.Background(), carrier)
	require.NoError(t, err)
	assert.Equal(t, account.Email, claims.Subject())
	assert.Empty(t, carrier.setAccessCalls)
}

func TestCoordinatorSilentRefresh(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	current := now
	sc, _, tokens, account := newCoordinatorFixture(t, func() time.Time { return current })

	creds, err := sc.Login(context.Background(), account)
	require.NoError(t, err)

	// The access token expires while the session is still live.
	current = now.Add(20 * time.Minute)

	carrier := &memCarrier{accessToken: creds.AccessToken, sessionID: creds.SessionID}

	claims, err := sc.Authenticate(context.Background(), carrier)
	require.NoError(t, err)
	assert.Equal(t, account.Email, claims.Subject())
	assert.Equal(t, []string{"ROLE_USER"}, claims.Roles())

	require.Len(t, carrier.setAccessCalls, 1)
	assert.True(t, tokens.Valid(carrier.setAccessCalls[0]))
}

func TestCoordinatorSilentRefreshWithoutAccessToken(t *testing.T) {
	sc, _, _, account := newCoordinatorFixture(t, nil)

	creds, err := sc.Login(context.Background(), account)
	require.NoError(t, err)

	carrier := &memCarrier{sessionID: creds.SessionID}

	claims, err := sc.Authenticate(context.Background(), carrier)
	require.NoError(t, err)
	assert.Equal(t, account.Email, claims.Subject())
	require.Len(t, carrier.setAccessCalls, 1)
}

func TestCoordinatorAuthenticateFailsClosed(t *testing.T) {
	t.Run("no credentials", func(t *testing.T) {
		sc, _, _, _ := newCoordinatorFixture(t, nil)

		_, err := sc.Authenticate(context.Background(), &memCarrier{})
		assert.ErrorIs(t, err, tripauth.ErrUnauthenticated)
	})

	t.Run("unknown session", func(t *testing.T) {
		sc, _, _, _ := newCoordinatorFixture(t, nil)

		carrier := &memCarrier{sessionID: uuid.NewString()}
		_, err := sc.Authenticate(context.Background(), carrier)
		assert.ErrorIs(t, err, tripauth.ErrUnauthenticated)
	})

	t.Run("garbage access token and no session", func(t *testing.T) {
		sc, _, _, _ := newCoordinatorFixture(t, nil)

		carrier := &memCarrier{accessToken: "not.a.token"}
		_, err := sc.Authenticate(context.Background(), carrier)
		assert.ErrorIs(t, err, tripauth.ErrUnauthenticated)
	})

	t.Run("store outage", func(t *testing.T) {
		sc, store, _, account := newCoordinatorFixture(t, nil)

		creds, err := sc.Login(context.Background(), account)
		require.NoError(t, err)

		store.failAll = true
		carrier := &memCarrier{sessionID: creds.SessionID}

		_, err = sc.Authenticate(context.Background(), carrier)
		assert.ErrorIs(t, err, tripauth.ErrUnauthenticated)
	})
}

func TestCoordinatorExpiredRefreshPurgesSession(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	current := now
	sc, store, _, account := newCoordinatorFixture(t, func() time.Time { return current })

	creds, err := sc.Login(context.Background(), account)
	require.NoError(t, err)

	// Both tokens are now past their windows.
	current = now.Add(15 * 24 * time.Hour)

	carrier := &memCarrier{sessionID: creds.SessionID}
	_, err = sc.Authenticate(context.Background(), carrier)
	assert.ErrorIs(t, err, tripauth.ErrUnauthenticated)

	_, err = store.GetRefresh(context.Background(), creds.SessionID)
	require.Error(t, err)
}

func TestCoordinatorLogout(t *testing.T) {
	sc, store, _, account := newCoordinatorFixture(t, nil)

	creds, err := sc.Login(context.Background(), account)
	require.NoError(t, err)

	carrier := &memCarrier{accessToken: creds.AccessToken, sessionID: creds.SessionID}

	require.NoError(t, sc.Logout(context.Background(), carrier))
	assert.True(t, carrier.cleared)

	_, err = store.GetRefresh(context.Background(), creds.SessionID)
	require.Error(t, err)

	// Logout with no session left is still fine.
	require.NoError(t, sc.Logout(context.Background(), &memCarrier{}))
}

func TestCoordinatorLogoutClearsCookiesOnStoreFailure(t *testing.T) {
	sc, store, _, account := newCoordinatorFixture(t, nil)

	creds, err := sc.Login(context.Background(), account)
	require.NoError(t, err)

	store.failAll = true
	carrier := &memCarrier{accessToken: creds.AccessToken, sessionID: creds.SessionID}

	require.NoError(t, sc.Logout(context.Background(), carrier))
	assert.True(t, carrier.cleared)
}

func TestCoordinatorRefreshAuthStatus(t *testing.T) {
	t.Run("anonymous caller gets negative status without error", func(t *testing.T) {
		sc, _, _, _ := newCoordinatorFixture(t, nil)

		status, err := sc.RefreshAuthStatus(context.Background(), &memCarrier{})
		require.NoError(t, err)
		assert.False(t, status.Authenticated)
		assert.Empty(t, status.AccountID)
	})

	t.Run("authenticated pending account needs phone verification", func(t *testing.T) {
		sc, _, _, account := newCoordinatorFixture(t, nil)
		account.Status = tripauth.AccountStatusPending

		creds, err := sc.Login(context.Background(), account)
		require.NoError(t, err)

		carrier := &memCarrier{accessToken: creds.AccessToken, sessionID: creds.SessionID}
		status, err := sc.RefreshAuthStatus(context.Background(), carrier)
		require.NoError(t, err)
		assert.True(t, status.Authenticated)
		assert.True(t, status.NeedsPhoneVerification)
		assert.Equal(t, account.ID.String(), status.AccountID)
	})

	t.Run("account lookup outage degrades to negative status", func(t *testing.T) {
		store := newMemStore()
		tokens := newTestTokenService(nil)
		account := &tripauth.Account{ID: uuid.New(), Email: "traveler@example.com"}
		accounts := &memAccounts{byEmail: map[string]*tripauth.Account{
			account.Email: account,
		}}
		sc := tripauth.NewSessionCoordinator(tokens, store, accounts)

		creds, err := sc.Login(context.Background(), account)
		require.NoError(t, err)

		accounts.err = errors.New("accounts database unavailable", errors.CategoryInternal)
		carrier := &memCarrier{accessToken: creds.AccessToken, sessionID: creds.SessionID}

		status, err := sc.RefreshAuthStatus(context.Background(), carrier)
		require.NoError(t, err)
		assert.False(t, status.Authenticated)
		assert.Empty(t, status.AccountID)
	})

	t.Run("active verified account is clear", func(t *testing.T) {
		sc, _, _, account := newCoordinatorFixture(t, nil)
		account.Status = tripauth.AccountStatusActive
		account.PhoneNumber = "+821012345678"
		account.PhoneVerified = true

		creds, err := sc.Login(context.Background(), account)
		require.NoError(t, err)

		carrier := &memCarrier{accessToken: creds.AccessToken, sessionID: creds.SessionID}
		status, err := sc.RefreshAuthStatus(context.Background(), carrier)
		require.NoError(t, err)
		assert.True(t, status.Authenticated)
		assert.False(t, status.NeedsPhoneVerification)
	})
}

func TestCoordinatorRevokeOwner(t *testing.T) {
	sc, store, _, account := newCoordinatorFixture(t, nil)

	creds, err := sc.Login(context.Background(), account)
	require.NoError(t, err)

	require.NoError(t, sc.RevokeOwner(context.Background(), account.Email))

	_, err = store.GetRefresh(context.Background(), creds.SessionID)
	require.Error(t, err)

	// Revoking an owner with no session is a no-op.
	require.NoError(t, sc.RevokeOwner(context.Background(), "nobody@example.com"))
}

package social_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourgether/tripauth/social"
)

var (
	testEncKey  = []byte("0123456789abcdef0123456789abcdef")
	testHMACKey = []byte("fedcba9876543210fedcba9876543210")
)

func TestStateManagerRoundTrip(t *testing.T) {
	sm := social.NewEncryptedStateManager(testEncKey, testHMACKey, 10*time.Minute)

	original := &social.OAuthState{
		Provider:    "google",
		WebOverride: true,
		UserAgent:   "Mozilla/5.0 Chrome/120.0",
		RedirectURL: "/trips",
	}

	token, err := sm.Encode(original)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := sm.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "google", decoded.Provider)
	assert.True(t, decoded.WebOverride)
	assert.Equal(t, "Mozilla/5.0 Chrome/120.0", decoded.UserAgent)
	assert.Equal(t, "/trips", decoded.RedirectURL)
	assert.NotEmpty(t, decoded.Nonce)
	assert.NotZero(t, decoded.IssuedAt)
	assert.NotZero(t, decoded.ExpiresAt)
}

func TestStateManagerRejectsTamperedToken(t *testing.T) {
	sm := social.NewEncryptedStateManager(testEncKey, testHMACKey, 10*time.Minute)

	token, err := sm.Encode(&social.OAuthState{Provider: "kakao"})
	require.NoError(t, err)

	raw, err := base64.URLEncoding.DecodeString(token)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.URLEncoding.EncodeToString(raw)

	_, err = sm.Decode(tampered)
	assert.ErrorIs(t, err, social.ErrInvalidState)
}

func TestStateManagerRejectsGarbage(t *testing.T) {
	sm := social.NewEncryptedStateManager(testEncKey, testHMACKey, 10*time.Minute)

	_, err := sm.Decode("not-base64!!!")
	assert.ErrorIs(t, err, social.ErrInvalidState)

	_, err = sm.Decode(base64.URLEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, social.ErrInvalidState)
}

func TestStateManagerRejectsForeignHMACKey(t *testing.T) {
	sm := social.NewEncryptedStateManager(testEncKey, testHMACKey, 10*time.Minute)
	other := social.NewEncryptedStateManager(testEncKey, []byte("another-hmac-key-another-hmac-ke"), 10*time.Minute)

	token, err := other.Encode(&social.OAuthState{Provider: "naver"})
	require.NoError(t, err)

	_, err = sm.Decode(token)
	assert.ErrorIs(t, err, social.ErrInvalidState)
}

func TestStateManagerExpiry(t *testing.T) {
	sm := social.NewEncryptedStateManager(testEncKey, testHMACKey, 10*time.Minute)

	token, err := sm.Encode(&social.OAuthState{
		Provider:  "google",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	})
	require.NoError(t, err)

	_, err = sm.Decode(token)
	assert.ErrorIs(t, err, social.ErrStateExpired)
}

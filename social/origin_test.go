package social_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tourgether/tripauth/social"
)

func TestClassifyOrigin(t *testing.T) {
	cases := []struct {
		name        string
		webOverride bool
		userAgent   string
		expected    social.Origin
	}{
		{"explicit web override wins over app agent", true, "Expo/2.31", social.OriginBrowser},
		{"explicit web override with empty agent", true, "", social.OriginBrowser},
		{"chrome desktop", false, "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0", social.OriginBrowser},
		{"safari on mac", false, "Mozilla/5.0 (Macintosh) Safari/605.1", social.OriginBrowser},
		{"firefox", false, "Mozilla/5.0 (X11; Linux) Firefox/121.0", social.OriginBrowser},
		{"expo embedded webview", false, "Mozilla/5.0 Expo/2.31 Chrome/120.0", social.OriginApp},
		{"bare native client", false, "okhttp/4.12", social.OriginApp},
		{"empty user agent", false, "", social.OriginApp},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, social.ClassifyOrigin(tc.webOverride, tc.userAgent))
		})
	}
}

func TestClassifyOriginIsDeterministic(t *testing.T) {
	ua := "Mozilla/5.0 Expo/2.31"
	first := social.ClassifyOrigin(false, ua)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, social.ClassifyOrigin(false, ua))
	}
}

func TestOriginFromState(t *testing.T) {
	assert.Equal(t, social.OriginApp, social.OriginFromState(nil))

	state := &social.OAuthState{WebOverride: true}
	assert.Equal(t, social.OriginBrowser, social.OriginFromState(state))

	state = &social.OAuthState{UserAgent: "Mozilla/5.0 Chrome/120.0"}
	assert.Equal(t, social.OriginBrowser, social.OriginFromState(state))

	state = &social.OAuthState{UserAgent: "okhttp/4.12"}
	assert.Equal(t, social.OriginApp, social.OriginFromState(state))
}

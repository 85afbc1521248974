package social

import "strings"

// Origin is where the login flow started, which decides how credentials are
// delivered at the end of the provider round trip.
type Origin string

const (
	// OriginBrowser delivers credentials as HttpOnly cookies plus a frontend
	// redirect.
	OriginBrowser Origin = "browser"
	// OriginApp delivers credentials as deep-link query parameters.
	OriginApp Origin = "app"
)

var browserMarkers = []string{"Mozilla", "Chrome", "Safari", "Firefox"}

// ClassifyOrigin decides browser vs app once, at flow start. The explicit web
// override always wins; otherwise the user agent must carry a browser marker
// and must not identify as an Expo embedded client. The result rides in the
// OAuth state so the same answer is used at callback time.
func ClassifyOrigin(webOverride bool, userAgent string) Origin {
	if webOverride {
		return OriginBrowser
	}

	if strings.Contains(userAgent, "Expo") {
		return OriginApp
	}

	for _, marker := range browserMarkers {
		if strings.Contains(userAgent, marker) {
			return OriginBrowser
		}
	}

	return OriginApp
}

// OriginFromState replays the classification stored at flow start.
func OriginFromState(state *OAuthState) Origin {
	if state == nil {
		return OriginApp
	}
	return ClassifyOrigin(state.WebOverride, state.UserAgent)
}

package social

import (
	"context"
	"net/url"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"

	"github.com/tourgether/tripauth"
)

// Bridge completes external-identity logins: it drives the provider round
// trip, maps the provider profile onto a local account, establishes the
// session, and delivers credentials according to the client origin.
type Bridge struct {
	providers      map[string]SocialProvider
	states         StateManager
	repo           tripauth.RepositoryManager
	coordinator    *tripauth.SessionCoordinator
	auther         *tripauth.RouteAuthenticator
	webCallbackURL string
	mobileScheme   string
	logger         tripauth.Logger
}

// BridgeOption customizes the bridge.
type BridgeOption func(*Bridge)

// WithProvider registers a social provider under its own name.
func WithProvider(p SocialProvider) BridgeOption {
	return func(b *Bridge) {
		if p != nil {
			b.providers[p.Name()] = p
		}
	}
}

// WithBridgeLogger overrides the default logger.
func WithBridgeLogger(logger tripauth.Logger) BridgeOption {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBridge wires the bridge. webCallbackURL is the browser frontend base
// URL; mobileScheme is the app's deep link scheme without "://".
func NewBridge(
	repo tripauth.RepositoryManager,
	coordinator *tripauth.SessionCoordinator,
	auther *tripauth.RouteAuthenticator,
	states StateManager,
	webCallbackURL, mobileScheme string,
	opts ...BridgeOption,
) *Bridge {
	b := &Bridge{
		providers:      map[string]SocialProvider{},
		states:         states,
		repo:           repo,
		coordinator:    coordinator,
		auther:         auther,
		webCallbackURL: strings.TrimRight(webCallbackURL, "/"),
		mobileScheme:   mobileScheme,
		logger:         tripauth.NewDefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	return b
}

// RegisterRoutes mounts the provider round-trip endpoints.
func (b *Bridge) RegisterRoutes(app RouteRegistrar) {
	app.Get("/auth/social/:provider", b.Begin)
	app.Get("/auth/social/:provider/callback", b.Callback)
}

// RouteRegistrar captures the router methods used by the bridge.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// Begin classifies the client origin, seals it into the OAuth state, and
// redirects to the provider consent page. Classification happens here, not at
// callback time, because the callback request is issued by the provider and
// its user agent says nothing about the client.
func (b *Bridge) Begin(ctx router.Context) error {
	provider, ok := b.providers[ctx.Param("provider", "")]
	if !ok {
		return b.errorRedirect(ctx, ErrProviderNotFound)
	}

	webOverride := ctx.Query("web") == "true"
	userAgent := ctx.GetString("User-Agent", "")

	state := &OAuthState{
		Provider:    provider.Name(),
		WebOverride: webOverride,
		UserAgent:   userAgent,
		RedirectURL: ctx.Query("redirect_url"),
	}

	token, err := b.states.Encode(state)
	if err != nil {
		return b.errorRedirect(ctx, err)
	}

	return ctx.Redirect(provider.AuthCodeURL(token), router.StatusFound)
}

// Callback finishes the provider round trip and completes the login.
func (b *Bridge) Callback(ctx router.Context) error {
	state, err := b.states.Decode(ctx.Query("state"))
	if err != nil {
		return b.errorRedirect(ctx, err)
	}

	origin := OriginFromState(state)

	if errCode := ctx.Query("error"); errCode != "" {
		desc := ctx.Query("error_description")
		if desc == "" {
			desc = errCode
		}
		return b.errorRedirect(ctx, errors.New(desc, errors.CategoryAuth))
	}

	provider, ok := b.providers[state.Provider]
	if !ok || provider.Name() != ctx.Param("provider", "") {
		return b.errorRedirect(ctx, ErrProviderNotFound)
	}

	token, err := provider.Exchange(ctx.Context(), ctx.Query("code"))
	if err != nil {
		b.logger.Error("token exchange failed", "provider", state.Provider, "error", err)
		return b.errorRedirect(ctx, ErrTokenExchangeFailed)
	}

	profile, err := provider.UserInfo(ctx.Context(), token)
	if err != nil {
		b.logger.Error("user info fetch failed", "provider", state.Provider, "error", err)
		return b.errorRedirect(ctx, ErrUserInfoFailed)
	}

	return b.CompleteLogin(ctx, profile, origin)
}

// CompleteLogin maps the provider profile onto a local account, establishes
// the session, and hands credentials back the way the origin expects:
// browsers get HttpOnly cookies plus a frontend redirect carrying only
// non-secret hints, the app gets the tokens as deep-link query parameters.
func (b *Bridge) CompleteLogin(ctx router.Context, profile *SocialProfile, origin Origin) error {
	if profile == nil || profile.Email == "" {
		return b.errorRedirect(ctx, ErrEmailMissing)
	}

	account, created, err := b.repo.Accounts().GetOrCreateByEmail(ctx.Context(), &tripauth.Account{
		Email:      profile.Email,
		Name:       profile.Name,
		Picture:    profile.AvatarURL,
		Provider:   profile.Provider,
		ProviderID: profile.ProviderUserID,
	})
	if err != nil {
		b.logger.Error("account resolution failed", "email", profile.Email, "error", err)
		return b.errorRedirect(ctx, ErrLoginFailed)
	}

	if created {
		if err := b.seedProfile(ctx.Context(), account); err != nil {
			b.logger.Warn("placeholder profile creation failed", "account", account.ID, "error", err)
		}
	}

	creds, err := b.coordinator.Login(ctx.Context(), account)
	if err != nil {
		b.logger.Error("session establishment failed", "account", account.ID, "error", err)
		return b.errorRedirect(ctx, ErrLoginFailed)
	}

	needPhone := account.NeedsPhoneVerification()

	if origin == OriginBrowser {
		b.auther.DeliverCredentials(ctx, creds)

		q := url.Values{}
		q.Set("userId", account.ID.String())
		q.Set("needPhoneVerification", boolParam(needPhone))

		return ctx.Redirect(b.webCallbackURL+"/auth/socialCallBack?"+q.Encode(), router.StatusFound)
	}

	q := url.Values{}
	q.Set("accessToken", creds.AccessToken)
	q.Set("refreshToken", creds.RefreshToken)
	q.Set("userId", account.ID.String())
	q.Set("needPhoneVerification", boolParam(needPhone))

	target := b.mobileScheme + "://auth-callback"
	if needPhone {
		target = b.mobileScheme + "://auth/VerifyPhone"
	}

	return ctx.Redirect(target+"?"+q.Encode(), router.StatusFound)
}

// seedProfile gives a brand new account its placeholder nickname so the
// profile row exists before the first edit. Nickname collisions retry with a
// fresh random suffix.
func (b *Bridge) seedProfile(ctx context.Context, account *tripauth.Account) error {
	nickname := tripauth.PlaceholderNickname(account.ID)

	for attempt := 0; attempt < 3; attempt++ {
		taken, err := b.repo.Profiles().NicknameTaken(ctx, nickname)
		if err != nil {
			return err
		}
		if !taken {
			break
		}
		nickname = tripauth.PlaceholderNickname(uuid.New())
	}

	_, err := b.repo.Profiles().Save(ctx, &tripauth.Profile{
		AccountID: account.ID,
		Nickname:  nickname,
	})
	return err
}

// errorRedirect sends the failure to the frontend error page as a redirect
// carrying only a human-readable message. Internals never leak into the query
// string. Every origin lands on the web error page; the app opens it in a
// browser view.
func (b *Bridge) errorRedirect(ctx router.Context, err error) error {
	message := "social login failed"
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Message != "" {
		message = richErr.Message
	} else if err != nil && err.Error() != "" {
		message = err.Error()
	}

	q := url.Values{}
	q.Set("message", message)

	return ctx.Redirect(b.webCallbackURL+"/auth/error?"+q.Encode(), router.StatusFound)
}

func boolParam(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

package tripauth

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// DefaultAccessCookieName is the cookie carrying the access token.
const DefaultAccessCookieName = "access_token"

// DefaultSessionCookieName is the cookie carrying the opaque session id.
const DefaultSessionCookieName = "session_id"

const bearerScheme = "Bearer"

// RouteAuthenticator binds the session coordinator to go-router transport:
// it reads credentials off requests, writes auth cookies, and exposes the
// middleware guarding protected routes.
type RouteAuthenticator struct {
	coordinator       *SessionCoordinator
	accessCookieName  string
	sessionCookieName string
	accessTTL         time.Duration
	refreshTTL        time.Duration
	Logger            Logger
	ErrorHandler      func(c router.Context, err error) error
}

// NewRouteAuthenticator wires the coordinator into HTTP transport. Cookie
// lifetimes follow the token TTLs so cookie decay and token expiry line up.
func NewRouteAuthenticator(coordinator *SessionCoordinator, cfg Config) (*RouteAuthenticator, error) {
	if coordinator == nil {
		return nil, errors.New("route authenticator requires a coordinator", errors.CategoryBadInput)
	}

	a := &RouteAuthenticator{
		coordinator:       coordinator,
		accessCookieName:  DefaultAccessCookieName,
		sessionCookieName: DefaultSessionCookieName,
		accessTTL:         coordinator.tokens.AccessTTL(),
		refreshTTL:        coordinator.tokens.RefreshTTL(),
		Logger:            defLogger{},
	}

	if cfg != nil {
		if name := cfg.GetAccessCookieName(); name != "" {
			a.accessCookieName = name
		}
		if name := cfg.GetSessionCookieName(); name != "" {
			a.sessionCookieName = name
		}
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// Carrier adapts a request context into the coordinator's credential view.
func (a *RouteAuthenticator) Carrier(ctx router.Context) CredentialCarrier {
	return &routerCarrier{auth: a, ctx: ctx}
}

// DeliverCredentials writes a freshly minted credential pair as browser
// cookies. The raw refresh token never travels to web clients; it stays in
// the store behind the session id.
func (a *RouteAuthenticator) DeliverCredentials(ctx router.Context, creds *Credentials) {
	carrier := a.Carrier(ctx)
	carrier.SetAccessCookie(creds.AccessToken)
	carrier.SetSessionCookie(creds.SessionID)
}

// ProtectedRoute authenticates every request, running the silent refresh when
// the access token alone does not suffice, and rejects with the error handler
// on failure. The resolved identity is attached to the request context.
func (a *RouteAuthenticator) ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = a.defaultErrHandler
	}
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			claims, err := a.coordinator.Authenticate(ctx.Context(), a.Carrier(ctx))
			if err != nil {
				return errorHandler(ctx, err)
			}

			identity := claims.Identity("")
			ctx.Locals(IdentityLocalsKey, identity)
			ctx.SetContext(WithIdentity(ctx.Context(), identity))

			return hf(ctx)
		}
	}
}

// OptionalRoute resolves an identity when credentials are present but lets
// anonymous requests through untouched.
func (a *RouteAuthenticator) OptionalRoute() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			claims, err := a.coordinator.Authenticate(ctx.Context(), a.Carrier(ctx))
			if err == nil {
				identity := claims.Identity("")
				ctx.Locals(IdentityLocalsKey, identity)
				ctx.SetContext(WithIdentity(ctx.Context(), identity))
			}
			return hf(ctx)
		}
	}
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "authentication required").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Rejecting unauthenticated request",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	return c.JSON(richErr.Code, map[string]any{
		"error": richErr.Message,
		"code":  richErr.TextCode,
	})
}

// routerCarrier is the CredentialCarrier over a live go-router request.
type routerCarrier struct {
	auth *RouteAuthenticator
	ctx  router.Context
}

// AccessToken prefers the Authorization bearer header and falls back to the
// access cookie, so app and browser clients share one resolution path.
func (rc *routerCarrier) AccessToken() string {
	header := rc.ctx.GetString(router.HeaderAuthorization, "")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], bearerScheme) {
			return strings.TrimSpace(parts[1])
		}
	}
	return rc.ctx.Cookies(rc.auth.accessCookieName)
}

func (rc *routerCarrier) SessionID() string {
	return rc.ctx.Cookies(rc.auth.sessionCookieName)
}

func (rc *routerCarrier) SetAccessCookie(token string) {
	rc.setCookie(rc.auth.accessCookieName, token, rc.auth.accessTTL)
}

func (rc *routerCarrier) SetSessionCookie(sessionID string) {
	rc.setCookie(rc.auth.sessionCookieName, sessionID, rc.auth.refreshTTL)
}

func (rc *routerCarrier) ClearAuthCookies() {
	rc.cookieDel(rc.auth.accessCookieName)
	rc.cookieDel(rc.auth.sessionCookieName)
}

func (rc *routerCarrier) setCookie(name, val string, duration time.Duration) {
	rc.ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Path:     "/",
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (rc *routerCarrier) cookieDel(name string) {
	rc.ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

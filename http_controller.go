package tripauth

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the auth surface on the router. Status, refresh,
// and logout work for anonymous callers; the phone verification pair requires
// an authenticated identity.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	protected := controller.Auther.ProtectedRoute(nil)

	app.Get(controller.Routes.Status, controller.AuthStatus).
		SetName("auth-status.get")

	app.Post(controller.Routes.Refresh, controller.Refresh).
		SetName("auth-refresh.post")

	app.Post(controller.Routes.Logout, controller.LogOut).
		SetName("auth-logout.post")

	app.Post(controller.Routes.PhoneRequest, protected(controller.PhoneRequest)).
		SetName("phone-request.post")

	app.Post(controller.Routes.PhoneVerify, protected(controller.PhoneVerify)).
		SetName("phone-verify.post")
}

type AuthControllerRoutes struct {
	Status       string
	Refresh      string
	Logout       string
	PhoneRequest string
	PhoneVerify  string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Auther       *RouteAuthenticator
	Coordinator  *SessionCoordinator
	Verifier     *Verifier
	Messenger    Messenger
	StateMachine AccountStateMachine
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		if auther != nil {
			c.Coordinator = auther.coordinator
		}
		return c
	}
}

func WithControllerVerifier(verifier *Verifier) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Verifier = verifier
		return c
	}
}

func WithControllerMessenger(m Messenger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if m != nil {
			c.Messenger = m
		}
		return c
	}
}

func WithControllerStateMachine(sm AccountStateMachine) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.StateMachine = sm
		return c
	}
}

func WithControllerErrorHandler(handler router.ErrorHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if handler != nil {
			c.ErrorHandler = handler
		}
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Status:       "/auth/status",
			Refresh:      "/auth/refresh",
			Logout:       "/auth/logout",
			PhoneRequest: "/phone/request",
			PhoneVerify:  "/phone/verify",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	if c.Verifier == nil {
		panic("Missing Verifier in auth controller...")
	}

	if c.Messenger == nil {
		c.Messenger = noopMessenger{}
	}

	if c.StateMachine == nil {
		c.StateMachine = NewAccountStateMachine(c.Repo.Accounts())
	}

	return c
}

// AuthStatus answers the app's startup poll. A caller without credentials
// gets authenticated=false with 200, never 401, so the client can branch
// without error handling.
func (a *AuthController) AuthStatus(ctx router.Context) error {
	status, err := a.Coordinator.RefreshAuthStatus(ctx.Context(), a.Auther.Carrier(ctx))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, status)
}

// Refresh forces the silent refresh cycle and reports the outcome. The new
// access token rides back as a cookie; the body only confirms the state.
func (a *AuthController) Refresh(ctx router.Context) error {
	claims, err := a.Coordinator.Authenticate(ctx.Context(), a.Auther.Carrier(ctx))
	if err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]any{
			"authenticated": false,
			"code":          TextCodeUnauthenticated,
		})
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"authenticated": true,
		"email":         claims.Subject(),
	})
}

func (a *AuthController) LogOut(ctx router.Context) error {
	if err := a.Coordinator.Logout(ctx.Context(), a.Auther.Carrier(ctx)); err != nil {
		a.Logger.Warn("logout completed with store error", "error", err)
	}
	return ctx.JSON(router.StatusOK, map[string]any{
		"logged_out": true,
	})
}

// PhoneRequestPayload asks for a verification code.
type PhoneRequestPayload struct {
	PhoneNumber string `form:"phone_number" json:"phone_number"`
}

// Validate will run validation rules
func (r PhoneRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.PhoneNumber,
			validation.Required,
			validation.Length(8, 20),
		),
	)
}

func (a *AuthController) PhoneRequest(ctx router.Context) error {
	payload := new(PhoneRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "invalid request body"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": err.Error(),
		})
	}

	if a.Debug {
		a.Logger.Debug("phone verification request %s", print.MaybePrettyJSON(payload))
	}

	var resp *PhoneVerificationRequestResponse
	req := PhoneVerificationRequestMessage{
		PhoneNumber: payload.PhoneNumber,
		OnResponse: func(r *PhoneVerificationRequestResponse) {
			resp = r
		},
	}

	requestCode := NewPhoneVerificationRequestHandler(a.Verifier).
		WithMessenger(a.Messenger).
		WithLogger(a.Logger)

	if err := requestCode.Execute(ctx.Context(), req); err != nil {
		if retryAfter := RetryAfterSeconds(err); retryAfter > 0 {
			return ctx.JSON(http.StatusTooManyRequests, map[string]any{
				"error":               "verification code requested too soon",
				"code":                TextCodeRateLimited,
				"retry_after_seconds": retryAfter,
			})
		}
		return a.ErrorHandler(ctx, err)
	}

	body := map[string]any{
		"phone_number":       resp.PhoneNumber,
		"expires_in_seconds": resp.ExpiresInSeconds,
	}
	if a.Debug {
		body["code"] = resp.Code
	}

	return ctx.JSON(router.StatusOK, body)
}

// PhoneVerifyPayload submits the received code.
type PhoneVerifyPayload struct {
	PhoneNumber string `form:"phone_number" json:"phone_number"`
	Code        string `form:"code" json:"code"`
}

// Validate will run validation rules
func (r PhoneVerifyPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.PhoneNumber,
			validation.Required,
			validation.Length(8, 20),
		),
		validation.Field(
			&r.Code,
			validation.Required,
			validation.Length(6, 6),
			is.Digit,
		),
	)
}

// PhoneVerify checks the code, marks the account verified under the
// normalized number, and re-runs activation. Fresh credentials are minted so
// role or status changes land in the access token immediately.
func (a *AuthController) PhoneVerify(ctx router.Context) error {
	identity, ok := RouterIdentity(ctx)
	if !ok {
		return ctx.JSON(router.StatusUnauthorized, map[string]any{
			"error": "authentication required",
			"code":  TextCodeUnauthenticated,
		})
	}

	payload := new(PhoneVerifyPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "invalid request body"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": err.Error(),
		})
	}

	if _, err := a.Verifier.Check(ctx.Context(), payload.PhoneNumber, payload.Code); err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) && richErr.Category == errors.CategoryValidation {
			return ctx.JSON(router.StatusBadRequest, map[string]any{
				"error": richErr.Message,
				"code":  richErr.TextCode,
			})
		}
		return a.ErrorHandler(ctx, err)
	}

	account, err := a.Repo.Accounts().ByEmail(ctx.Context(), identity.Email())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	formatted := FormatPhoneNumber(payload.PhoneNumber, a.Verifier.countryCode)
	account, err = a.Repo.Accounts().MarkPhoneVerified(ctx.Context(), account, formatted)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	account, err = a.activate(ctx, account)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	creds, err := a.Coordinator.Login(ctx.Context(), account)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}
	a.Auther.DeliverCredentials(ctx, creds)

	return ctx.JSON(router.StatusOK, map[string]any{
		"verified":                true,
		"status":                  account.Status,
		"need_phone_verification": account.NeedsPhoneVerification(),
	})
}

func (a *AuthController) activate(ctx router.Context, account *Account) (*Account, error) {
	var profile *Profile
	if p, err := a.Repo.Profiles().ByAccount(ctx.Context(), account.ID); err == nil {
		profile = p
	}

	actor := ActorRef{ID: account.ID.String(), Type: "account"}
	return a.StateMachine.Activate(ctx.Context(), actor, account, profile)
}

func defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	code := richErr.Code
	if code == 0 {
		code = router.StatusInternalServerError
	}

	return c.JSON(code, map[string]any{
		"error": richErr.Message,
		"code":  richErr.TextCode,
	})
}

package tripauth

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/goliatone/go-errors"
)

const (
	codeKeyPrefix   = "PHONE:"
	markerKeyPrefix = "PHONE_RL:"
)

// DefaultCodeTTL is how long an issued verification code stays valid.
const DefaultCodeTTL = 3 * time.Minute

// DefaultResendWindow is how long a phone number is locked out from
// requesting another code.
const DefaultResendWindow = 30 * time.Second

// Challenge is the result of a successful code request.
type Challenge struct {
	PhoneNumber      string `json:"phone_number"`
	Code             string `json:"code"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// Verifier generates, stores, rate-limits, and checks one-time phone
// verification codes against a shared TTL cache. Delivery is not its job;
// PhoneVerificationRequestHandler dispatches the code out of band.
type Verifier struct {
	store        CodeStore
	codeTTL      time.Duration
	resendWindow time.Duration
	countryCode  string
	logger       Logger
}

// VerifierOption customizes the verifier.
type VerifierOption func(*Verifier)

// WithVerifierTTLs overrides the code validity and resend lockout windows.
func WithVerifierTTLs(codeTTL, resendWindow time.Duration) VerifierOption {
	return func(v *Verifier) {
		if codeTTL > 0 {
			v.codeTTL = codeTTL
		}
		if resendWindow > 0 {
			v.resendWindow = resendWindow
		}
	}
}

// WithVerifierCountryCode overrides the country calling code used during
// normalization.
func WithVerifierCountryCode(cc string) VerifierOption {
	return func(v *Verifier) {
		if cc != "" {
			v.countryCode = cc
		}
	}
}

// WithVerifierLogger overrides the default logger.
func WithVerifierLogger(logger Logger) VerifierOption {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewVerifier creates a verification code service over the given store.
func NewVerifier(store CodeStore, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		store:        store,
		codeTTL:      DefaultCodeTTL,
		resendWindow: DefaultResendWindow,
		countryCode:  DefaultCountryCallingCode,
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	return v
}

// Request issues a fresh 6-digit code for the phone number and stores it with
// the code TTL. The SetNX on the rate-limit marker is the gate: when two
// concurrent requests race, at most one wins the right to generate a code;
// the loser gets ErrRateLimited with the marker's remaining TTL as the retry
// hint.
func (v *Verifier) Request(ctx context.Context, phoneNumber string) (*Challenge, error) {
	formatted := FormatPhoneNumber(phoneNumber, v.countryCode)
	if !PlausiblePhoneNumber(formatted) {
		v.logger.Warn("verification request for implausible number", "phone", formatted)
	}

	ok, err := v.store.SetNX(ctx, markerKeyPrefix+formatted, "1", v.resendWindow)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to reserve verification slot")
	}
	if !ok {
		retryAfter := int(v.resendWindow / time.Second)
		if ttl, err := v.store.TTL(ctx, markerKeyPrefix+formatted); err == nil && ttl > 0 {
			retryAfter = int((ttl + time.Second - 1) / time.Second)
		}
		return nil, ErrRateLimited.WithMetadata(map[string]any{
			"retry_after_seconds": retryAfter,
		})
	}

	code, err := generateCode()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate verification code")
	}

	if err := v.store.Set(ctx, codeKeyPrefix+formatted, code, v.codeTTL); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to store verification code")
	}

	return &Challenge{
		PhoneNumber:      formatted,
		Code:             code,
		ExpiresInSeconds: int(v.codeTTL / time.Second),
	}, nil
}

// Check compares the submitted code against the stored challenge. Comparison
// is exact string match. On success both the challenge and the rate-limit
// marker are deleted synchronously, so the code is consumed exactly once and
// a fresh request cycle can start immediately.
func (v *Verifier) Check(ctx context.Context, phoneNumber, code string) (bool, error) {
	formatted := FormatPhoneNumber(phoneNumber, v.countryCode)

	stored, err := v.store.Get(ctx, codeKeyPrefix+formatted)
	if err != nil {
		if errors.IsNotFound(err) {
			return false, ErrCodeExpired
		}
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to load verification code")
	}

	if stored != code {
		return false, ErrCodeMismatch
	}

	if err := v.store.Del(ctx, codeKeyPrefix+formatted, markerKeyPrefix+formatted); err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to consume verification code")
	}

	return true, nil
}

// generateCode draws 6 decimal digits uniformly from a cryptographically
// strong source, preserving leading zeros.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}

	code := n.String()
	for len(code) < 6 {
		code = "0" + code
	}
	return code, nil
}

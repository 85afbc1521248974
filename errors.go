package tripauth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredential = "INVALID_CREDENTIAL"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
	TextCodeSessionNotFound   = "SESSION_NOT_FOUND"
	TextCodeUnauthenticated   = "UNAUTHENTICATED"
	TextCodeRateLimited       = "VERIFICATION_RATE_LIMITED"
	TextCodeCodeMismatch      = "VERIFICATION_CODE_MISMATCH"
	TextCodeCodeExpired       = "VERIFICATION_CODE_EXPIRED"
	TextCodeAccountNotFound   = "ACCOUNT_NOT_FOUND"
)

// ErrInvalidCredential covers bad signatures and any structural defect. It
// always fails closed; nothing downstream retries beyond the one silent
// refresh attempt.
var ErrInvalidCredential = errors.New("invalid credential", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredential).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a credential fails only on expiry.
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for any non-expiry validation failure.
var ErrTokenMalformed = errors.New("token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrSessionNotFound is a session store miss. Callers treat it exactly like
// ErrInvalidCredential; revocation here is deletion, not a blacklist.
var ErrSessionNotFound = errors.New("session not found", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthenticated is the single failure the coordinator surfaces to
// request handling. Store outages degrade to this as well: fail closed.
var ErrUnauthenticated = errors.New("unauthenticated", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrRateLimited is returned when a verification code is requested before the
// rate-limit marker expired. Metadata carries retry_after_seconds.
var ErrRateLimited = errors.New("verification code requested too soon", errors.CategoryRateLimit).
	WithTextCode(TextCodeRateLimited)

// ErrCodeMismatch means the submitted verification code does not match the
// stored challenge. The caller must request a fresh code.
var ErrCodeMismatch = errors.New("verification code mismatch", errors.CategoryValidation).
	WithTextCode(TextCodeCodeMismatch).
	WithCode(errors.CodeBadRequest)

// ErrCodeExpired means no challenge exists for the phone number anymore.
var ErrCodeExpired = errors.New("verification code expired", errors.CategoryValidation).
	WithTextCode(TextCodeCodeExpired).
	WithCode(errors.CodeBadRequest)

// ErrAccountNotFound is a login-time inconsistency between the external
// identity and the local record.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeNotFound)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// RetryAfterSeconds extracts the retry hint from a rate-limit error, zero when
// the error is not a rate limit.
func RetryAfterSeconds(err error) int {
	var richErr *errors.Error
	if !errors.As(err, &richErr) || richErr.TextCode != TextCodeRateLimited {
		return 0
	}
	if v, ok := richErr.Metadata["retry_after_seconds"].(int); ok {
		return v
	}
	return 0
}

package service

import (
	"errors"
	"fmt"
	"time"
)

// Failure taxonomy surfaced to the HTTP layer. Authentication failures are
// deliberately coarse: user-not-found, wrong password and deactivated
// accounts all collapse into ErrInvalidCredentials so responses never leak
// whether an email is registered. The signup duplicate check is the one
// deliberate exception.
var (
	ErrInvalidCredentials    = errors.New("invalid_credentials")
	ErrEmailNotVerified      = errors.New("email_not_verified")
	ErrDuplicateEmail        = errors.New("duplicate_email")
	ErrDuplicateUsername     = errors.New("duplicate_username")
	ErrExpired               = errors.New("expired_token")
	ErrReused                = errors.New("reused_token") // theft signal, distinct from ordinary expiry
	ErrNotFound              = errors.New("not_found")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidOrExpiredToken = errors.New("invalid_or_expired_token")
	ErrThrottled             = errors.New("throttled")
)

// ThrottledError carries the retry-after hint alongside ErrThrottled.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("throttled: retry after %s", e.RetryAfter)
}

// Is makes errors.Is(err, ErrThrottled) work on the wrapped form.
func (e *ThrottledError) Is(target error) bool { return target == ErrThrottled }

package auth

import (
	stderrors "errors"
	"net/http"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeMissingAuthorization = "MISSING_AUTHORIZATION"
	TextCodeMalformedHeader      = "MALFORMED_AUTHORIZATION_HEADER"
	TextCodeInvalidToken         = "INVALID_TOKEN"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeInsufficientRole     = "INSUFFICIENT_ROLE"
	TextCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	TextCodeDuplicateUsername    = "DUPLICATE_USERNAME"
	TextCodeDuplicateEmail       = "DUPLICATE_EMAIL"
	TextCodeUnknownRole          = "UNKNOWN_ROLE"
	TextCodeEmptySecret          = "EMPTY_SECRET"
	TextCodeSecretTooLong        = "SECRET_TOO_LONG"
	TextCodeBlankIdentity        = "BLANK_IDENTITY"
	TextCodeUserNotFound         = "USER_NOT_FOUND"
)

// ErrMissingAuthorization the request carried no Authorization header
var ErrMissingAuthorization = errors.New("Authorization header missing", errors.CategoryAuth).
	WithTextCode(TextCodeMissingAuthorization).
	WithCode(errors.CodeUnauthorized)

// ErrMalformedHeader the Authorization header is not "Bearer <token>"
var ErrMalformedHeader = errors.New("Invalid authorization header format", errors.CategoryAuth).
	WithTextCode(TextCodeMalformedHeader).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidToken signature or encoding failed
var ErrInvalidToken = errors.New("Invalid token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired token exp is in the past
var ErrTokenExpired = errors.New("Token has expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrInsufficientRole the verified claims lack a required role
var ErrInsufficientRole = errors.New("Admin access required", errors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientRole).
	WithCode(errors.CodeForbidden)

// ErrInvalidCredentials unknown username or wrong password, deliberately
// indistinguishable
var ErrInvalidCredentials = errors.New("Invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrDuplicateUsername username is taken
var ErrDuplicateUsername = errors.New("Username already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateUsername).
	WithCode(errors.CodeBadRequest)

// ErrDuplicateEmail email is taken
var ErrDuplicateEmail = errors.New("Email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeBadRequest)

// ErrUnknownRole a role label outside the closed set
var ErrUnknownRole = errors.New("Unknown role", errors.CategoryValidation).
	WithTextCode(TextCodeUnknownRole).
	WithCode(http.StatusUnprocessableEntity)

// ErrNoEmptyString secrets must not be empty
var ErrNoEmptyString = errors.New("Secret must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptySecret).
	WithCode(http.StatusUnprocessableEntity)

// ErrPasswordTooLong bcrypt only reads the first MaxSecretBytes bytes
var ErrPasswordTooLong = errors.New("Password must be at most 72 bytes", errors.CategoryValidation).
	WithTextCode(TextCodeSecretTooLong).
	WithCode(http.StatusUnprocessableEntity)

// ErrBlankIdentity username or email is empty once surrounding whitespace is
// removed
var ErrBlankIdentity = errors.New("Username and email must not be blank", errors.CategoryValidation).
	WithTextCode(TextCodeBlankIdentity).
	WithCode(http.StatusUnprocessableEntity)

// ErrUserNotFound lookup by username, email or id found nothing
var ErrUserNotFound = errors.New("User not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// HasTextCode reports whether err wraps a rich error with the given text code
func HasTextCode(err error, textCode string) bool {
	for err != nil {
		var richErr *errors.Error
		if !stderrors.As(err, &richErr) {
			return false
		}
		if richErr.TextCode == textCode {
			return true
		}
		err = richErr.Source
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return HasTextCode(err, TextCodeTokenExpired)
}

// IsInvalidTokenError will check for bad signatures or undecodable tokens
func IsInvalidTokenError(err error) bool {
	return HasTextCode(err, TextCodeInvalidToken)
}

// IsInsufficientRoleError will check for failed role gates
func IsInsufficientRoleError(err error) bool {
	return HasTextCode(err, TextCodeInsufficientRole)
}

package auth

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// ErrAuthenticationNotFound signals the Authentication referenced by a
// token or login attempt no longer exists.
var ErrAuthenticationNotFound = goerrors.New("authentication not found", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("AUTHENTICATION_NOT_FOUND")

// ErrUnauthenticated is the anonymous outcome the lifecycle manager
// collapses every validation fault into.
var ErrUnauthenticated = goerrors.New("unauthenticated", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("UNAUTHENTICATED")

// ErrTokenExpired is returned for tokens past their expiry
var ErrTokenExpired = goerrors.New("authentication token expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("TOKEN_EXPIRED")

// ErrTokenMalformed covers tokens that fail to parse or verify
var ErrTokenMalformed = goerrors.New("invalid authentication token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("TOKEN_MALFORMED")

// ErrLoginFailed is the single message login exposes externally,
// whatever the internal cause. Credential enumeration must not be
// observable from the outside.
var ErrLoginFailed = goerrors.New("username or password is not correct", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("LOGIN_FAILED")

// ErrCannotRegister is the single external message for any register
// failure; the specific cause stays in the logs and the audit trail.
var ErrCannotRegister = goerrors.New("we cannot register an account for you", goerrors.CategoryValidation).
	WithTextCode("REGISTER_FAILED")

// ErrInviteTokenInvalid means the invite token does not exist
var ErrInviteTokenInvalid = goerrors.New("invalid invitation token", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode("INVITE_TOKEN_INVALID")

// ErrInviteTokenUsed means the token was already consumed
var ErrInviteTokenUsed = goerrors.New("invitation token already used", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode("INVITE_TOKEN_USED")

// ErrInviteTokenMismatch means the token is bound to another username
var ErrInviteTokenMismatch = goerrors.New("invitation token not matched for user", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode("INVITE_TOKEN_MISMATCH")

// ErrPersonNotInvited means the person is absent or already redeemed
// their invitation.
var ErrPersonNotInvited = goerrors.New("person not invited", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode("PERSON_NOT_INVITED")

// ErrSystemNotConfigured means no PartyGroupSystem covers the target
// system for the caller.
var ErrSystemNotConfigured = goerrors.New("system not setup for user", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode("SYSTEM_NOT_CONFIGURED")

// ErrEntityNotSupported guards the resolver dispatch table
var ErrEntityNotSupported = goerrors.New("entity type not implemented", goerrors.CategoryBadInput).
	WithTextCode("ENTITY_NOT_SUPPORTED")

// IsNotFound reports whether err is a not-found style failure from
// either the error taxonomy or the repository layer.
func IsNotFound(err error) bool {
	return goerrors.IsNotFound(err) || repository.IsRecordNotFound(err)
}

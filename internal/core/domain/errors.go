package domain

import "errors"

// Error kinds. Every domain error wraps exactly one of them so the transport
// layer can pick a status code with errors.Is.
var (
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
)

// Store-level errors.
var (
	ErrUserExists   = &Error{Kind: ErrConflict, Message: "User with this email already exists"}
	ErrUserNotFound = &Error{Kind: ErrNotFound, Message: "User not found"}
)

// Session errors returned by the service layer.
var (
	ErrInvalidCredentials   = &Error{Kind: ErrUnauthorized, Message: "Invalid email or password"}
	ErrInvalidRefreshToken  = &Error{Kind: ErrUnauthorized, Message: "Invalid refresh token"}
	ErrExpiredRefreshToken  = &Error{Kind: ErrUnauthorized, Message: "Invalid or expired refresh token"}
	ErrMissingRefreshToken  = &Error{Kind: ErrUnauthorized, Message: "Refresh token not provided"}
	ErrMissingAccessToken   = &Error{Kind: ErrUnauthorized, Message: "No token provided"}
	ErrInvalidAccessToken   = &Error{Kind: ErrUnauthorized, Message: "Invalid or expired token"}
	ErrMissingAuthenticated = &Error{Kind: ErrUnauthorized, Message: "Authentication required"}
)

// Token verification failures. Callers may tell them apart; the HTTP layer
// collapses all of them into ErrInvalidAccessToken.
var (
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
)

// Error is a domain failure with a client-safe message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// NewBadRequest builds a validation failure with the given message.
func NewBadRequest(msg string) *Error {
	return &Error{Kind: ErrBadRequest, Message: msg}
}

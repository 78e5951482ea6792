package auth

import "errors"

var (
	// ErrInvalidToken covers unknown tokens and tokens whose owner no longer
	// exists or is blocked. Callers translate it to 401.
	ErrInvalidToken = errors.New("invalid or unknown refresh token")

	// ErrTokenExpired is returned for a known token past its expiry.
	ErrTokenExpired = errors.New("refresh token expired")

	// ErrTokenReused is returned when an already-consumed token is presented
	// again. By the time the caller sees it, every active token in the same
	// family has been revoked.
	ErrTokenReused = errors.New("refresh token reuse detected")

	// ErrForbidden is returned when a caller tries to revoke a token owned by
	// a different user.
	ErrForbidden = errors.New("token belongs to another user")
)

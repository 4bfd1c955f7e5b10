package model

import "errors"

// Error taxonomy shared by the prefix cache, the store gateway and the
// reaction-role engine. Callers match with errors.Is.
var (
	// ErrNoTenant means the event carried no guild context (e.g. a DM reaction).
	ErrNoTenant = errors.New("no tenant id")

	// ErrLockUnavailable means the store or a per-tenant lock could not be
	// acquired in time. Transient; the caller may retry.
	ErrLockUnavailable = errors.New("lock unavailable")

	// ErrStore wraps an underlying driver failure. Transient from the
	// caller's point of view; never shown to users verbatim.
	ErrStore = errors.New("store error")

	// ErrNoBinding means no reaction binding matched. Not logged as an error.
	ErrNoBinding = errors.New("no binding found")

	ErrMemberResolution = errors.New("member resolution failed")
	ErrRoleMutation     = errors.New("role mutation failed")

	ErrMalformedEmoji      = errors.New("malformed emoji")
	ErrMalformedRole       = errors.New("malformed role reference")
	ErrMalformedMessageRef = errors.New("malformed message reference")
	ErrInvalidPrefix       = errors.New("invalid prefix")
)

// IsTransient reports whether err is a retry-later store condition.
func IsTransient(err error) bool {
	return errors.Is(err, ErrLockUnavailable) || errors.Is(err, ErrStore)
}

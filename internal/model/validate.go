package model

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxPrefixLength bounds a tenant prefix, in runes.
const MaxPrefixLength = 32

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
// Err, when set, is the taxonomy sentinel the failure belongs to.
type FieldError struct {
	Field   string
	Message string
	Err     error
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the sentinels so errors.Is matches any failed field.
func (e *ValidationError) Unwrap() []error {
	var errs []error
	for _, fe := range e.Errors {
		if fe.Err != nil {
			errs = append(errs, fe.Err)
		}
	}
	return errs
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidatePrefix checks a prefix before it is written.
func ValidatePrefix(p string) error {
	switch {
	case strings.TrimSpace(p) == "":
		return fmt.Errorf("%w: is required", ErrInvalidPrefix)
	case strings.IndexFunc(p, unicode.IsSpace) >= 0:
		return fmt.Errorf("%w: must not contain whitespace", ErrInvalidPrefix)
	case len([]rune(p)) > MaxPrefixLength:
		return fmt.Errorf("%w: must be %d characters or fewer", ErrInvalidPrefix, MaxPrefixLength)
	}
	return nil
}

// ValidateBinding checks a ReactionBinding for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the binding is valid.
func ValidateBinding(b *ReactionBinding) error {
	var ve ValidationError

	if b.RoleID == 0 {
		ve.Errors = append(ve.Errors, FieldError{Field: "role_id", Message: "is required", Err: ErrMalformedRole})
	}
	if b.TenantID == 0 {
		ve.Errors = append(ve.Errors, FieldError{Field: "tenant_id", Message: "is required", Err: ErrNoTenant})
	}
	if b.MessageID == 0 {
		ve.Errors = append(ve.Errors, FieldError{Field: "message_id", Message: "is required", Err: ErrMalformedMessageRef})
	}

	// Custom emoji are matched on ID but still need a name to be seeded.
	if strings.TrimSpace(b.Emoji.Name) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "emoji", Message: "is required", Err: ErrMalformedEmoji})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

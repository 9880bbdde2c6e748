package services

import (
	"errors"
	"fmt"

	"github.com/isdelr/opensocial-be/internal/media"
)

// Error kinds. Handlers switch on these with errors.Is; anything else is an
// upstream failure.
var (
	ErrValidation   = errors.New("validation")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Error is a failure the client caused. Message is safe to show to them.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func validation(msg string) error   { return &Error{Kind: ErrValidation, Message: msg} }
func conflict(msg string) error     { return &Error{Kind: ErrConflict, Message: msg} }
func unauthorized(msg string) error { return &Error{Kind: ErrUnauthorized, Message: msg} }
func forbidden(msg string) error    { return &Error{Kind: ErrForbidden, Message: msg} }
func notFound(msg string) error     { return &Error{Kind: ErrNotFound, Message: msg} }

// uploadError turns a rejected file into a validation error and wraps the rest.
func uploadError(err error) error {
	switch {
	case errors.Is(err, media.ErrEmptyFile):
		return validation("Uploaded file is empty")
	case errors.Is(err, media.ErrUnsupportedMedia):
		return validation("Unsupported media type")
	}
	return fmt.Errorf("upload media: %w", err)
}

package errors

import "errors"

// Error kinds returned by the core. Callers match them with errors.Is.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("access forbidden")
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")
	ErrInvalidOTP       = errors.New("invalid or expired otp")
	ErrEmailNotVerified = errors.New("email not verified")
	ErrAuthFailed       = errors.New("invalid credentials")
)

// Infrastructure errors.
var (
	ErrInternalServer       = errors.New("internal server error")
	ErrConfigFileReadFailed = errors.New("failed to read config file")
	ErrConfigParseFailed    = errors.New("failed to parse config file")
	ErrConfigInvalidFormat  = errors.New("invalid config value format")
	ErrConfigMissing        = errors.New("required config value missing")
	ErrQueueClosed          = errors.New("queue is closed")
	ErrQueueFull            = errors.New("queue is full")
)

// Error carries a kind together with a message that is safe to show to the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

func NotFound(message string) error   { return New(ErrNotFound, message) }
func Forbidden(message string) error  { return New(ErrForbidden, message) }
func Validation(message string) error { return New(ErrValidation, message) }
func Conflict(message string) error   { return New(ErrConflict, message) }

// Kind returns the taxonomy kind of err, or nil for errors outside it.
func Kind(err error) error {
	for _, kind := range []error{
		ErrNotFound,
		ErrForbidden,
		ErrValidation,
		ErrConflict,
		ErrInvalidOTP,
		ErrEmailNotVerified,
		ErrAuthFailed,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Message returns the human-readable message of err.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Error()
	}
	return err.Error()
}

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

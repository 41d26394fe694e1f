package errx

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by where it was caught.
type Kind string

const (
	// KindValidation is a local precondition failure; no request was sent.
	KindValidation Kind = "validation"
	// KindTransport covers network failures and non-2xx responses.
	KindTransport Kind = "transport"
	// KindState is a command issued in a session state that does not allow it.
	KindState Kind = "state"
)

// User-facing messages. These are the only texts a caller should display.
const (
	LoginFailedMessage        = "Login failed"
	RegistrationFailedMessage = "Registration failed"
	RegistrationOKMessage     = "Registration successful! Please log in."
	LoadFailedMessage         = "Could not load documents"
	UploadFailedMessage       = "Upload failed"
	DeleteFailedMessage       = "Delete failed"
	LogoutFailedMessage       = "Logout failed"
	QueryFailedMessage        = "Query failed"
	NoDocumentMessage         = "Please select or upload a document."
	EmptyQueryMessage         = "Please enter a question."
	NoFileMessage             = "Please choose a file to upload."
)

var (
	// ErrSessionChecking is returned for commands issued before the startup probe resolved.
	ErrSessionChecking = errors.New("session check in progress")
	// ErrNotAuthenticated is returned for document and query commands without a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrStale marks a response discarded because a newer command superseded it.
	ErrStale = errors.New("response superseded")
	// ErrAlreadyAuthenticated is returned by Login while a session is live.
	ErrAlreadyAuthenticated = errors.New("already authenticated")
)

// AppError wraps an underlying error with a kind and a safe message.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// Validation creates a validation failure carrying only a message.
func Validation(message string, err error) *AppError {
	return New(KindValidation, message, err)
}

// Transport wraps a failed remote call with the operation's fixed message.
// A nil err yields a nil error interface.
func Transport(message string, err error) error {
	if err == nil {
		return nil
	}
	return New(KindTransport, message, err)
}

// Message returns the safe message of err, or fallback if err carries none.
func Message(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

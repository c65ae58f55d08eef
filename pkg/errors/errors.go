package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// ErrorCategory classifies failures surfaced to the interaction dispatcher.
type ErrorCategory string

const (
	// CategoryRouting means no handler matches the command, component or modal key.
	CategoryRouting ErrorCategory = "routing"
	// CategoryField means a required input is missing or has the wrong shape.
	CategoryField ErrorCategory = "field"
	// CategoryPrecondition means a domain rule rejected the operation.
	CategoryPrecondition ErrorCategory = "precondition"
	// CategoryStore means the persisted-record store failed.
	CategoryStore ErrorCategory = "store"
	// CategoryPlatform means the Discord API rejected a call.
	CategoryPlatform ErrorCategory = "platform"
	// CategoryInternal is used for anything not classified above.
	CategoryInternal ErrorCategory = "internal"
)

// Error is the standardized failure returned by interaction handlers.
// Message doubles as the log text and the text shown to the user.
type Error struct {
	Category ErrorCategory
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return e.Cause.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error of the same category. An empty target message
// matches any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Category == e.Category && (t.Message == "" || t.Message == e.Message)
}

// Routing reports an unknown command, component or modal key.
func Routing(kind, key string) *Error {
	return &Error{Category: CategoryRouting, Message: fmt.Sprintf("Invalid identifier: %s<%s>", kind, key)}
}

// MissingField reports a missing input value.
func MissingField(name string) *Error {
	return &Error{Category: CategoryField, Message: fmt.Sprintf("Missing value: %s<?>", name)}
}

// InvalidField reports an input value with the wrong shape.
func InvalidField(name, value string) *Error {
	return &Error{Category: CategoryField, Message: fmt.Sprintf("Invalid value: %s<%s>", name, value)}
}

// Precondition reports a domain rule violation.
func Precondition(message string) *Error {
	return &Error{Category: CategoryPrecondition, Message: message}
}

// Store wraps a persistence failure. It returns nil when err is nil.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Category: CategoryStore, Message: op, Cause: err}
}

// Platform wraps a Discord API failure. It returns nil when err is nil.
func Platform(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Category: CategoryPlatform, Message: op, Cause: err}
}

// CategoryOf returns the category of err. Discord REST errors are classified
// as platform failures even when they were not wrapped explicitly.
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category
	}
	var rest *discordgo.RESTError
	if stderrors.As(err, &rest) {
		return CategoryPlatform
	}
	return CategoryInternal
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, category ErrorCategory) bool {
	return CategoryOf(err) == category
}

package serrors

import "fmt"

// Error is a service-level error carrying a stable machine code alongside the
// human message. Key identifies the localized message when one exists.
type Error struct {
	Code    string
	Message string
	Key     string
}

func NewError(code, message, key string) *Error {
	return &Error{Code: code, Message: message, Key: key}
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches errors by code so call sites can compare against sentinel values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

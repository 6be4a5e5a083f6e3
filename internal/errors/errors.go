package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Session errors (AUTH-001 to AUTH-099)
	ErrCodeAuthRequired  ErrorCode = "AUTH-001"
	ErrCodeNotLoggedIn   ErrorCode = "AUTH-002"
	ErrCodeLoginFailed   ErrorCode = "AUTH-003"
	ErrCodeSessionExpiry ErrorCode = "AUTH-004"
	ErrCodeForbidden     ErrorCode = "AUTH-005"

	// Remote API errors (REMOTE-001 to REMOTE-099)
	ErrCodeRemoteRejected ErrorCode = "REMOTE-001"
	ErrCodeRemoteNotFound ErrorCode = "REMOTE-002"

	// Transport errors (NET-001 to NET-099)
	ErrCodeTransport ErrorCode = "NET-001"

	// Response decoding errors (RESP-001 to RESP-099)
	ErrCodeMalformedResponse ErrorCode = "RESP-001"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigUnreadable ErrorCode = "CONFIG-001"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG-002"

	// Navigation errors (NAV-001 to NAV-099)
	ErrCodeRouteUnknown ErrorCode = "NAV-001"

	// Input errors (INPUT-001 to INPUT-099)
	ErrCodeInputInvalid ErrorCode = "INPUT-001"

	// Diagnostics errors (HEALTH-001 to HEALTH-099)
	ErrCodeUnhealthy ErrorCode = "HEALTH-001"
)

// ConsoleError is a coded error carrying an optional HTTP status,
// recovery suggestions and the underlying cause.
type ConsoleError struct {
	Code        ErrorCode
	Message     string
	StatusCode  int
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *ConsoleError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *ConsoleError) Unwrap() error {
	return e.Cause
}

// New creates a new ConsoleError
func New(code ErrorCode, message string) *ConsoleError {
	return &ConsoleError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new ConsoleError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *ConsoleError {
	return &ConsoleError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *ConsoleError) WithSuggestion(suggestion string) *ConsoleError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *ConsoleError) WithSuggestions(suggestions ...string) *ConsoleError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *ConsoleError) WithDocs(url string) *ConsoleError {
	e.DocsURL = url
	return e
}

// As returns the first ConsoleError in err's chain.
func As(err error) (*ConsoleError, bool) {
	var ce *ConsoleError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// CodeOf returns the code of the first ConsoleError in err's chain, or ""
func CodeOf(err error) ErrorCode {
	if ce, ok := As(err); ok {
		return ce.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// Message returns the human-readable message stores surface to callers.
// For a ConsoleError this is its Message without code, cause or suggestions.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if ce, ok := As(err); ok && ce.Message != "" {
		return ce.Message
	}
	return err.Error()
}

// Common error constructors for frequently used errors

// NewAuthRequiredError is returned when an operation needs a token and the
// session has none.
func NewAuthRequiredError() *ConsoleError {
	return New(ErrCodeAuthRequired, "authentication required").
		WithSuggestion("Run 'chiwen auth login' to start a session")
}

// NewNotLoggedInError is returned by the CLI when the navigation guard sends
// a command to the login route.
func NewNotLoggedInError(route string) *ConsoleError {
	return New(ErrCodeNotLoggedIn, fmt.Sprintf("login required to open %q", route)).
		WithSuggestion("Run 'chiwen auth login --username <name>'").
		WithSuggestion("Check 'chiwen auth status' if you expected a saved session")
}

// NewPermissionDeniedError is returned when the session's role lacks a
// capability.
func NewPermissionDeniedError(capability, role string) *ConsoleError {
	if role == "" {
		role = "none"
	}
	return New(ErrCodeForbidden, fmt.Sprintf("role %s does not grant %q", role, capability)).
		WithSuggestion("Run 'chiwen auth status' to list the capabilities of your session")
}

// NewLoginFailedError wraps the message recorded by a failed login.
func NewLoginFailedError(message string) *ConsoleError {
	return New(ErrCodeLoginFailed, fmt.Sprintf("login failed: %s", message)).
		WithSuggestion("Check the username and password").
		WithSuggestion("Verify api.base_url points at the console server")
}

// NewRemoteRejectedError creates an error for a non-2xx API response. The
// message is the one extracted from the response body.
func NewRemoteRejectedError(statusCode int, message string) *ConsoleError {
	code := ErrCodeRemoteRejected
	if statusCode == 404 {
		code = ErrCodeRemoteNotFound
	}
	err := New(code, message)
	err.StatusCode = statusCode
	return err
}

// NewTransportError creates an error for an unreachable or timed out server.
func NewTransportError(cause error) *ConsoleError {
	return Wrap(ErrCodeTransport, "console server unreachable", cause).
		WithSuggestion("Check the network connection and api.base_url").
		WithSuggestion("Increase api.timeout if the server is slow to respond")
}

// NewMalformedResponseError creates an error for a 2xx response whose body
// is missing expected fields or cannot be decoded.
func NewMalformedResponseError(detail string, cause error) *ConsoleError {
	return Wrap(ErrCodeMalformedResponse, fmt.Sprintf("malformed response: %s", detail), cause)
}

// NewConfigInvalidError creates a configuration validation error
func NewConfigInvalidError(key, detail string) *ConsoleError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration %s: %s", key, detail)).
		WithSuggestion("Run 'chiwen config show' to inspect the effective configuration").
		WithSuggestion(fmt.Sprintf("Override with the CHIWEN_%s environment variable", envKey(key)))
}

// NewConfigUnreadableError creates an error for a config file that exists
// but cannot be read or parsed.
func NewConfigUnreadableError(path string, cause error) *ConsoleError {
	return Wrap(ErrCodeConfigUnreadable, fmt.Sprintf("failed to read config file: %s", path), cause).
		WithSuggestion("Check the file syntax; config files are YAML")
}

// NewRouteUnknownError creates an error for a navigation target with no route.
func NewRouteUnknownError(name string) *ConsoleError {
	return New(ErrCodeRouteUnknown, fmt.Sprintf("unknown route: %s", name))
}

// NewInputInvalidError creates an error for bad command input.
func NewInputInvalidError(detail string) *ConsoleError {
	return New(ErrCodeInputInvalid, detail)
}

func envKey(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

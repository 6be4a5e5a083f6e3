package exitcode

import (
	"os"
	"strings"

	"github.com/cjl-github/chiwen/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ConfigError indicates an unreadable or invalid configuration
	ConfigError = 3

	// RemoteError indicates the console server rejected a request
	RemoteError = 4

	// AuthError indicates an authentication or authorization failure
	AuthError = 5

	// NetworkError indicates a network connectivity issue
	NetworkError = 6

	// Interrupted indicates the user cancelled the operation
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	code := DetermineExitCode(err)
	Exit(code)
}

// DetermineExitCode maps an error to an exit code. Coded errors map by
// code; anything else falls back to matching cobra's usage messages.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if ce, ok := errors.As(err); ok {
		switch ce.Code {
		case errors.ErrCodeAuthRequired, errors.ErrCodeNotLoggedIn,
			errors.ErrCodeLoginFailed, errors.ErrCodeSessionExpiry, errors.ErrCodeForbidden:
			return AuthError
		case errors.ErrCodeRemoteRejected, errors.ErrCodeRemoteNotFound:
			if ce.StatusCode == 401 || ce.StatusCode == 403 {
				return AuthError
			}
			return RemoteError
		case errors.ErrCodeMalformedResponse:
			return RemoteError
		case errors.ErrCodeTransport:
			return NetworkError
		case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigUnreadable:
			return ConfigError
		case errors.ErrCodeInputInvalid, errors.ErrCodeRouteUnknown:
			return UsageError
		}
	}

	errMsg := strings.ToLower(err.Error())

	// Usage errors
	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "unknown flag") {
		return UsageError
	}
	if strings.Contains(errMsg, "accepts") && strings.Contains(errMsg, "arg(s)") {
		return UsageError
	}

	// Default to general error
	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case ConfigError:
		return "Configuration error"
	case RemoteError:
		return "Console server rejected the request"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}

package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/port-experimental/dispatch-cli/internal/session"
)

// ErrorContext provides additional context for errors.
type ErrorContext struct {
	Error      error
	Suggestion string
	HelpURL    string
	ErrorCode  string
}

// FormatError formats an error with context and suggestions.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	suggestion, errorCode := classifySession(err)
	if errorCode == "" {
		suggestion = getSuggestion(err.Error())
		errorCode = getErrorCode(err.Error())
	}

	return FormatErrorWithContext(ErrorContext{
		Error:      err,
		Suggestion: suggestion,
		ErrorCode:  errorCode,
	})
}

// FormatErrorWithContext formats an error with explicit context.
func FormatErrorWithContext(ctx ErrorContext) string {
	if ctx.Error == nil {
		return ""
	}

	var parts []string
	parts = append(parts, Error(ctx.Error.Error()))

	if ctx.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\n%s", Info("Suggestion: "+ctx.Suggestion)))
	}

	if ctx.HelpURL != "" {
		parts = append(parts, fmt.Sprintf("\n%s", Info("Documentation: "+ctx.HelpURL)))
	}

	if ctx.ErrorCode != "" {
		parts = append(parts, fmt.Sprintf("\n%s", Dim("Error code: "+ctx.ErrorCode)))
	}

	return strings.Join(parts, "")
}

// classifySession maps session errors to a suggestion and code. It returns
// empty strings for anything else.
func classifySession(err error) (string, string) {
	switch {
	case errors.Is(err, session.ErrSessionEnded):
		return "Your session has ended. Run `dispatch login` to sign in again", "SESSION_ENDED"
	case errors.Is(err, session.ErrNoSession):
		return "You are not logged in. Run `dispatch login` first", "NO_SESSION"
	case errors.Is(err, session.ErrRetryExhausted):
		return "The server rejected a freshly renewed token. Run `dispatch login` to sign in again", "AUTH_FAILED"
	case errors.Is(err, session.ErrTransient):
		return "The session service is temporarily unreachable. Check your network connection and try again", "TRANSIENT"
	default:
		return "", ""
	}
}

// getSuggestion returns a helpful suggestion based on the error message.
func getSuggestion(errMsg string) string {
	lowerMsg := strings.ToLower(errMsg)

	switch {
	case strings.Contains(lowerMsg, "configuration not found") || strings.Contains(lowerMsg, "config"):
		return "Run `dispatch config --init` to create a configuration file"
	case strings.Contains(lowerMsg, "invalid username or password"):
		return "Check your username and password and try again"
	case strings.Contains(lowerMsg, "credentials") || strings.Contains(lowerMsg, "401") || strings.Contains(lowerMsg, "unauthorized"):
		return "Check your credentials. Run `dispatch status` to view the current session"
	case strings.Contains(lowerMsg, "file not found") || strings.Contains(lowerMsg, "no such file"):
		return "Check that the file path is correct and the file exists"
	case strings.Contains(lowerMsg, "profile") && strings.Contains(lowerMsg, "not found"):
		return "Verify the profile name is correct. Run `dispatch config --show` to see configured profiles"
	case strings.Contains(lowerMsg, "403") || strings.Contains(lowerMsg, "forbidden"):
		return "Check that your role has the necessary permissions"
	case strings.Contains(lowerMsg, "404") || strings.Contains(lowerMsg, "not found"):
		return "The requested resource may not exist or you may not have access to it"
	case strings.Contains(lowerMsg, "timeout") || strings.Contains(lowerMsg, "connection"):
		return "Check your network connection and try again. If the problem persists, check the API URL"
	case strings.Contains(lowerMsg, "429") || strings.Contains(lowerMsg, "rate limit"):
		return "Rate limit exceeded. Please wait a moment and try again"
	case strings.Contains(lowerMsg, "invalid") && strings.Contains(lowerMsg, "status"):
		return "Valid order statuses: pending, accepted, picked-up, delivered, cancelled"
	case strings.Contains(lowerMsg, "validation"):
		return "Check the input data format matches the expected schema"
	default:
		return ""
	}
}

// getErrorCode extracts or generates an error code from the error message.
func getErrorCode(errMsg string) string {
	lowerMsg := strings.ToLower(errMsg)

	switch {
	case strings.Contains(lowerMsg, "configuration not found"):
		return "CONFIG_NOT_FOUND"
	case strings.Contains(lowerMsg, "credentials") || strings.Contains(lowerMsg, "401") || strings.Contains(lowerMsg, "invalid username or password"):
		return "AUTH_FAILED"
	case strings.Contains(lowerMsg, "403"):
		return "PERMISSION_DENIED"
	case strings.Contains(lowerMsg, "profile") && strings.Contains(lowerMsg, "not found"):
		return "PROFILE_NOT_FOUND"
	case strings.Contains(lowerMsg, "404"):
		return "RESOURCE_NOT_FOUND"
	case strings.Contains(lowerMsg, "file not found"):
		return "FILE_NOT_FOUND"
	case strings.Contains(lowerMsg, "timeout"):
		return "TIMEOUT"
	case strings.Contains(lowerMsg, "429"):
		return "RATE_LIMIT"
	case strings.Contains(lowerMsg, "validation"):
		return "VALIDATION_ERROR"
	default:
		return ""
	}
}

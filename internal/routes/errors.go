package routes

import (
	"errors"
	"net/http"

	"employee-timesheet/internal/access"
	"employee-timesheet/internal/jwt"
	"employee-timesheet/internal/storage"
	"employee-timesheet/internal/timesheet"
)

// HTTPError represents an error with an associated HTTP status code and user message
type HTTPError struct {
	Err        error    // The underlying error
	StatusCode int      // HTTP status code
	Message    string   // User-friendly message
	StopCodes  []string // Optional stop codes for client-side handling
	Internal   bool     // Whether this is an internal error (hide details from user)
}

// ErrorInfo contains error metadata for user-facing errors
type ErrorInfo struct {
	Message   string   // User-friendly message
	StopCodes []string // Optional stop codes for client-side application
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(statusCode int, err error, message string, stopCodes ...string) *HTTPError {
	return &HTTPError{
		Err:        err,
		StatusCode: statusCode,
		Message:    message,
		StopCodes:  stopCodes,
		Internal:   statusCode >= 500,
	}
}

// Routes-specific errors (that don't conflict with other packages)
var (
	// Authentication errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIncorrectPassword  = errors.New("incorrect password")

	// Authorization errors
	ErrForbidden               = errors.New("forbidden")
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	// Validation errors
	ErrInvalidRequest   = errors.New("invalid request")
	ErrMissingParameter = errors.New("missing required parameter")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidFormat    = errors.New("unsupported export format")

	// Internal errors
	ErrInternalServer     = errors.New("internal server error")
	ErrDatabaseError      = errors.New("database error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// errorStatusMap maps errors to HTTP status codes
var errorStatusMap = map[error]int{
	// 400 Bad Request
	ErrInvalidRequest:              http.StatusBadRequest,
	ErrMissingParameter:            http.StatusBadRequest,
	ErrInvalidParameter:            http.StatusBadRequest,
	ErrInvalidFormat:               http.StatusBadRequest,
	timesheet.ErrInvalidDateFormat: http.StatusBadRequest,
	timesheet.ErrInvalidRange:      http.StatusBadRequest,
	timesheet.ErrRangeTooLarge:     http.StatusBadRequest,
	timesheet.ErrInvalidHours:      http.StatusBadRequest,
	timesheet.ErrInvalidTimes:      http.StatusBadRequest,
	access.ErrMissingName:          http.StatusBadRequest,
	access.ErrMissingEmail:         http.StatusBadRequest,
	access.ErrInvalidEmail:         http.StatusBadRequest,

	// 401 Unauthorized
	ErrUnauthorized:       http.StatusUnauthorized,
	ErrInvalidCredentials: http.StatusUnauthorized,
	jwt.ErrNonValidToken:  http.StatusUnauthorized,
	jwt.ErrInvalidNonce:   http.StatusUnauthorized,

	// 403 Forbidden
	ErrForbidden:               http.StatusForbidden,
	ErrInsufficientPermissions: http.StatusForbidden,
	ErrIncorrectPassword:       http.StatusForbidden,
	timesheet.ErrUnauthorized:  http.StatusForbidden,

	// 404 Not Found
	storage.ErrNotFound: http.StatusNotFound,

	// 409 Conflict
	access.ErrDuplicateRequest: http.StatusConflict,
	storage.ErrDuplicate:       http.StatusConflict,

	// 500 Internal Server Error
	ErrInternalServer: http.StatusInternalServerError,
	ErrDatabaseError:  http.StatusInternalServerError,

	// 503 Service Unavailable
	ErrServiceUnavailable: http.StatusServiceUnavailable,
}

// errorInfoMap maps errors to user-friendly messages and optional stop codes.
// Errors missing here show their own message for 4xx statuses.
var errorInfoMap = map[error]ErrorInfo{
	// Authentication
	ErrUnauthorized: {
		Message:   "Authentication required",
		StopCodes: []string{"AUTH_REQUIRED"},
	},
	ErrInvalidCredentials: {
		Message:   "Invalid username or password",
		StopCodes: []string{"AUTH_INVALID_CREDENTIALS"},
	},
	jwt.ErrNonValidToken: {
		Message:   "Invalid or expired authentication token",
		StopCodes: []string{"AUTH_INVALID_TOKEN"},
	},
	jwt.ErrInvalidNonce: {
		Message:   "Your session has ended, please sign in again",
		StopCodes: []string{"AUTH_INVALID_NONCE"},
	},

	// Authorization
	ErrForbidden: {
		Message:   "Access denied",
		StopCodes: []string{"FORBIDDEN"},
	},
	ErrInsufficientPermissions: {
		Message:   "You don't have permission to perform this action",
		StopCodes: []string{"INSUFFICIENT_PERMISSIONS"},
	},
	ErrIncorrectPassword: {
		Message:   "Incorrect admin password.",
		StopCodes: []string{"INCORRECT_PASSWORD"},
	},
	timesheet.ErrUnauthorized: {
		Message:   "Unauthorized",
		StopCodes: []string{"TIMESHEET_FORBIDDEN"},
	},

	// Timesheet
	timesheet.ErrInvalidDateFormat: {
		Message:   "Invalid date format.",
		StopCodes: []string{"INVALID_DATE_FORMAT"},
	},
	timesheet.ErrInvalidRange: {
		Message:   "Invalid date range",
		StopCodes: []string{"INVALID_DATE_RANGE"},
	},
	timesheet.ErrRangeTooLarge: {
		Message:   "Date range is too large",
		StopCodes: []string{"DATE_RANGE_TOO_LARGE"},
	},

	// Access requests
	access.ErrDuplicateRequest: {
		Message:   "You've already submitted a request. Please wait for admin approval.",
		StopCodes: []string{"DUPLICATE_REQUEST"},
	},

	access.ErrMissingName: {
		Message:   "Please enter your name.",
		StopCodes: []string{"MISSING_NAME"},
	},
	access.ErrMissingEmail: {
		Message:   "Please enter your email address.",
		StopCodes: []string{"MISSING_EMAIL"},
	},
	access.ErrInvalidEmail: {
		Message:   "Please enter a valid email address.",
		StopCodes: []string{"INVALID_EMAIL"},
	},

	// Lookups
	storage.ErrNotFound: {
		Message:   "Not found",
		StopCodes: []string{"NOT_FOUND"},
	},

	// Validation
	ErrInvalidRequest: {
		Message:   "Invalid request format",
		StopCodes: []string{"INVALID_REQUEST"},
	},
	ErrMissingParameter: {
		Message:   "Required parameter is missing",
		StopCodes: []string{"MISSING_PARAMETER"},
	},
	ErrInvalidParameter: {
		Message:   "Invalid parameter value",
		StopCodes: []string{"INVALID_PARAMETER"},
	},
	ErrInvalidFormat: {
		Message:   "Unsupported export format, use csv or xlsx",
		StopCodes: []string{"INVALID_FORMAT"},
	},

	// Internal (no stop codes for internal errors)
	ErrInternalServer: {
		Message: "An internal error occurred",
	},
	ErrDatabaseError: {
		Message: "Database operation failed",
	},
	ErrServiceUnavailable: {
		Message: "Service is temporarily unavailable",
	},
}

// GetErrorStatus returns the HTTP status code for an error
func GetErrorStatus(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}

	if status, ok := errorStatusMap[err]; ok {
		return status
	}

	for knownErr, status := range errorStatusMap {
		if errors.Is(err, knownErr) {
			return status
		}
	}

	return http.StatusInternalServerError
}

// GetErrorInfo returns error information including message and stop codes
func GetErrorInfo(err error) ErrorInfo {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return ErrorInfo{
			Message:   httpErr.Message,
			StopCodes: httpErr.StopCodes,
		}
	}

	status := GetErrorStatus(err)
	if status >= 500 {
		if info, ok := errorInfoMap[err]; ok {
			return info
		}
		return ErrorInfo{Message: "An internal error occurred"}
	}

	// Typed errors carry the more specific message.
	if info, ok := errorInfoMap[err]; ok {
		return info
	}
	for knownErr, info := range errorInfoMap {
		if errors.Is(err, knownErr) {
			return ErrorInfo{Message: err.Error(), StopCodes: info.StopCodes}
		}
	}
	return ErrorInfo{Message: err.Error()}
}

// GetErrorMessage returns a user-friendly message for an error
func GetErrorMessage(err error) string {
	return GetErrorInfo(err).Message
}

// GetErrorStopCodes returns stop codes for an error
func GetErrorStopCodes(err error) []string {
	return GetErrorInfo(err).StopCodes
}

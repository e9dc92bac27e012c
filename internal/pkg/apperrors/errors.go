package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("invalid token")
	ErrTokenNotFound = errors.New("token not found")
	ErrInvalidFormat = errors.New("invalid token format")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// Storage errors
	ErrStorageFailure = errors.New("storage failure")
)

// Activity errors
var (
	ErrActivityNotFound = errors.New("activity not found")
	ErrInvalidState     = errors.New("not permitted in current state")
	ErrAlreadyReshared  = errors.New("activity already reshared by user")
	ErrAnswerNotFound   = errors.New("poll answer not found")
	ErrCommentNotFound  = errors.New("comment not found")
)

// Community errors
var (
	ErrCommunityNotFound = errors.New("community not found")
	ErrNotMember         = errors.New("user is not a member of this community")
	ErrUserNotFound      = errors.New("user not found")
)

// Notification and message errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrMessageNotFound      = errors.New("message not found")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// NewInvalidStateError reports a lifecycle operation rejected before any mutation
func NewInvalidStateError(message string) error {
	return &CustomError{
		Err:     ErrInvalidState,
		Message: message,
	}
}

// NewStorageError wraps a failed unit of work. Application errors pass through untouched.
func NewStorageError(err error) error {
	if err == nil {
		return nil
	}
	var custom *CustomError
	if errors.As(err, &custom) || isApplicationError(err) {
		return err
	}
	return &CustomError{
		Err:     errors.Join(ErrStorageFailure, err),
		Message: "storage failure",
	}
}

func isApplicationError(err error) bool {
	return Is(err, ErrResourceNotFound,
		ErrActivityNotFound, ErrCommunityNotFound, ErrUserNotFound, ErrNotificationNotFound,
		ErrAnswerNotFound, ErrCommentNotFound, ErrMessageNotFound, ErrInvalidState, ErrAlreadyReshared, ErrNotMember,
		ErrPermissionDenied, ErrBadRequest, ErrValidationFailed, ErrConflict, ErrStorageFailure)
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err       error
	Message   string
	StatusMsg string
	Code      string
	Details   map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}

// WithStatusMsg adds a user-friendly status message
func (e *CustomError) WithStatusMsg(msg string) *CustomError {
	e.StatusMsg = msg
	return e
}

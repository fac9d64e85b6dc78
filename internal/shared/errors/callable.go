package errors

import "net/http"

// CallableStatus is the status string carried by a callable error response
type CallableStatus string

const (
	StatusOK                 CallableStatus = "OK"
	StatusInvalidArgument    CallableStatus = "INVALID_ARGUMENT"
	StatusFailedPrecondition CallableStatus = "FAILED_PRECONDITION"
	StatusUnauthenticated    CallableStatus = "UNAUTHENTICATED"
	StatusPermissionDenied   CallableStatus = "PERMISSION_DENIED"
	StatusNotFound           CallableStatus = "NOT_FOUND"
	StatusAlreadyExists      CallableStatus = "ALREADY_EXISTS"
	StatusInternal           CallableStatus = "INTERNAL"
	StatusUnavailable        CallableStatus = "UNAVAILABLE"
)

// HTTPCode is the HTTP status used to transport s
func (s CallableStatus) HTTPCode() int {
	switch s {
	case StatusOK:
		return http.StatusOK
	case StatusInvalidArgument, StatusFailedPrecondition:
		return http.StatusBadRequest
	case StatusUnauthenticated:
		return http.StatusUnauthorized
	case StatusPermissionDenied:
		return http.StatusForbidden
	case StatusNotFound:
		return http.StatusNotFound
	case StatusAlreadyExists:
		return http.StatusConflict
	case StatusUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// StatusOf maps err to the callable status the client sees. Errors that are not
// AppErrors and carry no known sentinel are INTERNAL.
func StatusOf(err error) CallableStatus {
	switch {
	case err == nil:
		return StatusOK
	case IsValidation(err):
		return StatusInvalidArgument
	case IsPrecondition(err):
		return StatusFailedPrecondition
	case IsAuthentication(err):
		return StatusUnauthenticated
	case IsAuthorization(err):
		return StatusPermissionDenied
	case IsNotFound(err):
		return StatusNotFound
	case IsConflict(err):
		return StatusAlreadyExists
	case isType(err, ErrorTypeUnavailable):
		return StatusUnavailable
	default:
		return StatusInternal
	}
}

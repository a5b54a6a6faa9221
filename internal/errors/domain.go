package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Kind classifies an expected service failure.
type Kind string

const (
	KindContractViolation Kind = "contract_violation"
	KindDomainValidation  Kind = "validation_error"
	KindUnauthorized      Kind = "unauthorized"
	KindPermissionDenied  Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindUnavailable       Kind = "unavailable"
	KindInternal          Kind = "internal_error"
)

// HTTPStatusMap is the single mapping from failure kind to HTTP status.
var HTTPStatusMap = map[Kind]int{
	KindContractViolation: http.StatusBadRequest,
	KindUnauthorized:      http.StatusUnauthorized,
	KindPermissionDenied:  http.StatusForbidden,
	KindNotFound:          http.StatusNotFound,
	KindConflict:          http.StatusConflict,
	KindDomainValidation:  http.StatusUnprocessableEntity,
	KindUnavailable:       http.StatusServiceUnavailable,
	KindInternal:          http.StatusInternalServerError,
}

var kindCodes = map[Kind]string{
	KindContractViolation: ErrCodeInvalidInput,
	KindUnauthorized:      ErrCodeUnauthorized,
	KindPermissionDenied:  ErrCodeForbidden,
	KindNotFound:          ErrCodeNotFound,
	KindConflict:          ErrCodeConflict,
	KindDomainValidation:  ErrCodeValidationFailed,
	KindUnavailable:       ErrCodeServiceUnavailable,
	KindInternal:          ErrCodeInternalError,
}

// StatusFor returns the HTTP status for a kind, 500 for unknown kinds.
func StatusFor(kind Kind) int {
	if status, ok := HTTPStatusMap[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainError is an expected business failure returned by services.
// Services declare them as package-level sentinels and compare with errors.Is.
type DomainError struct {
	Kind    Kind
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a DomainError sentinel.
func NewDomainError(kind Kind, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

type detailedError struct {
	sentinel *DomainError
	detail   string
}

func (e *detailedError) Error() string {
	return e.sentinel.Message + ": " + e.detail
}

func (e *detailedError) Unwrap() error {
	return e.sentinel
}

// Wrap attaches a human readable detail to a sentinel while keeping errors.Is working.
func Wrap(sentinel *DomainError, format string, args ...interface{}) error {
	return &detailedError{sentinel: sentinel, detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first DomainError in err's chain.
func KindOf(err error) (Kind, bool) {
	var domainErr *DomainError
	if stderrors.As(err, &domainErr) {
		return domainErr.Kind, true
	}
	return KindInternal, false
}

// RespondWithServiceError renders err using the canonical status mapping.
// Unexpected errors are logged by type name and rendered as 500; the error text
// is only exposed outside release mode.
func RespondWithServiceError(c *gin.Context, log logrus.FieldLogger, err error) {
	kind, ok := KindOf(err)
	if ok {
		RespondWithError(c, StatusFor(kind), NewAPIError(kindCodes[kind], err.Error()))
		return
	}

	if log != nil {
		log.WithFields(logrus.Fields{
			"error_type": fmt.Sprintf("%T", err),
			"path":       c.FullPath(),
		}).Error("Unexpected service error")
	}

	if gin.Mode() != gin.ReleaseMode {
		RespondWithError(c, http.StatusInternalServerError, NewAPIErrorWithDetails(
			ErrCodeInternalError,
			"Internal server error",
			gin.H{"exception": fmt.Sprintf("%T", err), "message": err.Error()},
		))
		return
	}
	InternalError(c, "")
}

package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeInvalidFormat    Code = "INVALID_FORMAT"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeUpgradeRequired  Code = "UPGRADE_REQUIRED"
	CodeNotFound         Code = "NOT_FOUND"
	CodeMethodNotAllowed Code = "METHOD_NOT_ALLOWED"
	CodeExpired          Code = "EXPIRED"
	CodeConflict         Code = "CONFLICT"
	CodeQuotaExceeded    Code = "QUOTA_EXCEEDED"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeStorage          Code = "STORAGE_ERROR"
	CodeMisconfigured    Code = "MISCONFIGURED"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeDependency       Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

// metadataByCode decides how each code surfaces over HTTP. Codes missing
// here are treated as CodeInternal.
var metadataByCode = map[Code]Metadata{
	CodeValidation:       {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
	CodeInvalidFormat:    {HTTPStatus: http.StatusBadRequest, PublicMessage: "invalid format"},
	CodeUnauthorized:     {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
	CodeUpgradeRequired:  {HTTPStatus: http.StatusForbidden, PublicMessage: "upgrade required", DetailsAllowed: true},
	CodeNotFound:         {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
	CodeMethodNotAllowed: {HTTPStatus: http.StatusMethodNotAllowed, PublicMessage: "method not allowed"},
	CodeExpired:          {HTTPStatus: http.StatusUnauthorized, PublicMessage: "expired", DetailsAllowed: true},
	CodeConflict:         {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
	CodeQuotaExceeded:    {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "quota exceeded", DetailsAllowed: true},
	CodeRateLimited:      {HTTPStatus: http.StatusTooManyRequests, Retryable: true, PublicMessage: "too many requests"},
	CodeStorage:          {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "database error"},
	CodeMisconfigured:    {HTTPStatus: http.StatusInternalServerError, PublicMessage: "service misconfigured"},
	CodeInternal:         {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"},
	CodeDependency:       {HTTPStatus: http.StatusBadGateway, Retryable: true, PublicMessage: "upstream provider unavailable"},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// IsCode reports whether the first typed error in the chain carries code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

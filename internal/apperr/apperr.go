package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a class of application error. Kinds are comparable with errors.Is.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	KindNotFound             Kind = "not_found"
	KindUnsupportedOperator  Kind = "unsupported_operator"
	KindInvalidFilter        Kind = "invalid_filter"
	KindInvalidInput         Kind = "invalid_input"
	KindPaginationFailed     Kind = "pagination_failed"
	KindRowValidationFailed  Kind = "row_validation_failed"
	KindReconciliationFailed Kind = "reconciliation_failed"
	KindInternal             Kind = "internal_error"
)

type ErrorDetail struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

type InternalErrorDetail struct {
	ErrorID string `json:"error_id"`
	ErrorDetail
}

type PublicErrorDetail struct {
	ErrorDetail
}

// Error is an application error that knows how it should be reported over HTTP.
type Error interface {
	Error() string
	Kind() Kind
	HTTPStatusCode() int
	PublicErrorDetail() PublicErrorDetail
	InternalErrorDetail() InternalErrorDetail
	Unwrap() error
}

type appError struct {
	kind     Kind
	httpCode int
	public   PublicErrorDetail
	internal InternalErrorDetail
	cause    error
}

func (e *appError) Kind() Kind { return e.kind }

func (e *appError) PublicErrorDetail() PublicErrorDetail { return e.public }

func (e *appError) InternalErrorDetail() InternalErrorDetail { return e.internal }

func (e *appError) HTTPStatusCode() int {
	if e.httpCode == 0 {
		return http.StatusInternalServerError
	}
	return e.httpCode
}

func (e *appError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.public.Message, e.cause)
	}
	return e.public.Message
}

func (e *appError) Unwrap() error { return e.cause }

func (e *appError) Is(target error) bool {
	kind, ok := target.(Kind)
	return ok && kind == e.kind
}

type Option func(*appError)

func WithKind(kind Kind) Option {
	return func(e *appError) {
		e.kind = kind
		e.internal.ErrorID = string(kind)
	}
}

func WithHTTPCode(code int) Option {
	return func(e *appError) {
		e.httpCode = code
	}
}

func WithPublicMessage(message string) Option {
	return func(e *appError) {
		e.public.Message = message
	}
}

func WithInternalMessage(message string) Option {
	return func(e *appError) {
		e.internal.Message = message
	}
}

func WithPublicData(key string, value any) Option {
	return func(e *appError) {
		if e.public.Data == nil {
			e.public.Data = make(map[string]any)
		}
		e.public.Data[key] = value
	}
}

func WithInternalData(key string, value any) Option {
	return func(e *appError) {
		if e.internal.Data == nil {
			e.internal.Data = make(map[string]any)
		}
		e.internal.Data[key] = value
	}
}

func WithCause(err error) Option {
	return func(e *appError) {
		e.cause = err
		if err != nil && e.internal.Message == "" {
			e.internal.Message = err.Error()
		}
	}
}

func New(options ...Option) Error {
	e := &appError{}
	for _, option := range options {
		option(e)
	}
	if e.kind == "" {
		e.kind = KindInternal
	}
	if e.httpCode == 0 {
		e.httpCode = defaultStatus(e.kind)
	}
	if e.public.Message == "" {
		e.public.Message = "Internal server error"
	}
	if e.internal.ErrorID == "" {
		e.internal.ErrorID = string(e.kind)
	}
	return e
}

func defaultStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnsupportedOperator, KindInvalidFilter, KindInvalidInput, KindRowValidationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// As returns err as an application error, wrapping unknown errors as internal errors.
func As(err error) Error {
	var appErr Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(
		WithKind(KindInternal),
		WithPublicMessage("Internal server error"),
		WithInternalMessage("non-API error: "+err.Error()),
		WithCause(err),
	)
}

func NotFound(entity string, id any) Error {
	return New(
		WithKind(KindNotFound),
		WithPublicMessage(fmt.Sprintf("%s not found", entity)),
		WithPublicData("id", fmt.Sprint(id)),
	)
}

func UnsupportedOperator(operator string) Error {
	return New(
		WithKind(KindUnsupportedOperator),
		WithPublicMessage(fmt.Sprintf("unsupported filter operator %q", operator)),
		WithPublicData("operator", operator),
	)
}

func InvalidFilter(reason string) Error {
	return New(
		WithKind(KindInvalidFilter),
		WithPublicMessage("invalid filter: "+reason),
	)
}

func InvalidInput(message string, cause error) Error {
	return New(
		WithKind(KindInvalidInput),
		WithPublicMessage(message),
		WithCause(cause),
	)
}

func PaginationFailed(cause error) Error {
	return New(
		WithKind(KindPaginationFailed),
		WithPublicMessage("failed to fetch paginated results"),
		WithCause(cause),
	)
}

func RowValidationFailed(row int, message string) Error {
	return New(
		WithKind(KindRowValidationFailed),
		WithPublicMessage(message),
		WithPublicData("row", row),
	)
}

func ReconciliationFailed(row int, cause error) Error {
	return New(
		WithKind(KindReconciliationFailed),
		WithPublicMessage("failed to store row"),
		WithPublicData("row", row),
		WithCause(cause),
	)
}

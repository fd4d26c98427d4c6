package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrSecretNotFound     = errors.New("secret not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrEmptyMessage       = errors.New("message is empty")

	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrTransient           = errors.New("transient service failure")
	ErrFatal               = errors.New("fatal service failure")
	ErrNoExternalData      = errors.New("no external data")
	ErrRetryBudgetExceeded = errors.New("retry budget exceeded")
	ErrPoolExhausted       = errors.New("credential pool exhausted")
)

type ErrorKind string

const (
	ErrorKindNone                ErrorKind = ""
	ErrorKindQuotaExceeded       ErrorKind = "quota_exceeded"
	ErrorKindTransient           ErrorKind = "transient"
	ErrorKindFatal               ErrorKind = "fatal"
	ErrorKindNoExternalData      ErrorKind = "no_external_data"
	ErrorKindRetryBudgetExceeded ErrorKind = "retry_budget_exceeded"
	ErrorKindPoolExhausted       ErrorKind = "pool_exhausted"
)

func (k ErrorKind) Sentinel() error {
	switch k {
	case ErrorKindQuotaExceeded:
		return ErrQuotaExceeded
	case ErrorKindTransient:
		return ErrTransient
	case ErrorKindFatal:
		return ErrFatal
	case ErrorKindNoExternalData:
		return ErrNoExternalData
	case ErrorKindRetryBudgetExceeded:
		return ErrRetryBudgetExceeded
	case ErrorKindPoolExhausted:
		return ErrPoolExhausted
	default:
		return nil
	}
}

// ServiceError carries the classification an adapter derived from a remote
// status so the retry controller does not have to parse messages.
type ServiceError struct {
	Kind       ErrorKind
	StatusCode int
	Status     string
	Err        error
}

func NewServiceError(kind ErrorKind, statusCode int, status string, err error) *ServiceError {
	return &ServiceError{Kind: kind, StatusCode: statusCode, Status: status, Err: err}
}

func (e *ServiceError) Error() string {
	msg := string(e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Status != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	sentinel := e.Kind.Sentinel()
	return sentinel != nil && target == sentinel
}

// KindOf reports the taxonomy kind carried by err, or ErrorKindNone when err
// does not wrap one of the taxonomy sentinels.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Kind != ErrorKindNone {
		return serviceErr.Kind
	}

	for _, kind := range []ErrorKind{
		ErrorKindPoolExhausted,
		ErrorKindRetryBudgetExceeded,
		ErrorKindQuotaExceeded,
		ErrorKindTransient,
		ErrorKindFatal,
		ErrorKindNoExternalData,
	} {
		if errors.Is(err, kind.Sentinel()) {
			return kind
		}
	}

	return ErrorKindNone
}

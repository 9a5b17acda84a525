package videos

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the HTTP layer can pick a status code
type ErrorKind int

const (
	KindProcessing ErrorKind = iota
	KindInvalidInput
	KindServiceUnavailable
	KindUnreadableSource
	KindEncoderInit
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindUnreadableSource:
		return "unreadable_source"
	case KindEncoderInit:
		return "encoder_init"
	case KindNotFound:
		return "not_found"
	default:
		return "processing"
	}
}

// AnnotationError is returned by every stage of the upload and annotation flow
type AnnotationError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AnnotationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AnnotationError) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err. Errors that are not AnnotationErrors are processing errors.
func KindOf(err error) ErrorKind {
	var annErr *AnnotationError
	if errors.As(err, &annErr) {
		return annErr.Kind
	}
	return KindProcessing
}

func IsInvalidInputError(err error) bool {
	return err != nil && KindOf(err) == KindInvalidInput
}

func IsServiceUnavailableError(err error) bool {
	return err != nil && KindOf(err) == KindServiceUnavailable
}

func IsUnreadableSourceError(err error) bool {
	return err != nil && KindOf(err) == KindUnreadableSource
}

func IsEncoderInitError(err error) bool {
	return err != nil && KindOf(err) == KindEncoderInit
}

func IsNotFoundError(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

func NewInvalidInputError(message string) error {
	return &AnnotationError{Kind: KindInvalidInput, Message: message}
}

func NewServiceUnavailableError(message string) error {
	return &AnnotationError{Kind: KindServiceUnavailable, Message: message}
}

func NewUnreadableSourceError(message string, err error) error {
	return &AnnotationError{Kind: KindUnreadableSource, Message: message, Err: err}
}

func NewEncoderInitError(message string, err error) error {
	return &AnnotationError{Kind: KindEncoderInit, Message: message, Err: err}
}

func NewProcessingError(message string, err error) error {
	return &AnnotationError{Kind: KindProcessing, Message: message, Err: err}
}

func NewNotFoundError(name string) error {
	return &AnnotationError{Kind: KindNotFound, Message: "Video file not found: " + name}
}

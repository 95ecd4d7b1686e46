package pipeline

import (
	"errors"
	"fmt"
)

// Reason classifies a rendition failure for event payloads.
type Reason string

const (
	// ReasonGeneric is any wrapped or unclassified failure.
	ReasonGeneric Reason = "GenericError"
	// ReasonSourceUnsupported is a malformed or unsupported source URL or
	// data URI.
	ReasonSourceUnsupported Reason = "SourceUnsupported"
	// ReasonSourceCorrupt indicates the metadata probe failed in a way
	// that suggests bad bytes or an unknown container.
	ReasonSourceCorrupt Reason = "SourceCorrupt"
	// ReasonSourceFormatUnsupported means no transformer accepts the
	// source type.
	ReasonSourceFormatUnsupported Reason = "SourceFormatUnsupported"
	// ReasonRenditionFormatUnsupported means no transformer chain reaches
	// the requested output format.
	ReasonRenditionFormatUnsupported Reason = "RenditionFormatUnsupported"
	// ReasonRenditionTooLarge means the upload target rejected the
	// rendition's size.
	ReasonRenditionTooLarge Reason = "RenditionTooLarge"
)

// Error is a classified pipeline failure. Known reasons pass through the
// engine unchanged; everything else is wrapped as ReasonGeneric.
type Error struct {
	// Reason classifies the failure.
	Reason Reason
	// Message is the human-readable description.
	Message string
	// Location names the component where the failure surfaced
	// (e.g. "resize_executeTransformer").
	Location string
	// Cause is the underlying error, if any.
	Cause error
}

// Error renders the failure with its classification and location.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}

	if e.Location != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Reason, e.Location, msg)
	}

	return fmt.Sprintf("%s: %s", e.Reason, msg)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Cause }

// NewGenericError wraps an unclassified failure with its location.
func NewGenericError(location, message string) *Error {
	return &Error{Reason: ReasonGeneric, Location: location, Message: message}
}

// NewSourceUnsupported reports a malformed or unsupported source reference.
func NewSourceUnsupported(message string) *Error {
	return &Error{Reason: ReasonSourceUnsupported, Message: message}
}

// NewSourceCorrupt reports an unreadable or unidentifiable source.
func NewSourceCorrupt(message string) *Error {
	return &Error{Reason: ReasonSourceCorrupt, Message: message}
}

// NewSourceFormatUnsupported reports a source type no transformer accepts.
func NewSourceFormatUnsupported(message string) *Error {
	return &Error{Reason: ReasonSourceFormatUnsupported, Message: message}
}

// NewRenditionFormatUnsupported reports an unreachable output format.
func NewRenditionFormatUnsupported(message string) *Error {
	return &Error{Reason: ReasonRenditionFormatUnsupported, Message: message}
}

// NewRenditionTooLarge reports a rendition rejected for its size.
func NewRenditionTooLarge(message string) *Error {
	return &Error{Reason: ReasonRenditionTooLarge, Message: message}
}

// AsError extracts a classified *Error from an error chain, or nil.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return nil
}

// ReasonOf returns the classification of err, defaulting to ReasonGeneric
// for unclassified errors.
func ReasonOf(err error) Reason {
	if e := AsError(err); e != nil {
		return e.Reason
	}

	return ReasonGeneric
}

// WrapUnknown passes classified errors through unchanged and wraps anything
// else as a generic failure at the given location.
func WrapUnknown(err error, location string) *Error {
	if err == nil {
		return nil
	}

	if e := AsError(err); e != nil {
		return e
	}

	return &Error{Reason: ReasonGeneric, Location: location, Message: err.Error(), Cause: err}
}

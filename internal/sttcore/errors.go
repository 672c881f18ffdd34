// Package sttcore holds the error taxonomy shared by every component of the
// remote STT transport: the client pipeline, the worker pool, and the HTTP
// handler all return *Error so callers can branch with errors.Is against the
// Kind sentinels instead of string-matching messages.
package sttcore

import "fmt"

// Kind classifies an Error. Values are comparable; wrap one with Sentinel to
// use it with errors.Is.
type Kind int

const (
	KindUnknown Kind = iota
	KindIO
	KindProcessFailed
	KindProcessTimeout
	KindInvalidSrt
	KindAudioExtractionFailed
	KindAudioExtractionCancelled
	KindWav
	KindSttFailed
	KindSttCancelled
	KindInvalidPath
	KindCrypto
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindProcessFailed:
		return "process_failed"
	case KindProcessTimeout:
		return "process_timeout"
	case KindInvalidSrt:
		return "invalid_srt"
	case KindAudioExtractionFailed:
		return "audio_extraction_failed"
	case KindAudioExtractionCancelled:
		return "audio_extraction_cancelled"
	case KindWav:
		return "wav"
	case KindSttFailed:
		return "stt_failed"
	case KindSttCancelled:
		return "stt_cancelled"
	case KindInvalidPath:
		return "invalid_path"
	case KindCrypto:
		return "crypto"
	default:
		return "unknown"
	}
}

// Error is the error type returned across package boundaries in this module.
// Kind is a sentinel, Cause (if present) is the wrapped underlying error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, sttcore.Sentinel(kind)) style comparisons against
// a bare Kind value wrapped as an *Error with no message, used as a sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Cause == nil
}

// New builds an *Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error with the given kind, message, and underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Sentinel returns a bare sentinel value of kind for use with errors.Is.
func Sentinel(kind Kind) *Error { return &Error{Kind: kind} }

// Cancelled is the sentinel for a client-cancelled request.
var Cancelled = Sentinel(KindSttCancelled)

// Failed is the sentinel for a terminal (non-cancellation) STT failure.
var Failed = Sentinel(KindSttFailed)

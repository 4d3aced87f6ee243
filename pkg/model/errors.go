package model

import "errors"

// ErrorKind classifies failures talking to the remote backend.
type ErrorKind string

const (
	KindRemoteUnavailable    ErrorKind = "RemoteUnavailable"
	KindRemoteWriteExhausted ErrorKind = "RemoteWriteExhausted"
	KindMalformedResponse    ErrorKind = "MalformedResponse"
)

var (
	ErrRemoteUnavailable    = errors.New("remote unavailable")
	ErrRemoteWriteExhausted = errors.New("remote write exhausted")
	ErrMalformedResponse    = errors.New("malformed response")
)

// KindOf maps an error chain onto an ErrorKind. Unclassified errors are
// treated as RemoteUnavailable.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	case errors.Is(err, ErrRemoteWriteExhausted):
		return KindRemoteWriteExhausted
	default:
		return KindRemoteUnavailable
	}
}

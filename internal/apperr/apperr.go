// Package apperr defines the error taxonomy shared by the ingestion
// core: client-facing kinds carry an HTTP status, fatal kinds are
// wrapped with the detail string the worker writes into a job's
// error field on failure.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindClientError        Kind = "ClientError"
	KindRowError           Kind = "RowError"
	KindBatchError         Kind = "BatchError"
	KindStorageUnavailable Kind = "StorageUnavailable"
	KindBrokerUnavailable  Kind = "BrokerUnavailable"
	KindDatabaseUnavailable Kind = "DatabaseUnavailable"
	KindObjectMissing      Kind = "ObjectMissing"
)

// Error wraps an underlying cause with a taxonomy kind.
type Error struct {
	Kind   Kind
	Status int // only meaningful for ClientError
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Summary renders the "<kind>: <message>" form the worker persists
// into ImportJob.Error on a fatal failure.
func (e *Error) Summary() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func ClientError(status int, msg string) *Error {
	return &Error{Kind: KindClientError, Status: status, Msg: msg}
}

func BadRequest(msg string) *Error    { return ClientError(http.StatusBadRequest, msg) }
func Unauthorized(msg string) *Error  { return ClientError(http.StatusUnauthorized, msg) }
func NotFound(msg string) *Error      { return ClientError(http.StatusNotFound, msg) }
func Conflict(msg string) *Error      { return ClientError(http.StatusConflict, msg) }
func Unavailable(msg string) *Error   { return ClientError(http.StatusServiceUnavailable, msg) }

func Storage(err error) *Error  { return &Error{Kind: KindStorageUnavailable, Err: err} }
func Broker(err error) *Error   { return &Error{Kind: KindBrokerUnavailable, Err: err} }
func Database(err error) *Error { return &Error{Kind: KindDatabaseUnavailable, Err: err} }
func Batch(err error) *Error    { return &Error{Kind: KindBatchError, Err: err} }

var ErrObjectMissing = errors.New("object missing")

// As is a thin convenience wrapper over errors.As for *Error.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

package protocol

import (
	"errors"
	"fmt"
)

// Error is returned by Client implementations for failed requests
type Error struct {
	Code ResultCode
	Msg  string
	// InDoubt is set if a write may have been applied although the request failed
	InDoubt bool
}

// NewError creates a new protocol error
func NewError(code ResultCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("AEROSPIKE_ERR (%d): %s", int32(e.Code), e.Msg)
	if e.Msg == "" {
		msg = fmt.Sprintf("AEROSPIKE_ERR (%d): %s", int32(e.Code), e.Code)
	}
	if e.InDoubt {
		msg += " [in_doubt]"
	}
	return msg
}

// Is matches other protocol errors with the same code
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// CodeOf extracts the result code of err. Errors that are no protocol errors report
// ResultClientError, nil reports ResultOK.
func CodeOf(err error) ResultCode {
	if err == nil {
		return ResultOK
	}
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Code
	}
	return ResultClientError
}

// IsRecordLevel reports whether a code only concerns a single record. Such codes are stored
// per row by batch reads instead of failing the whole request.
func IsRecordLevel(code ResultCode) bool {
	switch code {
	case ResultOK, ResultKeyNotFound, ResultGeneration, ResultKeyExists, ResultBinExists,
		ResultRecordTooBig, ResultBinType, ResultBinNotFound, ResultBinNameTooLong,
		ResultFilteredOut, ResultKeyBusy, ResultLostConflict:
		return true
	default:
		return false
	}
}

package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/conn"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
)

// ErrCancelled is returned by awaitables cancelled before their task finished
var ErrCancelled = errors.New("bridge: operation cancelled")

// --------------------------------------------------------------------------
// Error classes
// --------------------------------------------------------------------------

// Class is a node of the error hierarchy. A Class is itself an error so it can be used as
// the target of errors.Is: errors.Is(err, bridge.ErrRecord) matches every record error.
type Class uint8

const (
	ClassBase Class = iota
	ClassClient
	ClassServer
	ClassRecord
	ClassCluster
	ClassTimeout
	ClassInvalidArg

	ClassNotFound
	ClassExists
	ClassGeneration
	ClassTooBig
	ClassBinName
	ClassBinExists
	ClassBinNotFound
	ClassBinType
	ClassFilteredOut

	ClassIndex
	ClassIndexFound
	ClassIndexNotFound
	ClassQuery
	ClassQueryAborted
	ClassAdmin
	ClassUDF
)

var classParent = map[Class]Class{
	ClassClient:     ClassBase,
	ClassServer:     ClassBase,
	ClassRecord:     ClassBase,
	ClassCluster:    ClassBase,
	ClassTimeout:    ClassBase,
	ClassInvalidArg: ClassBase,

	ClassNotFound:    ClassRecord,
	ClassExists:      ClassRecord,
	ClassGeneration:  ClassRecord,
	ClassTooBig:      ClassRecord,
	ClassBinName:     ClassRecord,
	ClassBinExists:   ClassRecord,
	ClassBinNotFound: ClassRecord,
	ClassBinType:     ClassRecord,
	ClassFilteredOut: ClassRecord,

	ClassIndex:         ClassServer,
	ClassIndexFound:    ClassIndex,
	ClassIndexNotFound: ClassIndex,
	ClassQuery:         ClassServer,
	ClassQueryAborted:  ClassQuery,
	ClassAdmin:         ClassServer,
	ClassUDF:           ClassServer,
}

var classNames = map[Class]string{
	ClassBase:          "AerospikeError",
	ClassClient:        "ClientError",
	ClassServer:        "ServerError",
	ClassRecord:        "RecordError",
	ClassCluster:       "ClusterError",
	ClassTimeout:       "AerospikeTimeoutError",
	ClassInvalidArg:    "InvalidArgError",
	ClassNotFound:      "RecordNotFound",
	ClassExists:        "RecordExistsError",
	ClassGeneration:    "RecordGenerationError",
	ClassTooBig:        "RecordTooBig",
	ClassBinName:       "BinNameError",
	ClassBinExists:     "BinExistsError",
	ClassBinNotFound:   "BinNotFound",
	ClassBinType:       "BinTypeError",
	ClassFilteredOut:   "FilteredOut",
	ClassIndex:         "IndexError",
	ClassIndexFound:    "IndexFoundError",
	ClassIndexNotFound: "IndexNotFound",
	ClassQuery:         "QueryError",
	ClassQueryAborted:  "QueryAbortedError",
	ClassAdmin:         "AdminError",
	ClassUDF:           "UDFError",
}

// Convenience aliases for errors.Is targets
var (
	ErrAerospike  error = ClassBase
	ErrClient     error = ClassClient
	ErrServer     error = ClassServer
	ErrRecord     error = ClassRecord
	ErrCluster    error = ClassCluster
	ErrTimeout    error = ClassTimeout
	ErrInvalidArg error = ClassInvalidArg
	ErrNotFound   error = ClassNotFound
	ErrGeneration error = ClassGeneration
)

func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Class(%d)", uint8(c))
}

// Error implements the error interface so classes can be errors.Is targets
func (c Class) Error() string {
	return c.String()
}

// Parent returns the parent class. The root returns itself.
func (c Class) Parent() Class {
	if p, ok := classParent[c]; ok {
		return p
	}
	return ClassBase
}

// IsA reports whether c equals other or descends from it
func (c Class) IsA(other Class) bool {
	for {
		if c == other {
			return true
		}
		if c == ClassBase {
			return false
		}
		c = c.Parent()
	}
}

// ClassOf maps a result code to its error class
func ClassOf(code protocol.ResultCode) Class {
	switch code {
	case protocol.ResultKeyNotFound:
		return ClassNotFound
	case protocol.ResultKeyExists:
		return ClassExists
	case protocol.ResultGeneration:
		return ClassGeneration
	case protocol.ResultRecordTooBig:
		return ClassTooBig
	case protocol.ResultBinNameTooLong:
		return ClassBinName
	case protocol.ResultBinExists:
		return ClassBinExists
	case protocol.ResultBinNotFound:
		return ClassBinNotFound
	case protocol.ResultBinType:
		return ClassBinType
	case protocol.ResultFilteredOut:
		return ClassFilteredOut
	case protocol.ResultTimeout, protocol.ResultClientTimeout:
		return ClassTimeout
	case protocol.ResultParameter:
		return ClassInvalidArg
	case protocol.ResultIndexFound:
		return ClassIndexFound
	case protocol.ResultIndexNotFound:
		return ClassIndexNotFound
	case protocol.ResultQueryAborted:
		return ClassQueryAborted
	case protocol.ResultQueryEnd:
		return ClassQuery
	case protocol.ResultSecurityNotSupported, protocol.ResultSecurityNotEnabled, protocol.ResultInvalidUser,
		protocol.ResultNotAuthenticated, protocol.ResultRoleViolation:
		return ClassAdmin
	case protocol.ResultUDFBadResponse:
		return ClassUDF
	case protocol.ResultPartitionUnavailable, protocol.ResultClusterKeyMismatch, protocol.ResultClusterError,
		protocol.ResultInvalidNodeError:
		return ClassCluster
	}
	if code < 0 {
		return ClassClient
	}
	return ClassServer
}

// --------------------------------------------------------------------------
// Mapped error
// --------------------------------------------------------------------------

// Error is the error type returned to call sites
type Error struct {
	Class   Class
	Code    protocol.ResultCode
	Msg     string
	InDoubt bool
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Code.String()
	}
	s := fmt.Sprintf("AEROSPIKE_ERR (%d): %s", int32(e.Code), msg)
	if e.InDoubt {
		s += " [in_doubt]"
	}
	return s
}

// Unwrap returns the original error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches error classes along the hierarchy
func (e *Error) Is(target error) bool {
	if c, ok := target.(Class); ok {
		return e.Class.IsA(c)
	}
	return false
}

// MapError converts errors of the protocol client and the runtime into *Error.
// Cancellation is reported as ErrCancelled.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var mapped *Error
	if errors.As(err, &mapped) {
		return mapped
	}

	var pErr *protocol.Error
	switch {
	case errors.As(err, &pErr):
		return &Error{Class: ClassOf(pErr.Code), Code: pErr.Code, Msg: pErr.Msg, InDoubt: pErr.InDoubt, Cause: err}
	case errors.Is(err, ErrCancelled):
		return err
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Class: ClassTimeout, Code: protocol.ResultClientTimeout, Msg: err.Error(), Cause: err}
	case errors.Is(err, conn.ErrClosed):
		return &Error{Class: ClassClient, Code: protocol.ResultConnectionError, Msg: err.Error(), Cause: err}
	default:
		// includes runtime.ErrExecutorClosed and host.ErrLoopClosed
		return &Error{Class: ClassClient, Code: protocol.ResultClientError, Msg: err.Error(), Cause: err}
	}
}

package snapshot

import (
	"errors"
	"fmt"
)

// Error codes for persisted representations.
const (
	// ErrCodeMalformedState covers state files: unknown fields, fields
	// inconsistent with the declared status, unparseable numerics.
	ErrCodeMalformedState = "MALFORMED_STATE"
	// ErrCodeMalformedQueue covers queue files: non-array body, unknown
	// entry fields, duplicate explicit ids.
	ErrCodeMalformedQueue = "MALFORMED_QUEUE_FILE"
)

// MalformedError reports an invalid persisted state or queue representation.
// Loading is all-or-nothing: a malformed file never mutates session state.
type MalformedError struct {
	Code    string
	Message string
	Err     error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// IsMalformedState reports whether err is a malformed state file error.
func IsMalformedState(err error) bool {
	var me *MalformedError
	return errors.As(err, &me) && me.Code == ErrCodeMalformedState
}

// IsMalformedQueue reports whether err is a malformed queue file error.
func IsMalformedQueue(err error) bool {
	var me *MalformedError
	return errors.As(err, &me) && me.Code == ErrCodeMalformedQueue
}

func malformedState(msg string, err error) *MalformedError {
	return &MalformedError{Code: ErrCodeMalformedState, Message: msg, Err: err}
}

func malformedQueue(msg string, err error) *MalformedError {
	return &MalformedError{Code: ErrCodeMalformedQueue, Message: msg, Err: err}
}

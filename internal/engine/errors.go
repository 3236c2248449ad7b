package engine

import (
	"errors"
	"fmt"
)

// DebugErrorCode categorizes driver and session errors.
type DebugErrorCode string

const (
	// ErrCodeEmptyQueue means a run was requested on an empty queue.
	ErrCodeEmptyQueue DebugErrorCode = "EMPTY_QUEUE"

	// ErrCodeMessageNotFound means no pending message has the given id.
	ErrCodeMessageNotFound DebugErrorCode = "MESSAGE_NOT_FOUND"

	// ErrCodeNoExecutionResult means the executor produced zero
	// transactions for a submitted message. Fatal to the current
	// operation; the session itself stays usable.
	ErrCodeNoExecutionResult DebugErrorCode = "NO_EXECUTION_RESULT"

	// ErrCodeRunLimitExceeded means a drain exceeded its step limit,
	// usually a message feedback loop.
	ErrCodeRunLimitExceeded DebugErrorCode = "RUN_LIMIT_EXCEEDED"

	// ErrCodeCompilationFailure means the external compiler rejected the
	// actor source.
	ErrCodeCompilationFailure DebugErrorCode = "COMPILATION_FAILURE"
)

// DebugError is a structured error from the execution driver.
//
// Every code except NO_EXECUTION_RESULT is recovered at the command
// boundary: reported to the operator, session state unchanged, command loop
// continues.
type DebugError struct {
	Code DebugErrorCode

	// Message is a human-readable description.
	Message string

	// MessageID identifies the affected message, when there is one.
	MessageID int64

	// Details carries additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *DebugError) Error() string {
	if e.MessageID != 0 {
		return fmt.Sprintf("%s: %s (message=%d)", e.Code, e.Message, e.MessageID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsEmptyQueue reports whether err is an empty-queue error.
// Uses errors.As to handle wrapped errors.
func IsEmptyQueue(err error) bool {
	var de *DebugError
	return errors.As(err, &de) && de.Code == ErrCodeEmptyQueue
}

// IsMessageNotFound reports whether err is a message-not-found error.
func IsMessageNotFound(err error) bool {
	var de *DebugError
	return errors.As(err, &de) && de.Code == ErrCodeMessageNotFound
}

// IsNoExecutionResult reports whether err is the fatal zero-transactions
// fault.
func IsNoExecutionResult(err error) bool {
	var de *DebugError
	return errors.As(err, &de) && de.Code == ErrCodeNoExecutionResult
}

// IsRunLimitExceeded reports whether err is a drain step-limit error.
func IsRunLimitExceeded(err error) bool {
	var de *DebugError
	return errors.As(err, &de) && de.Code == ErrCodeRunLimitExceeded
}

// NewEmptyQueueError builds the error for a run on an empty queue.
func NewEmptyQueueError() *DebugError {
	return &DebugError{
		Code:    ErrCodeEmptyQueue,
		Message: "pending queue is empty",
	}
}

// NewMessageNotFoundError builds the error for a run-by-id miss.
func NewMessageNotFoundError(id int64) *DebugError {
	return &DebugError{
		Code:      ErrCodeMessageNotFound,
		Message:   "no pending message with this id",
		MessageID: id,
	}
}

// NewNoExecutionResultError builds the fatal zero-transactions error.
func NewNoExecutionResultError(id int64, cause error) *DebugError {
	e := &DebugError{
		Code:      ErrCodeNoExecutionResult,
		Message:   "executor produced no transaction",
		MessageID: id,
	}
	if cause != nil {
		e.Details = map[string]string{"cause": cause.Error()}
	}
	return e
}

// NewRunLimitError builds the drain step-limit error.
func NewRunLimitError(steps, limit int) *DebugError {
	return &DebugError{
		Code:    ErrCodeRunLimitExceeded,
		Message: fmt.Sprintf("drain exceeded step limit (%d >= %d)", steps, limit),
		Details: map[string]string{
			"steps": fmt.Sprintf("%d", steps),
			"limit": fmt.Sprintf("%d", limit),
		},
	}
}

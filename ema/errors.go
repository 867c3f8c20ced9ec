package ema

import (
	"errors"
	"fmt"
)

var (
	// ErrCommandFailed indicates a reply carrying the fail result that the caller did not expect.
	ErrCommandFailed = errors.New("ema: command failed")

	// ErrUnexpectedReply indicates a reply that is neither the expected token nor a failure.
	ErrUnexpectedReply = errors.New("ema: unexpected reply")

	// ErrInvalidExpectation indicates an ExpectSuccess token that is itself a failure reply.
	ErrInvalidExpectation = errors.New("ema: success expectation names a fail reply")

	// ErrConnConfigNil indicates that a nil ConnectionConfig was provided.
	ErrConnConfigNil = errors.New("ema: connection config is nil")
)

// CommandError is returned when the controller answers a command with the fail result.
type CommandError struct {
	Command string
	Reply   string
	// Detail is the quoted reason carried by the reply, if any.
	Detail string
}

func (e *CommandError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ema: command %q failed: %s (reply %q)", e.Command, e.Detail, e.Reply)
	}
	return fmt.Sprintf("ema: command %q failed (reply %q)", e.Command, e.Reply)
}

func (e *CommandError) Unwrap() error { return ErrCommandFailed }

// UnexpectedReplyError is returned when the reply differs from the expected token.
type UnexpectedReplyError struct {
	Command  string
	Expected string
	Actual   string
}

func (e *UnexpectedReplyError) Error() string {
	return fmt.Sprintf("ema: unexpected reply to %q: expected %q, got %q", e.Command, e.Expected, e.Actual)
}

func (e *UnexpectedReplyError) Unwrap() error { return ErrUnexpectedReply }

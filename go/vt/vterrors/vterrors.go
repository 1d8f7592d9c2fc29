/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package vterrors provides simple error handling primitives for the planner
// state layer.
//
// All errors created by this package carry a gRPC status code. Use Code to
// retrieve the code of any error; errors that did not originate here report
// codes.Unknown. Wrap and Wrapf annotate an error with additional context
// while keeping its code, and the result works with errors.Is and errors.As.
//
// The codes are interpreted as follows:
//
//	DeadlineExceeded: a bounded wait (e.g. a table read lock) ran out of time.
//	    The caller may retry the whole statement.
//	NotFound: a table or column could not be resolved.
//	PermissionDenied: the caller may not access the object.
//	FailedPrecondition: the object is in the wrong state for the call,
//	    e.g. a statement context that has been closed.
//	ResourceExhausted: a bounded queue or budget is full.
//	Internal: an invariant was violated. These indicate bugs.
package vterrors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

type vtError struct {
	code codes.Code
	msg  string
	// cause is set for wrapped errors.
	cause error
}

// New returns an error with the supplied message and code.
func New(code codes.Code, message string) error {
	return &vtError{code: code, msg: message}
}

// Errorf formats according to a format specifier and returns the string
// as a value that satisfies error.
func Errorf(code codes.Code, format string, args ...any) error {
	return &vtError{code: code, msg: fmt.Sprintf(format, args...)}
}

func (e *vtError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *vtError) Unwrap() error {
	return e.cause
}

// ErrorCode returns the code of the error.
func (e *vtError) ErrorCode() codes.Code {
	return e.code
}

// Wrap returns an error annotating err with message. The code of err is
// preserved. If err is nil, Wrap returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &vtError{code: Code(err), msg: message, cause: err}
}

// Wrapf returns an error annotating err with the format specifier.
// If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &vtError{code: Code(err), msg: fmt.Sprintf(format, args...), cause: err}
}

// Code returns the error code if it's a vtError.
// If err is nil, it returns codes.OK.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var vtErr *vtError
	if errors.As(err, &vtErr) {
		return vtErr.code
	}
	return codes.Unknown
}

// IsRetryable reports whether the error is one that the statement's caller
// may retry from scratch.
func IsRetryable(err error) bool {
	switch Code(err) {
	case codes.DeadlineExceeded, codes.Aborted, codes.Unavailable:
		return true
	}
	return false
}

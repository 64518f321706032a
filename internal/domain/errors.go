/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import (
    "errors"
    "fmt"
)

type ErrorKind string

const (
    KindValidation      ErrorKind = "validation"
    KindQueryTimeout    ErrorKind = "query_timeout"
    KindRateLimited     ErrorKind = "rate_limit_exceeded"
    KindQueryExecution  ErrorKind = "query_execution"
    KindQuerySyntax     ErrorKind = "query_syntax"
    KindQueryPermission ErrorKind = "query_permission"
)

// Error is the structured failure every operation surfaces: a kind the caller
// can branch on, the remote error code when one was reported, and a message.
type Error struct {
    Kind    ErrorKind
    Code    string
    Message string
    cause   error
}

func (e *Error) Error() string {
    if e.Code != "" { return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Code, e.Message) }
    return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func NewError(kind ErrorKind, code, message string, cause error) *Error {
    return &Error{Kind: kind, Code: code, Message: message, cause: cause}
}

func Validationf(format string, args ...any) *Error {
    return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Timeoutf(format string, args ...any) *Error {
    return &Error{Kind: KindQueryTimeout, Message: fmt.Sprintf(format, args...)}
}

func RateLimitedf(format string, args ...any) *Error {
    return &Error{Kind: KindRateLimited, Message: fmt.Sprintf(format, args...)}
}

func Executionf(cause error, format string, args ...any) *Error {
    return &Error{Kind: KindQueryExecution, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf classifies any error; non-domain errors count as execution failures.
func KindOf(err error) ErrorKind {
    var de *Error
    if errors.As(err, &de) { return de.Kind }
    return KindQueryExecution
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }

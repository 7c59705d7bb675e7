// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package moerr carries the coded errors raised by this library.
package moerr

import (
	"errors"
	"fmt"
)

const (
	// Ok is never returned; it exists so that zero is not a valid code.
	Ok uint16 = 0

	ErrInvalidInput uint16 = 20101
	ErrInternal     uint16 = 20102
	ErrOOM          uint16 = 20103
)

type Error struct {
	code uint16
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

func newError(code uint16, msg string) *Error {
	return &Error{code: code, msg: msg}
}

func NewInvalidInput(format string, args ...interface{}) *Error {
	return newError(ErrInvalidInput, "invalid input: "+fmt.Sprintf(format, args...))
}

func NewInternalError(format string, args ...interface{}) *Error {
	return newError(ErrInternal, "internal error: "+fmt.Sprintf(format, args...))
}

func NewOOM(pool string, want, cap int64) *Error {
	return newError(ErrOOM, fmt.Sprintf("out of memory: pool %s, want %d, cap %d", pool, want, cap))
}

// IsMoErrCode reports whether err is a moerr with the given code.
func IsMoErrCode(err error, code uint16) bool {
	var me *Error
	if !errors.As(err, &me) {
		return false
	}
	return me.code == code
}

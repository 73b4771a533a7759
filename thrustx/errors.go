// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package thrustx

import (
	"errors"
	"fmt"

	"github.com/go-stack/stack"
)

var (
	// ErrInvalidArgument is matched by every precondition failure, whether
	// returned by ReduceByN or raised as a panic by a view constructor.
	ErrInvalidArgument = errors.New("thrustx: invalid argument")

	// ErrNoBackend is returned when a Backend lacks a Primitive or an
	// Allocator.
	ErrNoBackend = errors.New("thrustx: backend has no primitive or allocator")
)

// pkgPath is used to skip this package's own frames when locating the caller
// that passed a bad argument.
const pkgPath = "github.com/ajroetker/go-thrustx/thrustx"

// ArgumentError describes a precondition violation. View constructors panic
// with it; ReduceByN returns it.
type ArgumentError struct {
	Op     string
	Msg    string
	Caller stack.Call
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s (called from %+v)", e.Op, e.Msg, e.Caller)
}

// Unwrap makes errors.Is(err, ErrInvalidArgument) hold.
func (e *ArgumentError) Unwrap() error { return ErrInvalidArgument }

func newArgumentError(op, format string, args ...any) *ArgumentError {
	return &ArgumentError{
		Op:     op,
		Msg:    fmt.Sprintf(format, args...),
		Caller: externalCaller(),
	}
}

// externalCaller returns the innermost frame outside this package.
func externalCaller() stack.Call {
	trace := stack.Trace().TrimRuntime()
	for _, c := range trace {
		if fmt.Sprintf("%+k", c) != pkgPath {
			return c
		}
	}
	if len(trace) > 0 {
		return trace[len(trace)-1]
	}
	return stack.Caller(0)
}

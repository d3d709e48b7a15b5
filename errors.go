// Copyright 2025 The webcrypto Authors
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

package webcrypto

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() checks. Every rejection produced by the
// dispatcher wraps exactly one of these.
var (
	// ErrNotSupported is returned when an algorithm name is not registered
	// for the requested operation, or a required capability is missing from
	// the algorithm module.
	ErrNotSupported = errors.New("not supported")

	// ErrInvalidAccess is returned on an algorithm/key name mismatch, a
	// missing required key usage, or an attempt to extract a
	// non-extractable key.
	ErrInvalidAccess = errors.New("invalid access")

	// ErrSyntax is returned for a malformed algorithm descriptor, an
	// unknown usage token, or a secret/private key constructed with no
	// usages.
	ErrSyntax = errors.New("syntax error")

	// ErrData is returned when key material cannot be parsed in the
	// declared format.
	ErrData = errors.New("data error")

	// ErrType is returned on a format/material shape mismatch: a byte
	// buffer where a JSON Web Key was expected, or the reverse.
	ErrType = errors.New("type mismatch")

	// ErrOperation is returned for algorithm-internal failures such as an
	// authentication tag mismatch or bad padding.
	ErrOperation = errors.New("operation error")
)

// Error is the error type produced by the dispatcher. It records which
// public operation failed and, when known, the algorithm involved. The
// wrapped error always matches one of the package sentinels via
// errors.Is.
type Error struct {
	// Op is the public operation that failed ("encrypt", "wrapKey", ...).
	Op string
	// Alg is the canonical algorithm name, when normalization got far
	// enough to determine one.
	Alg string
	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	if e.Alg != "" {
		return fmt.Sprintf("webcrypto: %s %s: %v", e.Op, e.Alg, e.Err)
	}
	return fmt.Sprintf("webcrypto: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

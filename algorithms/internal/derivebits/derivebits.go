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

// Package derivebits trims shared secrets to a requested bit length.
package derivebits

import (
	"fmt"

	"github.com/Aconitin/webcrypto"
)

// Truncate returns the leftmost length bits of secret. A length of zero
// returns the whole secret; a length beyond the secret is an error. Bits
// past the requested length in the final byte are zeroed.
func Truncate(secret []byte, length int) ([]byte, error) {
	if length == 0 {
		return secret, nil
	}
	if length < 0 || length > len(secret)*8 {
		return nil, fmt.Errorf("%w: cannot derive %d bits from a %d-bit secret", webcrypto.ErrOperation, length, len(secret)*8)
	}
	out := secret[:(length+7)/8]
	if rem := length % 8; rem != 0 {
		out[len(out)-1] &= byte(0xFF << (8 - rem))
	}
	return out, nil
}

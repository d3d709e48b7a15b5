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

package derivebits

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Aconitin/webcrypto"
)

func TestTruncate(t *testing.T) {
	secret := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	for _, tc := range []struct {
		length int
		want   []byte
	}{
		{length: 0, want: []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{length: 32, want: []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{length: 24, want: []byte{0xFF, 0xFF, 0xFF}},
		{length: 12, want: []byte{0xFF, 0xF0}},
		{length: 1, want: []byte{0x80}},
	} {
		got, err := Truncate(bytes.Clone(secret), tc.length)
		if err != nil {
			t.Fatalf("Truncate(%d) err = %v, want nil", tc.length, err)
		}
		if !bytes.Equal(got, tc.want) {
			t.Errorf("Truncate(%d) = %x, want %x", tc.length, got, tc.want)
		}
	}
}

func TestTruncateTooLong(t *testing.T) {
	if _, err := Truncate(make([]byte, 4), 33); !errors.Is(err, webcrypto.ErrOperation) {
		t.Errorf("Truncate() err = %v, want ErrOperation", err)
	}
	if _, err := Truncate(make([]byte, 4), -8); !errors.Is(err, webcrypto.ErrOperation) {
		t.Errorf("Truncate() err = %v, want ErrOperation", err)
	}
}

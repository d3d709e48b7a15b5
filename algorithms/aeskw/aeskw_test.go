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

package aeskw

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/insecuresecretdataaccess"
	"github.com/Aconitin/webcrypto/secretdata"
)

func kekKey(t *testing.T, kekHex string) *webcrypto.Key {
	t.Helper()
	kek, err := hex.DecodeString(kekHex)
	if err != nil {
		t.Fatalf("bad kek hex: %v", err)
	}
	material := secretdata.NewBytesFromData(kek, insecuresecretdataaccess.Token{})
	key, err := webcrypto.NewKey(webcrypto.Secret, true,
		webcrypto.KeyAlgorithm{Name: Name, Length: len(kek) * 8},
		[]webcrypto.KeyUsage{webcrypto.UsageWrapKey, webcrypto.UsageUnwrapKey}, material)
	if err != nil {
		t.Fatalf("NewKey() err = %v, want nil", err)
	}
	return key
}

var params = &Params{Algorithm: webcrypto.Algorithm{Name: Name}}

// Vectors from RFC 3394 section 4.
func TestWrapUnwrapVectors(t *testing.T) {
	for _, tc := range []struct {
		kek, plaintext, wrapped string
	}{
		{
			kek:       "000102030405060708090a0b0c0d0e0f",
			plaintext: "00112233445566778899aabbccddeeff",
			wrapped:   "1fa68b0a8112b447aef34bd8fb5a7b829d3e862371d2cfe5",
		},
		{
			kek:       "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
			plaintext: "00112233445566778899aabbccddeeff",
			wrapped:   "64e8c3f9ce0f5ba263e9777905818a2a93c8191e7d6e8ae7",
		},
		{
			kek:       "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
			plaintext: "00112233445566778899aabbccddeeff000102030405060708090a0b0c0d0e0f",
			wrapped:   "28c9f404c4b810f4cbccb35cfb87f8263f5786e2d80ed326cbc7f0e71a99f43bfb988b9b7a02dd21",
		},
	} {
		t.Run(fmt.Sprintf("kek%d-data%d", len(tc.kek)*4, len(tc.plaintext)*4), func(t *testing.T) {
			key := kekKey(t, tc.kek)
			plaintext, _ := hex.DecodeString(tc.plaintext)

			wrapped, err := module{}.WrapKey(params, key, plaintext)
			if err != nil {
				t.Fatalf("WrapKey() err = %v, want nil", err)
			}
			if got := hex.EncodeToString(wrapped); got != tc.wrapped {
				t.Errorf("WrapKey() = %s, want %s", got, tc.wrapped)
			}

			unwrapped, err := module{}.UnwrapKey(params, key, wrapped)
			if err != nil {
				t.Fatalf("UnwrapKey() err = %v, want nil", err)
			}
			if !bytes.Equal(unwrapped, plaintext) {
				t.Errorf("UnwrapKey() = %x, want %s", unwrapped, tc.plaintext)
			}
		})
	}
}

func TestUnwrapCorruptedCiphertext(t *testing.T) {
	key := kekKey(t, "000102030405060708090a0b0c0d0e0f")
	wrapped, err := module{}.WrapKey(params, key, make([]byte, 16))
	if err != nil {
		t.Fatalf("WrapKey() err = %v, want nil", err)
	}
	wrapped[0] ^= 0x01
	if _, err = (module{}).UnwrapKey(params, key, wrapped); !errors.Is(err, webcrypto.ErrOperation) {
		t.Errorf("UnwrapKey() err = %v, want ErrOperation", err)
	}
}

func TestWrapRejectsBadSizes(t *testing.T) {
	key := kekKey(t, "000102030405060708090a0b0c0d0e0f")
	for _, size := range []int{0, 8, 12, 17} {
		if _, err := (module{}).WrapKey(params, key, make([]byte, size)); !errors.Is(err, webcrypto.ErrOperation) {
			t.Errorf("WrapKey(%d bytes) err = %v, want ErrOperation", size, err)
		}
	}
}

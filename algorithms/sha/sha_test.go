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

package sha

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/Aconitin/webcrypto"
)

// Standard single-block test vectors for the message "abc".
func TestDigestVectors(t *testing.T) {
	for name, want := range map[string]string{
		"SHA-1":    "a9993e364706816aba3e25717850c26c9cd0d89d",
		"SHA-256":  "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		"SHA-384":  "cb00753f45a35e8bb5a03d699ac65007272c32ab0eded1631a8b605a43ff5bed8086072ba1e7cc2358baeca134c825a7",
		"SHA-512":  "ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f",
		"SHA3-256": "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532",
	} {
		t.Run(name, func(t *testing.T) {
			params := &Params{Algorithm: webcrypto.Algorithm{Name: name}}
			got, err := digester{}.Digest(params, []byte("abc"))
			if err != nil {
				t.Fatalf("Digest() err = %v, want nil", err)
			}
			if hex.EncodeToString(got) != want {
				t.Errorf("Digest() = %x, want %s", got, want)
			}
		})
	}
}

func TestDigestUnknownName(t *testing.T) {
	params := &Params{Algorithm: webcrypto.Algorithm{Name: "MD5"}}
	if _, err := (digester{}).Digest(params, nil); !errors.Is(err, webcrypto.ErrNotSupported) {
		t.Errorf("Digest() err = %v, want ErrNotSupported", err)
	}
}

func TestHashProperties(t *testing.T) {
	for name, info := range hashes {
		newHash, err := HashFunc(name)
		if err != nil {
			t.Fatalf("HashFunc(%q) err = %v, want nil", name, err)
		}
		h := newHash()
		if h.Size() != info.digestSize {
			t.Errorf("%s Size() = %d, want %d", name, h.Size(), info.digestSize)
		}
		if h.BlockSize() != info.blockSize {
			t.Errorf("%s BlockSize() = %d, want %d", name, h.BlockSize(), info.blockSize)
		}
	}
}

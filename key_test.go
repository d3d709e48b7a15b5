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

package webcrypto_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Aconitin/webcrypto"
)

func TestNormalizeUsages(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   []webcrypto.KeyUsage
		want []webcrypto.KeyUsage
	}{
		{
			name: "empty",
			in:   nil,
			want: []webcrypto.KeyUsage{},
		},
		{
			name: "deduplicates",
			in:   []webcrypto.KeyUsage{"encrypt", "decrypt", "encrypt"},
			want: []webcrypto.KeyUsage{"encrypt", "decrypt"},
		},
		{
			name: "preserves first occurrence order",
			in:   []webcrypto.KeyUsage{"wrapKey", "sign", "wrapKey", "sign"},
			want: []webcrypto.KeyUsage{"wrapKey", "sign"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := webcrypto.NormalizeUsages(tc.in)
			if err != nil {
				t.Fatalf("NormalizeUsages(%v) err = %v, want nil", tc.in, err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("NormalizeUsages(%v) diff (-want +got):\n%s", tc.in, diff)
			}
		})
	}
}

func TestNormalizeUsagesUnknownToken(t *testing.T) {
	_, err := webcrypto.NormalizeUsages([]webcrypto.KeyUsage{"encrypt", "launder"})
	if !errors.Is(err, webcrypto.ErrSyntax) {
		t.Errorf("NormalizeUsages() err = %v, want ErrSyntax", err)
	}
}

func TestNewKeyInvariants(t *testing.T) {
	alg := webcrypto.KeyAlgorithm{Name: "AES-GCM", Length: 256}
	for _, tc := range []struct {
		name    string
		keyType webcrypto.KeyType
		usages  []webcrypto.KeyUsage
		wantErr error
	}{
		{
			name:    "secret key with usages",
			keyType: webcrypto.Secret,
			usages:  []webcrypto.KeyUsage{"encrypt"},
		},
		{
			name:    "secret key with no usages",
			keyType: webcrypto.Secret,
			usages:  nil,
			wantErr: webcrypto.ErrSyntax,
		},
		{
			name:    "private key with no usages",
			keyType: webcrypto.Private,
			usages:  nil,
			wantErr: webcrypto.ErrSyntax,
		},
		{
			name:    "public key with no usages",
			keyType: webcrypto.Public,
			usages:  nil,
		},
		{
			name:    "public key with permitted usages",
			keyType: webcrypto.Public,
			usages:  []webcrypto.KeyUsage{"encrypt", "verify", "wrapKey"},
		},
		{
			name:    "public key with decrypt",
			keyType: webcrypto.Public,
			usages:  []webcrypto.KeyUsage{"decrypt"},
			wantErr: webcrypto.ErrSyntax,
		},
		{
			name:    "public key with sign",
			keyType: webcrypto.Public,
			usages:  []webcrypto.KeyUsage{"sign"},
			wantErr: webcrypto.ErrSyntax,
		},
		{
			name:    "unknown usage token",
			keyType: webcrypto.Secret,
			usages:  []webcrypto.KeyUsage{"encrypt", "bogus"},
			wantErr: webcrypto.ErrSyntax,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			key, err := webcrypto.NewKey(tc.keyType, true, alg, tc.usages, nil)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("NewKey() err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewKey() err = %v, want nil", err)
			}
			if key.Type() != tc.keyType {
				t.Errorf("key.Type() = %v, want %v", key.Type(), tc.keyType)
			}
			if got := key.Algorithm(); got.Name != alg.Name {
				t.Errorf("key.Algorithm().Name = %q, want %q", got.Name, alg.Name)
			}
		})
	}
}

func TestKeyUsagesAreCopied(t *testing.T) {
	key, err := webcrypto.NewKey(webcrypto.Secret, true, webcrypto.KeyAlgorithm{Name: "HMAC"}, []webcrypto.KeyUsage{"sign"}, nil)
	if err != nil {
		t.Fatalf("NewKey() err = %v, want nil", err)
	}
	usages := key.Usages()
	usages[0] = "decrypt"
	if !key.HasUsage("sign") || key.HasUsage("decrypt") {
		t.Error("mutating the returned usages changed the key")
	}
}

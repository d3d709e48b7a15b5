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

package registry_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/internal/descriptor"
	"github.com/Aconitin/webcrypto/internal/registry"
)

type fakeParams struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	Rounds int `mapstructure:"rounds"`
}

type fakeModule struct{}

func fakeSchema(name string, members map[string]any) (webcrypto.Params, error) {
	var p fakeParams
	if err := descriptor.Decode(members, &p); err != nil {
		return nil, err
	}
	p.Name = name
	if p.Rounds < 0 {
		return nil, fmt.Errorf("%w: negative rounds", webcrypto.ErrSyntax)
	}
	return &p, nil
}

func init() {
	if err := registry.Register(registry.OpDigest, "Fake-Digest", fakeSchema, fakeModule{}); err != nil {
		panic(err)
	}
	if err := registry.Register(registry.OpEncrypt, "Fake-Cipher", fakeSchema, fakeModule{}); err != nil {
		panic(err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	err := registry.Register(registry.OpDigest, "fake-digest", fakeSchema, fakeModule{})
	if err == nil {
		t.Fatal("Register() of a duplicate name succeeded, want error")
	}
}

func TestLookupCaseInsensitive(t *testing.T) {
	for _, name := range []string{"Fake-Digest", "FAKE-DIGEST", "fake-digest"} {
		entry, err := registry.Lookup(registry.OpDigest, name)
		if err != nil {
			t.Fatalf("Lookup(%q) err = %v, want nil", name, err)
		}
		if entry.Name != "Fake-Digest" {
			t.Errorf("Lookup(%q).Name = %q, want the canonical spelling", name, entry.Name)
		}
	}
}

func TestLookupWrongOperation(t *testing.T) {
	if _, err := registry.Lookup(registry.OpSign, "Fake-Digest"); !errors.Is(err, webcrypto.ErrNotSupported) {
		t.Errorf("Lookup() err = %v, want ErrNotSupported", err)
	}
}

func TestNormalizeStringDescriptor(t *testing.T) {
	params, entry, err := registry.Normalize(registry.OpDigest, "fake-digest")
	if err != nil {
		t.Fatalf("Normalize() err = %v, want nil", err)
	}
	if params.Algorithm() != "Fake-Digest" {
		t.Errorf("params.Algorithm() = %q, want canonical spelling", params.Algorithm())
	}
	if entry.Module == nil {
		t.Error("entry.Module is nil")
	}
}

func TestNormalizeMapDescriptor(t *testing.T) {
	params, _, err := registry.Normalize(registry.OpEncrypt, map[string]any{"name": "FAKE-cipher", "rounds": 3})
	if err != nil {
		t.Fatalf("Normalize() err = %v, want nil", err)
	}
	p, ok := params.(*fakeParams)
	if !ok {
		t.Fatalf("params are of type %T, want *fakeParams", params)
	}
	if p.Name != "Fake-Cipher" || p.Rounds != 3 {
		t.Errorf("params = %+v, want canonical name and rounds 3", p)
	}
}

func TestNormalizeTypedDescriptor(t *testing.T) {
	desc := &fakeParams{Algorithm: webcrypto.Algorithm{Name: "fake-cipher"}, Rounds: 5}
	params, _, err := registry.Normalize(registry.OpEncrypt, desc)
	if err != nil {
		t.Fatalf("Normalize() err = %v, want nil", err)
	}
	if p := params.(*fakeParams); p.Rounds != 5 || p.Name != "Fake-Cipher" {
		t.Errorf("params = %+v, want rounds 5 and the canonical name", p)
	}
}

func TestNormalizeErrors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		op      registry.Operation
		desc    webcrypto.AlgorithmIdentifier
		wantErr error
	}{
		{
			name:    "unknown name",
			op:      registry.OpDigest,
			desc:    "ZZZ",
			wantErr: webcrypto.ErrNotSupported,
		},
		{
			name:    "registered name, wrong operation",
			op:      registry.OpDecrypt,
			desc:    "Fake-Cipher",
			wantErr: webcrypto.ErrNotSupported,
		},
		{
			name:    "missing name member",
			op:      registry.OpDigest,
			desc:    map[string]any{"rounds": 1},
			wantErr: webcrypto.ErrNotSupported,
		},
		{
			name:    "name is not a string",
			op:      registry.OpDigest,
			desc:    map[string]any{"name": 7},
			wantErr: webcrypto.ErrNotSupported,
		},
		{
			name:    "malformed member",
			op:      registry.OpEncrypt,
			desc:    map[string]any{"name": "Fake-Cipher", "rounds": -1},
			wantErr: webcrypto.ErrSyntax,
		},
		{
			name:    "descriptor of the wrong kind",
			op:      registry.OpDigest,
			desc:    42,
			wantErr: webcrypto.ErrSyntax,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := registry.Normalize(tc.op, tc.desc); !errors.Is(err, tc.wantErr) {
				t.Errorf("Normalize() err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

// Normalize must be pure: the same descriptor normalizes to the same
// record and the input map is never mutated.
func TestNormalizeIsPure(t *testing.T) {
	desc := map[string]any{"name": "fake-cipher", "rounds": 2}
	first, _, err := registry.Normalize(registry.OpEncrypt, desc)
	if err != nil {
		t.Fatalf("Normalize() err = %v, want nil", err)
	}
	second, _, err := registry.Normalize(registry.OpEncrypt, desc)
	if err != nil {
		t.Fatalf("Normalize() err = %v, want nil", err)
	}
	if *(first.(*fakeParams)) != *(second.(*fakeParams)) {
		t.Error("Normalize() is not deterministic")
	}
	if desc["name"] != "fake-cipher" {
		t.Error("Normalize() mutated the descriptor")
	}
}

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

package descriptor_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/internal/descriptor"
)

type gcmLikeParams struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	IV        []byte `mapstructure:"iv"`
	TagLength int    `mapstructure:"tagLength"`
	Hidden    string `mapstructure:"-"`
}

func TestToMapString(t *testing.T) {
	got, err := descriptor.ToMap("SHA-256")
	if err != nil {
		t.Fatalf("ToMap() err = %v, want nil", err)
	}
	want := map[string]any{"name": "SHA-256"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ToMap() diff (-want +got):\n%s", diff)
	}
}

func TestToMapCopiesMap(t *testing.T) {
	in := map[string]any{"name": "AES-GCM", "tagLength": 128}
	got, err := descriptor.ToMap(in)
	if err != nil {
		t.Fatalf("ToMap() err = %v, want nil", err)
	}
	got["name"] = "mutated"
	if in["name"] != "AES-GCM" {
		t.Error("ToMap() aliased the caller's map")
	}
}

func TestToMapStruct(t *testing.T) {
	desc := &gcmLikeParams{
		Algorithm: webcrypto.Algorithm{Name: "AES-GCM"},
		IV:        []byte{1, 2, 3},
		TagLength: 128,
		Hidden:    "never",
	}
	got, err := descriptor.ToMap(desc)
	if err != nil {
		t.Fatalf("ToMap() err = %v, want nil", err)
	}
	want := map[string]any{
		"name":      "AES-GCM",
		"iv":        []byte{1, 2, 3},
		"tagLength": 128,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ToMap() diff (-want +got):\n%s", diff)
	}
}

// opaque values in descriptor members must survive ToMap untouched.
func TestToMapPreservesOpaqueMembers(t *testing.T) {
	key, err := webcrypto.NewKey(webcrypto.Public, true, webcrypto.KeyAlgorithm{Name: "ECDH"}, nil, nil)
	if err != nil {
		t.Fatalf("NewKey() err = %v, want nil", err)
	}
	type deriveParams struct {
		webcrypto.Algorithm `mapstructure:",squash"`
		Public              any `mapstructure:"public"`
	}
	got, err := descriptor.ToMap(&deriveParams{Algorithm: webcrypto.Algorithm{Name: "ECDH"}, Public: key})
	if err != nil {
		t.Fatalf("ToMap() err = %v, want nil", err)
	}
	if got["public"] != any(key) {
		t.Errorf("ToMap() public member = %T, want the original *webcrypto.Key", got["public"])
	}
}

func TestToMapRejectsOtherKinds(t *testing.T) {
	for _, desc := range []any{nil, 42, []string{"SHA-256"}} {
		if _, err := descriptor.ToMap(desc); !errors.Is(err, webcrypto.ErrSyntax) {
			t.Errorf("ToMap(%v) err = %v, want ErrSyntax", desc, err)
		}
	}
}

func TestMemberCaseInsensitive(t *testing.T) {
	m := map[string]any{"Name": "AES-GCM", "TagLength": 96}
	if v, ok := descriptor.Member(m, "name"); !ok || v != "AES-GCM" {
		t.Errorf("Member(name) = (%v, %v), want (AES-GCM, true)", v, ok)
	}
	if v, ok := descriptor.Member(m, "taglength"); !ok || v != 96 {
		t.Errorf("Member(taglength) = (%v, %v), want (96, true)", v, ok)
	}
	if _, ok := descriptor.Member(m, "iv"); ok {
		t.Error("Member(iv) found a member that is not there")
	}
}

func TestDecode(t *testing.T) {
	var p gcmLikeParams
	m := map[string]any{"name": "AES-GCM", "iv": []byte{0, 1}, "tagLength": 104}
	if err := descriptor.Decode(m, &p); err != nil {
		t.Fatalf("Decode() err = %v, want nil", err)
	}
	if p.Name != "AES-GCM" || p.TagLength != 104 || len(p.IV) != 2 {
		t.Errorf("Decode() = %+v, want members set", p)
	}
}

func TestDecodeCaseInsensitiveMembers(t *testing.T) {
	var p gcmLikeParams
	m := map[string]any{"NAME": "AES-GCM", "TAGLENGTH": 120}
	if err := descriptor.Decode(m, &p); err != nil {
		t.Fatalf("Decode() err = %v, want nil", err)
	}
	if p.Name != "AES-GCM" || p.TagLength != 120 {
		t.Errorf("Decode() = %+v, want case-insensitive member match", p)
	}
}

func TestDecodeWrongKind(t *testing.T) {
	var p gcmLikeParams
	m := map[string]any{"name": "AES-GCM", "tagLength": map[string]any{"no": "way"}}
	if err := descriptor.Decode(m, &p); !errors.Is(err, webcrypto.ErrSyntax) {
		t.Errorf("Decode() err = %v, want ErrSyntax", err)
	}
}

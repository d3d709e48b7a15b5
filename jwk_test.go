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

func ext(b bool) *bool { return &b }

func TestJSONWebKeyOctetsCanonical(t *testing.T) {
	j := &webcrypto.JSONWebKey{
		Kty: "oct",
		K:   "Y0zt37HgOx-BY7SQjYVmrqhPkO44Ii2Jcb9yydUDPfE",
		Alg: "A256GCM",
		Ext: ext(true),
	}
	got, err := j.Octets()
	if err != nil {
		t.Fatalf("Octets() err = %v, want nil", err)
	}
	want := `{"kty":"oct","k":"Y0zt37HgOx-BY7SQjYVmrqhPkO44Ii2Jcb9yydUDPfE","alg":"A256GCM","ext":true}`
	if string(got) != want {
		t.Errorf("Octets() = %s, want %s", got, want)
	}
}

func TestJSONWebKeyOctetsOmitsAbsentMembers(t *testing.T) {
	j := &webcrypto.JSONWebKey{Kty: "oct", K: "AAAA"}
	got, err := j.Octets()
	if err != nil {
		t.Fatalf("Octets() err = %v, want nil", err)
	}
	if want := `{"kty":"oct","k":"AAAA"}`; string(got) != want {
		t.Errorf("Octets() = %s, want %s", got, want)
	}
}

func TestJSONWebKeyRoundTrip(t *testing.T) {
	j := &webcrypto.JSONWebKey{
		Kty:    "EC",
		Crv:    "P-256",
		X:      "x",
		Y:      "y",
		KeyOps: []string{"verify"},
		Ext:    ext(false),
	}
	octets, err := j.Octets()
	if err != nil {
		t.Fatalf("Octets() err = %v, want nil", err)
	}
	parsed, err := webcrypto.ParseJSONWebKey(octets)
	if err != nil {
		t.Fatalf("ParseJSONWebKey() err = %v, want nil", err)
	}
	if diff := cmp.Diff(j, parsed); diff != "" {
		t.Errorf("round trip diff (-want +got):\n%s", diff)
	}
}

func TestParseJSONWebKeyErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		octets string
	}{
		{name: "not JSON", octets: "not json"},
		{name: "no kty", octets: `{"k":"AAAA"}`},
		{name: "empty", octets: ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := webcrypto.ParseJSONWebKey([]byte(tc.octets)); !errors.Is(err, webcrypto.ErrData) {
				t.Errorf("ParseJSONWebKey(%q) err = %v, want ErrData", tc.octets, err)
			}
		})
	}
}

func TestJSONWebKeyCloneIsDeep(t *testing.T) {
	j := &webcrypto.JSONWebKey{Kty: "oct", KeyOps: []string{"encrypt"}, Ext: ext(true)}
	clone := j.Clone()
	clone.KeyOps[0] = "decrypt"
	*clone.Ext = false
	if j.KeyOps[0] != "encrypt" || !*j.Ext {
		t.Error("mutating the clone changed the original")
	}
}

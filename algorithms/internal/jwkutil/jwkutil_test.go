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

package jwkutil

import (
	"errors"
	"math/big"
	"testing"

	"github.com/Aconitin/webcrypto"
)

func TestB64RoundTrip(t *testing.T) {
	in := []byte{0, 1, 2, 0xFF, 0xFE}
	out, err := B64Decode(B64Encode(in))
	if err != nil {
		t.Fatalf("B64Decode() err = %v, want nil", err)
	}
	if string(out) != string(in) {
		t.Errorf("round trip = %x, want %x", out, in)
	}
}

func TestB64DecodeRejectsPaddingAndGarbage(t *testing.T) {
	for _, s := range []string{"AA==", "!!", "A B"} {
		if _, err := B64Decode(s); !errors.Is(err, webcrypto.ErrData) {
			t.Errorf("B64Decode(%q) err = %v, want ErrData", s, err)
		}
	}
}

func TestB64FixedInt(t *testing.T) {
	got := B64FixedInt(big.NewInt(1), 4)
	want := B64Encode([]byte{0, 0, 0, 1})
	if got != want {
		t.Errorf("B64FixedInt() = %q, want %q", got, want)
	}
}

func TestChecks(t *testing.T) {
	j := &webcrypto.JSONWebKey{
		Kty:    "oct",
		Alg:    "A256GCM",
		Use:    "enc",
		KeyOps: []string{"encrypt"},
		Ext:    Ext(false),
	}
	if err := CheckKty(j, "oct"); err != nil {
		t.Errorf("CheckKty() err = %v, want nil", err)
	}
	if err := CheckKty(j, "RSA"); !errors.Is(err, webcrypto.ErrData) {
		t.Errorf("CheckKty() err = %v, want ErrData", err)
	}
	if err := CheckAlg(j, "A256GCM"); err != nil {
		t.Errorf("CheckAlg() err = %v, want nil", err)
	}
	if err := CheckAlg(j, "A128GCM"); !errors.Is(err, webcrypto.ErrData) {
		t.Errorf("CheckAlg() err = %v, want ErrData", err)
	}
	if err := CheckAlg(j, ""); err != nil {
		t.Errorf("CheckAlg() with no expectation err = %v, want nil", err)
	}
	if err := CheckUse(j, "enc"); err != nil {
		t.Errorf("CheckUse() err = %v, want nil", err)
	}
	if err := CheckUse(j, "sig"); !errors.Is(err, webcrypto.ErrData) {
		t.Errorf("CheckUse() err = %v, want ErrData", err)
	}
	if err := CheckExt(j, true); !errors.Is(err, webcrypto.ErrData) {
		t.Errorf("CheckExt() on a non-extractable JWK err = %v, want ErrData", err)
	}
	if err := CheckExt(j, false); err != nil {
		t.Errorf("CheckExt() err = %v, want nil", err)
	}
	if err := CheckOps(j, []webcrypto.KeyUsage{"encrypt"}); err != nil {
		t.Errorf("CheckOps() err = %v, want nil", err)
	}
	if err := CheckOps(j, []webcrypto.KeyUsage{"decrypt"}); !errors.Is(err, webcrypto.ErrData) {
		t.Errorf("CheckOps() err = %v, want ErrData", err)
	}
}

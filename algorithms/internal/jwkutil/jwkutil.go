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

// Package jwkutil provides the JSON Web Key member checks and base64url
// codecs shared by the algorithm packages.
package jwkutil

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"slices"

	"github.com/Aconitin/webcrypto"
)

// B64Encode encodes b as unpadded base64url text.
func B64Encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// B64Decode decodes unpadded base64url text. Failures are reported with
// [webcrypto.ErrData].
func B64Decode(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64url in JWK: %v", webcrypto.ErrData, err)
	}
	return b, nil
}

// B64BigInt decodes a base64url member into a positive big integer.
func B64BigInt(s string) (*big.Int, error) {
	b, err := B64Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty integer member in JWK", webcrypto.ErrData)
	}
	return new(big.Int).SetBytes(b), nil
}

// B64FixedInt encodes n as a fixed-width big-endian base64url member,
// left-padded with zeros to size bytes. Used for EC coordinates.
func B64FixedInt(n *big.Int, size int) string {
	return B64Encode(n.FillBytes(make([]byte, size)))
}

// Ext returns a pointer suitable for the JWK ext member.
func Ext(b bool) *bool { return &b }

// CheckKty rejects a JWK whose kty member is not want.
func CheckKty(j *webcrypto.JSONWebKey, want string) error {
	if j.Kty != want {
		return fmt.Errorf("%w: JWK kty is %q, want %q", webcrypto.ErrData, j.Kty, want)
	}
	return nil
}

// CheckAlg rejects a JWK whose alg member is present and differs from
// want. An empty want skips the check.
func CheckAlg(j *webcrypto.JSONWebKey, want string) error {
	if want != "" && j.Alg != "" && j.Alg != want {
		return fmt.Errorf("%w: JWK alg is %q, want %q", webcrypto.ErrData, j.Alg, want)
	}
	return nil
}

// CheckUse rejects a JWK whose use member is present and differs from
// want.
func CheckUse(j *webcrypto.JSONWebKey, want string) error {
	if j.Use != "" && j.Use != want {
		return fmt.Errorf("%w: JWK use is %q, want %q", webcrypto.ErrData, j.Use, want)
	}
	return nil
}

// CheckExt rejects an import requesting an extractable key from a JWK
// whose ext member is false.
func CheckExt(j *webcrypto.JSONWebKey, extractable bool) error {
	if extractable && j.Ext != nil && !*j.Ext {
		return fmt.Errorf("%w: JWK is marked non-extractable", webcrypto.ErrData)
	}
	return nil
}

// CheckOps rejects an import whose requested usages are not all listed in
// the JWK's key_ops member, when that member is present.
func CheckOps(j *webcrypto.JSONWebKey, usages []webcrypto.KeyUsage) error {
	if j.KeyOps == nil {
		return nil
	}
	for _, u := range usages {
		if !slices.Contains(j.KeyOps, string(u)) {
			return fmt.Errorf("%w: JWK key_ops does not permit %q", webcrypto.ErrData, u)
		}
	}
	return nil
}

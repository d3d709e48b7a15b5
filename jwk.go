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

package webcrypto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// JSONWebKey is a JSON Web Key (RFC 7517/7518). Binary members hold
// unpadded base64url text, as on the wire. Member order in the struct is
// the canonical serialization order used by [JSONWebKey.Octets].
type JSONWebKey struct {
	Kty string `json:"kty"`
	K   string `json:"k,omitempty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
	D   string `json:"d,omitempty"`
	P   string `json:"p,omitempty"`
	Q   string `json:"q,omitempty"`
	DP  string `json:"dp,omitempty"`
	DQ  string `json:"dq,omitempty"`
	QI  string `json:"qi,omitempty"`

	Alg    string   `json:"alg,omitempty"`
	Use    string   `json:"use,omitempty"`
	KeyOps []string `json:"key_ops,omitempty"`
	// Ext is nil when the member is absent.
	Ext *bool `json:"ext,omitempty"`
}

// Clone returns a deep copy of the key.
func (j *JSONWebKey) Clone() *JSONWebKey {
	out := *j
	out.KeyOps = slices.Clone(j.KeyOps)
	if j.Ext != nil {
		ext := *j.Ext
		out.Ext = &ext
	}
	return &out
}

// Octets returns the canonical UTF-8 JSON serialization of the key: the
// members in struct order, absent members omitted, no insignificant
// whitespace. This is the byte form used when a JWK is wrapped.
func (j *JSONWebKey) Octets() ([]byte, error) {
	if j.Kty == "" {
		return nil, fmt.Errorf("%w: JWK has no kty member", ErrData)
	}
	out, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("%w: serializing JWK: %v", ErrData, err)
	}
	return out, nil
}

// ParseJSONWebKey parses the UTF-8 JSON encoding of a JWK, as produced by
// [JSONWebKey.Octets] or by unwrapping a wrapped key.
func ParseJSONWebKey(octets []byte) (*JSONWebKey, error) {
	dec := json.NewDecoder(bytes.NewReader(octets))
	var j JSONWebKey
	if err := dec.Decode(&j); err != nil {
		return nil, fmt.Errorf("%w: parsing JWK: %v", ErrData, err)
	}
	if j.Kty == "" {
		return nil, fmt.Errorf("%w: JWK has no kty member", ErrData)
	}
	return &j, nil
}

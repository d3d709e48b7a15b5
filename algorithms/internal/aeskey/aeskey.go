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

// Package aeskey handles the key-material side shared by the symmetric
// algorithm packages: generation, raw and JWK import/export, and the
// handle plumbing on [webcrypto.Key].
package aeskey

import (
	"fmt"
	"slices"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/algorithms/internal/jwkutil"
	"github.com/Aconitin/webcrypto/insecuresecretdataaccess"
	"github.com/Aconitin/webcrypto/secretdata"
)

// CheckUsages rejects with [webcrypto.ErrSyntax] any usage outside the
// set allowed for the algorithm.
func CheckUsages(usages, allowed []webcrypto.KeyUsage) error {
	for _, u := range usages {
		if !slices.Contains(allowed, u) {
			return fmt.Errorf("%w: usage %q not permitted for this algorithm", webcrypto.ErrSyntax, u)
		}
	}
	return nil
}

// Generate returns bits/8 bytes of fresh key material.
func Generate(bits int) (secretdata.Bytes, error) {
	material, err := secretdata.NewBytesFromRand(uint32(bits / 8))
	if err != nil {
		return secretdata.Bytes{}, fmt.Errorf("%w: generating key material: %v", webcrypto.ErrOperation, err)
	}
	return material, nil
}

// AESSize validates an AES key material length in bytes.
func AESSize(n int) error {
	switch n {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("%w: AES key material must be 16, 24 or 32 bytes, got %d", webcrypto.ErrData, n)
	}
}

// ExactSize returns a size check requiring exactly n bytes of material.
func ExactSize(n int) func(int) error {
	return func(got int) error {
		if got != n {
			return fmt.Errorf("%w: key material must be %d bytes, got %d", webcrypto.ErrData, n, got)
		}
		return nil
	}
}

// DecodeJWK extracts symmetric key material from an oct JWK. algForBits
// maps a decoded length in bits to the expected alg member; returning ""
// skips the alg check. The import-time extractability and usages are
// checked against the JWK's own ext and key_ops members.
func DecodeJWK(j *webcrypto.JSONWebKey, algForBits func(bits int) string, extractable bool, usages []webcrypto.KeyUsage) ([]byte, error) {
	if err := jwkutil.CheckKty(j, "oct"); err != nil {
		return nil, err
	}
	if j.K == "" {
		return nil, fmt.Errorf("%w: oct JWK has no k member", webcrypto.ErrData)
	}
	data, err := jwkutil.B64Decode(j.K)
	if err != nil {
		return nil, err
	}
	if algForBits != nil {
		if err := jwkutil.CheckAlg(j, algForBits(len(data)*8)); err != nil {
			return nil, err
		}
	}
	if err := jwkutil.CheckExt(j, extractable); err != nil {
		return nil, err
	}
	if err := jwkutil.CheckOps(j, usages); err != nil {
		return nil, err
	}
	return data, nil
}

// Import dispatches on format to raw or JWK import. sizeCheck validates
// the material length in bytes; nil accepts any length.
func Import(format webcrypto.KeyFormat, keyData any, algForBits func(bits int) string, sizeCheck func(n int) error, extractable bool, usages []webcrypto.KeyUsage) (secretdata.Bytes, int, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case webcrypto.FormatRaw:
		raw, ok := keyData.([]byte)
		if !ok {
			return secretdata.Bytes{}, 0, fmt.Errorf("%w: raw key material must be a byte buffer", webcrypto.ErrType)
		}
		data = raw
	case webcrypto.FormatJWK:
		j, ok := keyData.(*webcrypto.JSONWebKey)
		if !ok {
			return secretdata.Bytes{}, 0, fmt.Errorf("%w: jwk key material must be a JSON Web Key", webcrypto.ErrType)
		}
		data, err = DecodeJWK(j, algForBits, extractable, usages)
		if err != nil {
			return secretdata.Bytes{}, 0, err
		}
	default:
		return secretdata.Bytes{}, 0, fmt.Errorf("%w: symmetric keys do not support the %s format", webcrypto.ErrNotSupported, format)
	}
	if sizeCheck != nil {
		if err := sizeCheck(len(data)); err != nil {
			return secretdata.Bytes{}, 0, err
		}
	}
	return secretdata.NewBytesFromData(data, insecuresecretdataaccess.Token{}), len(data) * 8, nil
}

// Handle returns the secret material behind a symmetric key handle.
func Handle(key *webcrypto.Key) (secretdata.Bytes, error) {
	material, ok := key.Handle().(secretdata.Bytes)
	if !ok {
		return secretdata.Bytes{}, fmt.Errorf("%w: key handle is not symmetric key material", webcrypto.ErrOperation)
	}
	return material, nil
}

// ExportRaw returns a copy of the raw key material.
func ExportRaw(key *webcrypto.Key) ([]byte, error) {
	material, err := Handle(key)
	if err != nil {
		return nil, err
	}
	return material.Data(insecuresecretdataaccess.Token{}), nil
}

// ExportJWK builds the oct JWK for a symmetric key: kty, k, alg and ext,
// in that order. An empty alg is omitted.
func ExportJWK(key *webcrypto.Key, alg string) (*webcrypto.JSONWebKey, error) {
	material, err := Handle(key)
	if err != nil {
		return nil, err
	}
	return &webcrypto.JSONWebKey{
		Kty: "oct",
		K:   jwkutil.B64Encode(material.Data(insecuresecretdataaccess.Token{})),
		Alg: alg,
		Ext: jwkutil.Ext(key.Extractable()),
	}, nil
}

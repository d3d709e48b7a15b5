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

// Package aeskw registers the AES-KW key-wrapping algorithm (RFC 3394).
//
// Unlike the AEAD algorithms, AES-KW implements the wrapKey and
// unwrapKey capabilities directly; the dispatcher never needs the
// encrypt/decrypt fallback for it.
package aeskw

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/algorithms/internal/aeskey"
	"github.com/Aconitin/webcrypto/insecuresecretdataaccess"
	"github.com/Aconitin/webcrypto/internal/descriptor"
	"github.com/Aconitin/webcrypto/internal/registry"
)

// Name is the canonical algorithm name.
const Name = "AES-KW"

var allowedUsages = []webcrypto.KeyUsage{webcrypto.UsageWrapKey, webcrypto.UsageUnwrapKey}

// defaultIV is the initial value from RFC 3394 section 2.2.3.1.
var defaultIV = [8]byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

// Params is the parameter record for AES-KW wrapKey and unwrapKey; the
// algorithm takes no members.
type Params struct {
	webcrypto.Algorithm `mapstructure:",squash"`
}

func paramsSchema(name string, members map[string]any) (webcrypto.Params, error) {
	return &Params{Algorithm: webcrypto.Algorithm{Name: name}}, nil
}

// KeyGenParams is the parameter record for AES-KW generateKey and key
// length resolution.
type KeyGenParams struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	// Length is the key length in bits: 128, 192 or 256.
	Length int `mapstructure:"length"`
}

func keyGenSchema(name string, members map[string]any) (webcrypto.Params, error) {
	if _, found := descriptor.Member(members, "length"); !found {
		return nil, fmt.Errorf("%w: %s: length member is required", webcrypto.ErrSyntax, name)
	}
	var p KeyGenParams
	if err := descriptor.Decode(members, &p); err != nil {
		return nil, err
	}
	p.Name = name
	if p.Length != 128 && p.Length != 192 && p.Length != 256 {
		return nil, fmt.Errorf("%w: %s: key length must be 128, 192 or 256, got %d", webcrypto.ErrOperation, name, p.Length)
	}
	return &p, nil
}

func jwkAlg(bits int) string { return fmt.Sprintf("A%dKW", bits) }

type module struct{}

func kek(key *webcrypto.Key) (cipher.Block, error) {
	material, err := aeskey.Handle(key)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(material.Data(insecuresecretdataaccess.Token{}))
	if err != nil {
		return nil, fmt.Errorf("%w: initializing AES: %v", webcrypto.ErrOperation, err)
	}
	return block, nil
}

func (module) WrapKey(params webcrypto.Params, wrappingKey *webcrypto.Key, keyOctets []byte) ([]byte, error) {
	if len(keyOctets) < 16 || len(keyOctets)%8 != 0 {
		return nil, fmt.Errorf("%w: AES-KW input must be at least 16 bytes and a multiple of 8, got %d", webcrypto.ErrOperation, len(keyOctets))
	}
	block, err := kek(wrappingKey)
	if err != nil {
		return nil, err
	}

	// RFC 3394 section 2.2.1, index-based variant.
	n := len(keyOctets) / 8
	a := defaultIV
	r := make([]byte, len(keyOctets))
	copy(r, keyOctets)
	var b [16]byte
	for j := 0; j <= 5; j++ {
		for i := 1; i <= n; i++ {
			copy(b[:8], a[:])
			copy(b[8:], r[(i-1)*8:i*8])
			block.Encrypt(b[:], b[:])
			t := uint64(n*j + i)
			binary.BigEndian.PutUint64(a[:], binary.BigEndian.Uint64(b[:8])^t)
			copy(r[(i-1)*8:i*8], b[8:])
		}
	}
	return append(a[:], r...), nil
}

func (module) UnwrapKey(params webcrypto.Params, unwrappingKey *webcrypto.Key, wrappedKey []byte) ([]byte, error) {
	if len(wrappedKey) < 24 || len(wrappedKey)%8 != 0 {
		return nil, fmt.Errorf("%w: AES-KW ciphertext must be at least 24 bytes and a multiple of 8, got %d", webcrypto.ErrOperation, len(wrappedKey))
	}
	block, err := kek(unwrappingKey)
	if err != nil {
		return nil, err
	}

	// RFC 3394 section 2.2.2, index-based variant.
	n := len(wrappedKey)/8 - 1
	var a [8]byte
	copy(a[:], wrappedKey[:8])
	r := make([]byte, len(wrappedKey)-8)
	copy(r, wrappedKey[8:])
	var b [16]byte
	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			t := uint64(n*j + i)
			binary.BigEndian.PutUint64(b[:8], binary.BigEndian.Uint64(a[:])^t)
			copy(b[8:], r[(i-1)*8:i*8])
			block.Decrypt(b[:], b[:])
			copy(a[:], b[:8])
			copy(r[(i-1)*8:i*8], b[8:])
		}
	}
	if subtle.ConstantTimeCompare(a[:], defaultIV[:]) != 1 {
		return nil, fmt.Errorf("%w: AES-KW integrity check failed", webcrypto.ErrOperation)
	}
	return r, nil
}

func (module) GenerateKey(params webcrypto.Params, extractable bool, usages []webcrypto.KeyUsage) (any, error) {
	p, ok := params.(*KeyGenParams)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *aeskw.KeyGenParams", webcrypto.ErrOperation, params)
	}
	if err := aeskey.CheckUsages(usages, allowedUsages); err != nil {
		return nil, err
	}
	material, err := aeskey.Generate(p.Length)
	if err != nil {
		return nil, err
	}
	alg := webcrypto.KeyAlgorithm{Name: Name, Length: p.Length}
	return webcrypto.NewKey(webcrypto.Secret, extractable, alg, usages, material)
}

func (module) ImportKey(params webcrypto.Params, format webcrypto.KeyFormat, keyData any, extractable bool, usages []webcrypto.KeyUsage) (*webcrypto.Key, error) {
	if err := aeskey.CheckUsages(usages, allowedUsages); err != nil {
		return nil, err
	}
	material, bits, err := aeskey.Import(format, keyData, jwkAlg, aeskey.AESSize, extractable, usages)
	if err != nil {
		return nil, err
	}
	alg := webcrypto.KeyAlgorithm{Name: Name, Length: bits}
	return webcrypto.NewKey(webcrypto.Secret, extractable, alg, usages, material)
}

func (module) ExportKey(format webcrypto.KeyFormat, key *webcrypto.Key) (any, error) {
	switch format {
	case webcrypto.FormatRaw:
		return aeskey.ExportRaw(key)
	case webcrypto.FormatJWK:
		return aeskey.ExportJWK(key, jwkAlg(key.Algorithm().Length))
	default:
		return nil, fmt.Errorf("%w: AES-KW does not support the %s format", webcrypto.ErrNotSupported, format)
	}
}

func (module) GetKeyLength(params webcrypto.Params) (int, error) {
	p, ok := params.(*KeyGenParams)
	if !ok {
		return 0, fmt.Errorf("%w: params are of type %T, need *aeskw.KeyGenParams", webcrypto.ErrOperation, params)
	}
	return p.Length, nil
}

func init() {
	m := module{}
	for op, schema := range map[registry.Operation]registry.SchemaFunc{
		registry.OpWrapKey:      paramsSchema,
		registry.OpUnwrapKey:    paramsSchema,
		registry.OpGenerateKey:  keyGenSchema,
		registry.OpImportKey:    paramsSchema,
		registry.OpExportKey:    paramsSchema,
		registry.OpGetKeyLength: keyGenSchema,
	} {
		if err := registry.Register(op, Name, schema, m); err != nil {
			panic(fmt.Sprintf("aeskw.init() failed: %v", err))
		}
	}
}

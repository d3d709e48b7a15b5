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

// Package aesgcm registers the AES-GCM algorithm: authenticated
// encryption, key generation, raw and JWK import/export, and key length
// resolution for derived keys.
//
// The module exposes no wrapKey/unwrapKey capability of its own; key
// wrapping with AES-GCM goes through the dispatcher's encrypt/decrypt
// fallback.
package aesgcm

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"slices"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/algorithms/internal/aeskey"
	"github.com/Aconitin/webcrypto/insecuresecretdataaccess"
	"github.com/Aconitin/webcrypto/internal/descriptor"
	"github.com/Aconitin/webcrypto/internal/registry"
)

// Name is the canonical algorithm name.
const Name = "AES-GCM"

var allowedUsages = []webcrypto.KeyUsage{
	webcrypto.UsageEncrypt, webcrypto.UsageDecrypt,
	webcrypto.UsageWrapKey, webcrypto.UsageUnwrapKey,
}

// tagLengths are the permitted tag sizes in bits.
var tagLengths = []int{32, 64, 96, 104, 112, 120, 128}

// Params is the parameter record for AES-GCM encrypt, decrypt, wrapKey
// and unwrapKey.
type Params struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	// IV is the initialization vector. It must not be empty and must
	// never repeat for a given key.
	IV []byte `mapstructure:"iv"`
	// AdditionalData is authenticated but not encrypted. Optional.
	AdditionalData []byte `mapstructure:"additionalData"`
	// TagLength is the authentication tag size in bits. Defaults to 128.
	TagLength int `mapstructure:"tagLength"`
}

func cipherSchema(name string, members map[string]any) (webcrypto.Params, error) {
	var p Params
	if err := descriptor.Decode(members, &p); err != nil {
		return nil, err
	}
	p.Name = name
	if len(p.IV) == 0 {
		return nil, fmt.Errorf("%w: AES-GCM: iv member is required", webcrypto.ErrSyntax)
	}
	p.IV = bytes.Clone(p.IV)
	p.AdditionalData = bytes.Clone(p.AdditionalData)
	if p.TagLength == 0 {
		p.TagLength = 128
	}
	if !slices.Contains(tagLengths, p.TagLength) {
		return nil, fmt.Errorf("%w: AES-GCM: invalid tagLength %d", webcrypto.ErrOperation, p.TagLength)
	}
	return &p, nil
}

// KeyGenParams is the parameter record for AES-GCM generateKey and for
// the key length resolution used by deriveKey.
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

// ImportParams is the parameter record for AES-GCM importKey and
// exportKey; the algorithm has no import-time members.
type ImportParams struct {
	webcrypto.Algorithm `mapstructure:",squash"`
}

func importSchema(name string, members map[string]any) (webcrypto.Params, error) {
	return &ImportParams{Algorithm: webcrypto.Algorithm{Name: name}}, nil
}

func jwkAlg(bits int) string { return fmt.Sprintf("A%dGCM", bits) }

type module struct{}

func newGCM(key *webcrypto.Key, p *Params) (cipher.AEAD, error) {
	material, err := aeskey.Handle(key)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(material.Data(insecuresecretdataaccess.Token{}))
	if err != nil {
		return nil, fmt.Errorf("%w: initializing AES: %v", webcrypto.ErrOperation, err)
	}
	switch {
	case p.TagLength == 128:
		return cipher.NewGCMWithNonceSize(block, len(p.IV))
	case len(p.IV) == 12 && p.TagLength >= 96:
		return cipher.NewGCMWithTagSize(block, p.TagLength/8)
	default:
		return nil, fmt.Errorf("%w: AES-GCM: iv size %d with tagLength %d", webcrypto.ErrNotSupported, len(p.IV), p.TagLength)
	}
}

func (module) Encrypt(params webcrypto.Params, key *webcrypto.Key, plaintext []byte) ([]byte, error) {
	p, ok := params.(*Params)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *aesgcm.Params", webcrypto.ErrOperation, params)
	}
	gcm, err := newGCM(key, p)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nil, p.IV, plaintext, p.AdditionalData), nil
}

func (module) Decrypt(params webcrypto.Params, key *webcrypto.Key, ciphertext []byte) ([]byte, error) {
	p, ok := params.(*Params)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *aesgcm.Params", webcrypto.ErrOperation, params)
	}
	if len(ciphertext) < p.TagLength/8 {
		return nil, fmt.Errorf("%w: ciphertext shorter than the authentication tag", webcrypto.ErrOperation)
	}
	gcm, err := newGCM(key, p)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, p.IV, ciphertext, p.AdditionalData)
	if err != nil {
		return nil, fmt.Errorf("%w: AES-GCM decryption failed", webcrypto.ErrOperation)
	}
	return plaintext, nil
}

func (module) GenerateKey(params webcrypto.Params, extractable bool, usages []webcrypto.KeyUsage) (any, error) {
	p, ok := params.(*KeyGenParams)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *aesgcm.KeyGenParams", webcrypto.ErrOperation, params)
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
		return nil, fmt.Errorf("%w: AES-GCM does not support the %s format", webcrypto.ErrNotSupported, format)
	}
}

func (module) GetKeyLength(params webcrypto.Params) (int, error) {
	p, ok := params.(*KeyGenParams)
	if !ok {
		return 0, fmt.Errorf("%w: params are of type %T, need *aesgcm.KeyGenParams", webcrypto.ErrOperation, params)
	}
	return p.Length, nil
}

func init() {
	m := module{}
	for op, schema := range map[registry.Operation]registry.SchemaFunc{
		registry.OpEncrypt:      cipherSchema,
		registry.OpDecrypt:      cipherSchema,
		registry.OpWrapKey:      cipherSchema,
		registry.OpUnwrapKey:    cipherSchema,
		registry.OpGenerateKey:  keyGenSchema,
		registry.OpImportKey:    importSchema,
		registry.OpExportKey:    importSchema,
		registry.OpGetKeyLength: keyGenSchema,
	} {
		if err := registry.Register(op, Name, schema, m); err != nil {
			panic(fmt.Sprintf("aesgcm.init() failed: %v", err))
		}
	}
}

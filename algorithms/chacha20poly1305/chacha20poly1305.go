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

// Package chacha20poly1305 registers the ChaCha20-Poly1305 AEAD
// (RFC 8439) as an extension algorithm.
package chacha20poly1305

import (
	"bytes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/algorithms/internal/aeskey"
	"github.com/Aconitin/webcrypto/insecuresecretdataaccess"
	"github.com/Aconitin/webcrypto/internal/descriptor"
	"github.com/Aconitin/webcrypto/internal/registry"
)

// Name is the canonical algorithm name.
const Name = "ChaCha20-Poly1305"

var allowedUsages = []webcrypto.KeyUsage{
	webcrypto.UsageEncrypt, webcrypto.UsageDecrypt,
	webcrypto.UsageWrapKey, webcrypto.UsageUnwrapKey,
}

// Params is the parameter record for ChaCha20-Poly1305 encrypt, decrypt,
// wrapKey and unwrapKey.
type Params struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	// IV is the 12-byte nonce. It must never repeat for a given key.
	IV []byte `mapstructure:"iv"`
	// AdditionalData is authenticated but not encrypted. Optional.
	AdditionalData []byte `mapstructure:"additionalData"`
}

func cipherSchema(name string, members map[string]any) (webcrypto.Params, error) {
	var p Params
	if err := descriptor.Decode(members, &p); err != nil {
		return nil, err
	}
	p.Name = name
	if len(p.IV) == 0 {
		return nil, fmt.Errorf("%w: ChaCha20-Poly1305: iv member is required", webcrypto.ErrSyntax)
	}
	if len(p.IV) != chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("%w: ChaCha20-Poly1305: iv must be %d bytes, got %d", webcrypto.ErrOperation, chacha20poly1305.NonceSize, len(p.IV))
	}
	p.IV = bytes.Clone(p.IV)
	p.AdditionalData = bytes.Clone(p.AdditionalData)
	return &p, nil
}

// KeyGenParams is the parameter record for generateKey and key length
// resolution. The key length is fixed at 256 bits, so the member is
// optional; when present it must be 256.
type KeyGenParams struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	Length int `mapstructure:"length"`
}

func keyGenSchema(name string, members map[string]any) (webcrypto.Params, error) {
	var p KeyGenParams
	if err := descriptor.Decode(members, &p); err != nil {
		return nil, err
	}
	p.Name = name
	if p.Length == 0 {
		p.Length = 256
	}
	if p.Length != 256 {
		return nil, fmt.Errorf("%w: ChaCha20-Poly1305 keys are 256 bits, got %d", webcrypto.ErrOperation, p.Length)
	}
	return &p, nil
}

// ImportParams is the parameter record for importKey and exportKey.
type ImportParams struct {
	webcrypto.Algorithm `mapstructure:",squash"`
}

func importSchema(name string, members map[string]any) (webcrypto.Params, error) {
	return &ImportParams{Algorithm: webcrypto.Algorithm{Name: name}}, nil
}

type module struct{}

func newAEAD(key *webcrypto.Key) (cipher.AEAD, error) {
	material, err := aeskey.Handle(key)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(material.Data(insecuresecretdataaccess.Token{}))
	if err != nil {
		return nil, fmt.Errorf("%w: initializing ChaCha20-Poly1305: %v", webcrypto.ErrOperation, err)
	}
	return aead, nil
}

func (module) Encrypt(params webcrypto.Params, key *webcrypto.Key, plaintext []byte) ([]byte, error) {
	p, ok := params.(*Params)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *chacha20poly1305.Params", webcrypto.ErrOperation, params)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, p.IV, plaintext, p.AdditionalData), nil
}

func (module) Decrypt(params webcrypto.Params, key *webcrypto.Key, ciphertext []byte) ([]byte, error) {
	p, ok := params.(*Params)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *chacha20poly1305.Params", webcrypto.ErrOperation, params)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, p.IV, ciphertext, p.AdditionalData)
	if err != nil {
		return nil, fmt.Errorf("%w: ChaCha20-Poly1305 decryption failed", webcrypto.ErrOperation)
	}
	return plaintext, nil
}

func (module) GenerateKey(params webcrypto.Params, extractable bool, usages []webcrypto.KeyUsage) (any, error) {
	if _, ok := params.(*KeyGenParams); !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *chacha20poly1305.KeyGenParams", webcrypto.ErrOperation, params)
	}
	if err := aeskey.CheckUsages(usages, allowedUsages); err != nil {
		return nil, err
	}
	material, err := aeskey.Generate(256)
	if err != nil {
		return nil, err
	}
	alg := webcrypto.KeyAlgorithm{Name: Name, Length: 256}
	return webcrypto.NewKey(webcrypto.Secret, extractable, alg, usages, material)
}

func (module) ImportKey(params webcrypto.Params, format webcrypto.KeyFormat, keyData any, extractable bool, usages []webcrypto.KeyUsage) (*webcrypto.Key, error) {
	if err := aeskey.CheckUsages(usages, allowedUsages); err != nil {
		return nil, err
	}
	material, bits, err := aeskey.Import(format, keyData, nil, aeskey.ExactSize(chacha20poly1305.KeySize), extractable, usages)
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
		return aeskey.ExportJWK(key, "")
	default:
		return nil, fmt.Errorf("%w: ChaCha20-Poly1305 does not support the %s format", webcrypto.ErrNotSupported, format)
	}
}

func (module) GetKeyLength(params webcrypto.Params) (int, error) {
	if _, ok := params.(*KeyGenParams); !ok {
		return 0, fmt.Errorf("%w: params are of type %T, need *chacha20poly1305.KeyGenParams", webcrypto.ErrOperation, params)
	}
	return 256, nil
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
			panic(fmt.Sprintf("chacha20poly1305.init() failed: %v", err))
		}
	}
}

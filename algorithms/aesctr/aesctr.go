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

// Package aesctr registers the AES-CTR algorithm.
package aesctr

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/algorithms/internal/aeskey"
	"github.com/Aconitin/webcrypto/insecuresecretdataaccess"
	"github.com/Aconitin/webcrypto/internal/descriptor"
	"github.com/Aconitin/webcrypto/internal/registry"
)

// Name is the canonical algorithm name.
const Name = "AES-CTR"

var allowedUsages = []webcrypto.KeyUsage{webcrypto.UsageEncrypt, webcrypto.UsageDecrypt}

// Params is the parameter record for AES-CTR encrypt and decrypt.
type Params struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	// Counter is the 16-byte initial counter block.
	Counter []byte `mapstructure:"counter"`
	// Length is the number of rightmost counter bits that increment,
	// 1 to 128.
	Length int `mapstructure:"length"`
}

func cipherSchema(name string, members map[string]any) (webcrypto.Params, error) {
	var p Params
	if err := descriptor.Decode(members, &p); err != nil {
		return nil, err
	}
	p.Name = name
	if len(p.Counter) == 0 {
		return nil, fmt.Errorf("%w: AES-CTR: counter member is required", webcrypto.ErrSyntax)
	}
	if len(p.Counter) != aes.BlockSize {
		return nil, fmt.Errorf("%w: AES-CTR: counter must be %d bytes, got %d", webcrypto.ErrOperation, aes.BlockSize, len(p.Counter))
	}
	p.Counter = bytes.Clone(p.Counter)
	if p.Length == 0 {
		return nil, fmt.Errorf("%w: AES-CTR: length member is required", webcrypto.ErrSyntax)
	}
	if p.Length < 1 || p.Length > 128 {
		return nil, fmt.Errorf("%w: AES-CTR: counter length must be 1 to 128 bits, got %d", webcrypto.ErrOperation, p.Length)
	}
	return &p, nil
}

// KeyGenParams is the parameter record for AES-CTR generateKey and key
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

// ImportParams is the parameter record for AES-CTR importKey and
// exportKey.
type ImportParams struct {
	webcrypto.Algorithm `mapstructure:",squash"`
}

func importSchema(name string, members map[string]any) (webcrypto.Params, error) {
	return &ImportParams{Algorithm: webcrypto.Algorithm{Name: name}}, nil
}

func jwkAlg(bits int) string { return fmt.Sprintf("A%dCTR", bits) }

type module struct{}

// xcrypt runs the keystream over src; CTR mode encrypts and decrypts the
// same way.
func xcrypt(params webcrypto.Params, key *webcrypto.Key, src []byte) ([]byte, error) {
	p, ok := params.(*Params)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *aesctr.Params", webcrypto.ErrOperation, params)
	}
	material, err := aeskey.Handle(key)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(material.Data(insecuresecretdataaccess.Token{}))
	if err != nil {
		return nil, fmt.Errorf("%w: initializing AES: %v", webcrypto.ErrOperation, err)
	}
	out := make([]byte, len(src))
	cipher.NewCTR(block, p.Counter).XORKeyStream(out, src)
	return out, nil
}

func (module) Encrypt(params webcrypto.Params, key *webcrypto.Key, plaintext []byte) ([]byte, error) {
	return xcrypt(params, key, plaintext)
}

func (module) Decrypt(params webcrypto.Params, key *webcrypto.Key, ciphertext []byte) ([]byte, error) {
	return xcrypt(params, key, ciphertext)
}

func (module) GenerateKey(params webcrypto.Params, extractable bool, usages []webcrypto.KeyUsage) (any, error) {
	p, ok := params.(*KeyGenParams)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *aesctr.KeyGenParams", webcrypto.ErrOperation, params)
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
		return nil, fmt.Errorf("%w: AES-CTR does not support the %s format", webcrypto.ErrNotSupported, format)
	}
}

func (module) GetKeyLength(params webcrypto.Params) (int, error) {
	p, ok := params.(*KeyGenParams)
	if !ok {
		return 0, fmt.Errorf("%w: params are of type %T, need *aesctr.KeyGenParams", webcrypto.ErrOperation, params)
	}
	return p.Length, nil
}

func init() {
	m := module{}
	for op, schema := range map[registry.Operation]registry.SchemaFunc{
		registry.OpEncrypt:      cipherSchema,
		registry.OpDecrypt:      cipherSchema,
		registry.OpGenerateKey:  keyGenSchema,
		registry.OpImportKey:    importSchema,
		registry.OpExportKey:    importSchema,
		registry.OpGetKeyLength: keyGenSchema,
	} {
		if err := registry.Register(op, Name, schema, m); err != nil {
			panic(fmt.Sprintf("aesctr.init() failed: %v", err))
		}
	}
}

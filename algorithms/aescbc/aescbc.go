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

// Package aescbc registers the AES-CBC algorithm with PKCS#7 padding.
package aescbc

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
const Name = "AES-CBC"

var allowedUsages = []webcrypto.KeyUsage{webcrypto.UsageEncrypt, webcrypto.UsageDecrypt}

// Params is the parameter record for AES-CBC encrypt and decrypt.
type Params struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	// IV is the 16-byte initialization vector.
	IV []byte `mapstructure:"iv"`
}

func cipherSchema(name string, members map[string]any) (webcrypto.Params, error) {
	var p Params
	if err := descriptor.Decode(members, &p); err != nil {
		return nil, err
	}
	p.Name = name
	if len(p.IV) == 0 {
		return nil, fmt.Errorf("%w: AES-CBC: iv member is required", webcrypto.ErrSyntax)
	}
	if len(p.IV) != aes.BlockSize {
		return nil, fmt.Errorf("%w: AES-CBC: iv must be %d bytes, got %d", webcrypto.ErrOperation, aes.BlockSize, len(p.IV))
	}
	p.IV = bytes.Clone(p.IV)
	return &p, nil
}

// KeyGenParams is the parameter record for AES-CBC generateKey and key
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

// ImportParams is the parameter record for AES-CBC importKey and
// exportKey.
type ImportParams struct {
	webcrypto.Algorithm `mapstructure:",squash"`
}

func importSchema(name string, members map[string]any) (webcrypto.Params, error) {
	return &ImportParams{Algorithm: webcrypto.Algorithm{Name: name}}, nil
}

func jwkAlg(bits int) string { return fmt.Sprintf("A%dCBC", bits) }

// pkcs7Pad appends PKCS#7 padding to src; the result is always at least
// one byte longer than src.
func pkcs7Pad(src []byte) []byte {
	padding := aes.BlockSize - len(src)%aes.BlockSize
	return append(src, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

// pkcs7Unpad strips PKCS#7 padding, rejecting malformed trailers.
func pkcs7Unpad(src []byte) ([]byte, error) {
	if len(src) == 0 || len(src)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not block-aligned", webcrypto.ErrOperation)
	}
	padding := int(src[len(src)-1])
	if padding == 0 || padding > aes.BlockSize || padding > len(src) {
		return nil, fmt.Errorf("%w: invalid padding", webcrypto.ErrOperation)
	}
	for _, b := range src[len(src)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("%w: invalid padding", webcrypto.ErrOperation)
		}
	}
	return src[:len(src)-padding], nil
}

type module struct{}

func newBlock(key *webcrypto.Key) (cipher.Block, error) {
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

func (module) Encrypt(params webcrypto.Params, key *webcrypto.Key, plaintext []byte) ([]byte, error) {
	p, ok := params.(*Params)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *aescbc.Params", webcrypto.ErrOperation, params)
	}
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(bytes.Clone(plaintext))
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, p.IV).CryptBlocks(out, padded)
	return out, nil
}

func (module) Decrypt(params webcrypto.Params, key *webcrypto.Key, ciphertext []byte) ([]byte, error) {
	p, ok := params.(*Params)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *aescbc.Params", webcrypto.ErrOperation, params)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not block-aligned", webcrypto.ErrOperation)
	}
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, p.IV).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out)
}

func (module) GenerateKey(params webcrypto.Params, extractable bool, usages []webcrypto.KeyUsage) (any, error) {
	p, ok := params.(*KeyGenParams)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *aescbc.KeyGenParams", webcrypto.ErrOperation, params)
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
		return nil, fmt.Errorf("%w: AES-CBC does not support the %s format", webcrypto.ErrNotSupported, format)
	}
}

func (module) GetKeyLength(params webcrypto.Params) (int, error) {
	p, ok := params.(*KeyGenParams)
	if !ok {
		return 0, fmt.Errorf("%w: params are of type %T, need *aescbc.KeyGenParams", webcrypto.ErrOperation, params)
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
			panic(fmt.Sprintf("aescbc.init() failed: %v", err))
		}
	}
}

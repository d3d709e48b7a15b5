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

// Package hmac registers the HMAC algorithm: signing and verification
// with a digest fixed at key creation.
package hmac

import (
	"crypto/hmac"
	"fmt"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/algorithms/internal/aeskey"
	"github.com/Aconitin/webcrypto/algorithms/sha"
	"github.com/Aconitin/webcrypto/insecuresecretdataaccess"
	"github.com/Aconitin/webcrypto/internal/descriptor"
	"github.com/Aconitin/webcrypto/internal/registry"
)

// Name is the canonical algorithm name.
const Name = "HMAC"

var allowedUsages = []webcrypto.KeyUsage{webcrypto.UsageSign, webcrypto.UsageVerify}

// jwkAlgs maps digest names to JWK alg values.
var jwkAlgs = map[string]string{
	"SHA-1":   "HS1",
	"SHA-256": "HS256",
	"SHA-384": "HS384",
	"SHA-512": "HS512",
}

// Params is the parameter record for HMAC sign and verify; the digest
// comes from the key, so there are no members.
type Params struct {
	webcrypto.Algorithm `mapstructure:",squash"`
}

func paramsSchema(name string, members map[string]any) (webcrypto.Params, error) {
	return &Params{Algorithm: webcrypto.Algorithm{Name: name}}, nil
}

// KeyParams is the parameter record for HMAC generateKey, importKey and
// key length resolution.
type KeyParams struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	// Hash is the descriptor of the digest to use; normalized into
	// HashName.
	Hash any `mapstructure:"hash"`
	// Length is the key length in bits. Zero means the block size of the
	// digest.
	Length int `mapstructure:"length"`

	// HashName is the canonical digest name after normalization.
	HashName string `mapstructure:"-"`
}

func keyParamsSchema(name string, members map[string]any) (webcrypto.Params, error) {
	var p KeyParams
	if err := descriptor.Decode(members, &p); err != nil {
		return nil, err
	}
	p.Name = name
	hashName, err := registry.NormalizeDigest(p.Hash)
	if err != nil {
		return nil, err
	}
	p.HashName = hashName
	if p.Length < 0 {
		return nil, fmt.Errorf("%w: HMAC: negative key length", webcrypto.ErrSyntax)
	}
	return &p, nil
}

// keyLength resolves the effective key length in bits.
func keyLength(p *KeyParams) (int, error) {
	if p.Length > 0 {
		return p.Length, nil
	}
	block, err := sha.BlockSize(p.HashName)
	if err != nil {
		return 0, err
	}
	return block * 8, nil
}

type module struct{}

func mac(key *webcrypto.Key, data []byte) ([]byte, error) {
	newHash, err := sha.HashFunc(key.Algorithm().Hash)
	if err != nil {
		return nil, err
	}
	material, err := aeskey.Handle(key)
	if err != nil {
		return nil, err
	}
	h := hmac.New(newHash, material.Data(insecuresecretdataaccess.Token{}))
	h.Write(data)
	return h.Sum(nil), nil
}

func (module) Sign(params webcrypto.Params, key *webcrypto.Key, data []byte) ([]byte, error) {
	return mac(key, data)
}

func (module) Verify(params webcrypto.Params, key *webcrypto.Key, signature, data []byte) (bool, error) {
	expected, err := mac(key, data)
	if err != nil {
		return false, err
	}
	return hmac.Equal(signature, expected), nil
}

func (module) GenerateKey(params webcrypto.Params, extractable bool, usages []webcrypto.KeyUsage) (any, error) {
	p, ok := params.(*KeyParams)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *hmac.KeyParams", webcrypto.ErrOperation, params)
	}
	if err := aeskey.CheckUsages(usages, allowedUsages); err != nil {
		return nil, err
	}
	bits, err := keyLength(p)
	if err != nil {
		return nil, err
	}
	if bits%8 != 0 {
		return nil, fmt.Errorf("%w: HMAC: key length must be a multiple of 8 bits", webcrypto.ErrOperation)
	}
	material, err := aeskey.Generate(bits)
	if err != nil {
		return nil, err
	}
	alg := webcrypto.KeyAlgorithm{Name: Name, Hash: p.HashName, Length: bits}
	return webcrypto.NewKey(webcrypto.Secret, extractable, alg, usages, material)
}

func (module) ImportKey(params webcrypto.Params, format webcrypto.KeyFormat, keyData any, extractable bool, usages []webcrypto.KeyUsage) (*webcrypto.Key, error) {
	p, ok := params.(*KeyParams)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *hmac.KeyParams", webcrypto.ErrOperation, params)
	}
	if err := aeskey.CheckUsages(usages, allowedUsages); err != nil {
		return nil, err
	}
	algForBits := func(int) string { return jwkAlgs[p.HashName] }
	var sizeCheck func(int) error
	if p.Length > 0 {
		sizeCheck = aeskey.ExactSize(p.Length / 8)
	}
	material, bits, err := aeskey.Import(format, keyData, algForBits, sizeCheck, extractable, usages)
	if err != nil {
		return nil, err
	}
	if bits == 0 {
		return nil, fmt.Errorf("%w: HMAC: empty key material", webcrypto.ErrData)
	}
	alg := webcrypto.KeyAlgorithm{Name: Name, Hash: p.HashName, Length: bits}
	return webcrypto.NewKey(webcrypto.Secret, extractable, alg, usages, material)
}

func (module) ExportKey(format webcrypto.KeyFormat, key *webcrypto.Key) (any, error) {
	switch format {
	case webcrypto.FormatRaw:
		return aeskey.ExportRaw(key)
	case webcrypto.FormatJWK:
		return aeskey.ExportJWK(key, jwkAlgs[key.Algorithm().Hash])
	default:
		return nil, fmt.Errorf("%w: HMAC does not support the %s format", webcrypto.ErrNotSupported, format)
	}
}

func (module) GetKeyLength(params webcrypto.Params) (int, error) {
	p, ok := params.(*KeyParams)
	if !ok {
		return 0, fmt.Errorf("%w: params are of type %T, need *hmac.KeyParams", webcrypto.ErrOperation, params)
	}
	return keyLength(p)
}

func init() {
	m := module{}
	for op, schema := range map[registry.Operation]registry.SchemaFunc{
		registry.OpSign:         paramsSchema,
		registry.OpVerify:       paramsSchema,
		registry.OpGenerateKey:  keyParamsSchema,
		registry.OpImportKey:    keyParamsSchema,
		registry.OpExportKey:    paramsSchema,
		registry.OpGetKeyLength: keyParamsSchema,
	} {
		if err := registry.Register(op, Name, schema, m); err != nil {
			panic(fmt.Sprintf("hmac.init() failed: %v", err))
		}
	}
}

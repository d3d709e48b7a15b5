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

// Package rsaoaep registers the RSA-OAEP algorithm. Key wrapping with
// RSA-OAEP goes through the dispatcher's encrypt/decrypt fallback.
package rsaoaep

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/algorithms/internal/rsakey"
	"github.com/Aconitin/webcrypto/algorithms/sha"
	"github.com/Aconitin/webcrypto/internal/descriptor"
	"github.com/Aconitin/webcrypto/internal/registry"
)

// Name is the canonical algorithm name.
const Name = "RSA-OAEP"

var (
	pubUsages  = []webcrypto.KeyUsage{webcrypto.UsageEncrypt, webcrypto.UsageWrapKey}
	privUsages = []webcrypto.KeyUsage{webcrypto.UsageDecrypt, webcrypto.UsageUnwrapKey}
)

// jwkAlgs maps the bound digest to the JWK alg member.
var jwkAlgs = map[string]string{
	"SHA-1":   "RSA-OAEP",
	"SHA-256": "RSA-OAEP-256",
	"SHA-384": "RSA-OAEP-384",
	"SHA-512": "RSA-OAEP-512",
}

// Params is the parameter record for RSA-OAEP encrypt, decrypt, wrapKey
// and unwrapKey.
type Params struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	// Label is the optional OAEP label; it must match between encrypt and
	// decrypt.
	Label []byte `mapstructure:"label"`
}

func cipherSchema(name string, members map[string]any) (webcrypto.Params, error) {
	var p Params
	if err := descriptor.Decode(members, &p); err != nil {
		return nil, err
	}
	p.Name = name
	p.Label = bytes.Clone(p.Label)
	return &p, nil
}

type module struct{}

func (module) Encrypt(params webcrypto.Params, key *webcrypto.Key, plaintext []byte) ([]byte, error) {
	p, ok := params.(*Params)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *rsaoaep.Params", webcrypto.ErrOperation, params)
	}
	pub, err := rsakey.PublicHandle(key)
	if err != nil {
		return nil, err
	}
	newHash, err := sha.HashFunc(key.Algorithm().Hash)
	if err != nil {
		return nil, err
	}
	out, err := rsa.EncryptOAEP(newHash(), rand.Reader, pub, plaintext, p.Label)
	if err != nil {
		return nil, fmt.Errorf("%w: RSA-OAEP encryption failed: %v", webcrypto.ErrOperation, err)
	}
	return out, nil
}

func (module) Decrypt(params webcrypto.Params, key *webcrypto.Key, ciphertext []byte) ([]byte, error) {
	p, ok := params.(*Params)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *rsaoaep.Params", webcrypto.ErrOperation, params)
	}
	priv, err := rsakey.PrivateHandle(key)
	if err != nil {
		return nil, err
	}
	newHash, err := sha.HashFunc(key.Algorithm().Hash)
	if err != nil {
		return nil, err
	}
	out, err := rsa.DecryptOAEP(newHash(), nil, priv, ciphertext, p.Label)
	if err != nil {
		return nil, fmt.Errorf("%w: RSA-OAEP decryption failed", webcrypto.ErrOperation)
	}
	return out, nil
}

func (module) GenerateKey(params webcrypto.Params, extractable bool, usages []webcrypto.KeyUsage) (any, error) {
	p, ok := params.(*rsakey.KeyGenParams)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *rsakey.KeyGenParams", webcrypto.ErrOperation, params)
	}
	return rsakey.Generate(p, extractable, usages, pubUsages, privUsages)
}

func (module) ImportKey(params webcrypto.Params, format webcrypto.KeyFormat, keyData any, extractable bool, usages []webcrypto.KeyUsage) (*webcrypto.Key, error) {
	p, ok := params.(*rsakey.ImportParams)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *rsakey.ImportParams", webcrypto.ErrOperation, params)
	}
	return rsakey.Import(p, format, keyData, extractable, usages, pubUsages, privUsages, jwkAlgs[p.HashName], "enc")
}

func (module) ExportKey(format webcrypto.KeyFormat, key *webcrypto.Key) (any, error) {
	return rsakey.Export(format, key, jwkAlgs[key.Algorithm().Hash])
}

func init() {
	m := module{}
	for op, schema := range map[registry.Operation]registry.SchemaFunc{
		registry.OpEncrypt:     cipherSchema,
		registry.OpDecrypt:     cipherSchema,
		registry.OpWrapKey:     cipherSchema,
		registry.OpUnwrapKey:   cipherSchema,
		registry.OpGenerateKey: rsakey.KeyGenSchema,
		registry.OpImportKey:   rsakey.ImportSchema,
		registry.OpExportKey:   rsakey.ImportSchema,
	} {
		if err := registry.Register(op, Name, schema, m); err != nil {
			panic(fmt.Sprintf("rsaoaep.init() failed: %v", err))
		}
	}
}

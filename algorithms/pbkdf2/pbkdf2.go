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

// Package pbkdf2 registers the PBKDF2 bit-derivation algorithm
// (RFC 8018).
//
// PBKDF2 keys import from raw material only (typically a password) and
// are never extractable.
package pbkdf2

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/algorithms/internal/aeskey"
	"github.com/Aconitin/webcrypto/algorithms/sha"
	"github.com/Aconitin/webcrypto/insecuresecretdataaccess"
	"github.com/Aconitin/webcrypto/internal/descriptor"
	"github.com/Aconitin/webcrypto/internal/registry"
	"github.com/Aconitin/webcrypto/secretdata"
)

// Name is the canonical algorithm name.
const Name = "PBKDF2"

var allowedUsages = []webcrypto.KeyUsage{webcrypto.UsageDeriveKey, webcrypto.UsageDeriveBits}

// Params is the parameter record for PBKDF2 deriveBits and deriveKey.
type Params struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	// Hash is the descriptor of the digest to use.
	Hash any `mapstructure:"hash"`
	// Salt is the derivation salt.
	Salt []byte `mapstructure:"salt"`
	// Iterations is the iteration count; it must be positive.
	Iterations int `mapstructure:"iterations"`

	// HashName is the canonical digest name after normalization.
	HashName string `mapstructure:"-"`
}

func deriveSchema(name string, members map[string]any) (webcrypto.Params, error) {
	var p Params
	if err := descriptor.Decode(members, &p); err != nil {
		return nil, err
	}
	p.Name = name
	hashName, err := registry.NormalizeDigest(p.Hash)
	if err != nil {
		return nil, err
	}
	p.HashName = hashName
	if p.Iterations <= 0 {
		return nil, fmt.Errorf("%w: PBKDF2: iterations must be positive", webcrypto.ErrSyntax)
	}
	p.Salt = bytes.Clone(p.Salt)
	return &p, nil
}

// ImportParams is the parameter record for PBKDF2 importKey.
type ImportParams struct {
	webcrypto.Algorithm `mapstructure:",squash"`
}

func importSchema(name string, members map[string]any) (webcrypto.Params, error) {
	return &ImportParams{Algorithm: webcrypto.Algorithm{Name: name}}, nil
}

type module struct{}

func (module) DeriveBits(params webcrypto.Params, baseKey *webcrypto.Key, length int) ([]byte, error) {
	p, ok := params.(*Params)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *pbkdf2.Params", webcrypto.ErrOperation, params)
	}
	if length <= 0 || length%8 != 0 {
		return nil, fmt.Errorf("%w: PBKDF2 length must be a positive multiple of 8 bits, got %d", webcrypto.ErrOperation, length)
	}
	newHash, err := sha.HashFunc(p.HashName)
	if err != nil {
		return nil, err
	}
	material, err := aeskey.Handle(baseKey)
	if err != nil {
		return nil, err
	}
	return pbkdf2.Key(material.Data(insecuresecretdataaccess.Token{}), p.Salt, p.Iterations, length/8, newHash), nil
}

func (module) ImportKey(params webcrypto.Params, format webcrypto.KeyFormat, keyData any, extractable bool, usages []webcrypto.KeyUsage) (*webcrypto.Key, error) {
	if format != webcrypto.FormatRaw {
		return nil, fmt.Errorf("%w: PBKDF2 keys import from raw material only", webcrypto.ErrNotSupported)
	}
	if extractable {
		return nil, fmt.Errorf("%w: PBKDF2 keys must not be extractable", webcrypto.ErrSyntax)
	}
	if err := aeskey.CheckUsages(usages, allowedUsages); err != nil {
		return nil, err
	}
	raw, ok := keyData.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: raw key material must be a byte buffer", webcrypto.ErrType)
	}
	material := secretdata.NewBytesFromData(raw, insecuresecretdataaccess.Token{})
	return webcrypto.NewKey(webcrypto.Secret, false, webcrypto.KeyAlgorithm{Name: Name}, usages, material)
}

func init() {
	m := module{}
	for op, schema := range map[registry.Operation]registry.SchemaFunc{
		registry.OpDeriveBits: deriveSchema,
		registry.OpDeriveKey:  deriveSchema,
		registry.OpImportKey:  importSchema,
	} {
		if err := registry.Register(op, Name, schema, m); err != nil {
			panic(fmt.Sprintf("pbkdf2.init() failed: %v", err))
		}
	}
}

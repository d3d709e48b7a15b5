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

// Package hkdf registers the HKDF bit-derivation algorithm (RFC 5869).
//
// HKDF keys import from raw material only and are never extractable;
// they exist to feed deriveBits and deriveKey.
package hkdf

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/algorithms/internal/aeskey"
	"github.com/Aconitin/webcrypto/algorithms/sha"
	"github.com/Aconitin/webcrypto/insecuresecretdataaccess"
	"github.com/Aconitin/webcrypto/internal/descriptor"
	"github.com/Aconitin/webcrypto/internal/registry"
	"github.com/Aconitin/webcrypto/secretdata"
)

// Name is the canonical algorithm name.
const Name = "HKDF"

var allowedUsages = []webcrypto.KeyUsage{webcrypto.UsageDeriveKey, webcrypto.UsageDeriveBits}

// Params is the parameter record for HKDF deriveBits and deriveKey.
type Params struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	// Hash is the descriptor of the digest to use.
	Hash any `mapstructure:"hash"`
	// Salt is the extraction salt. May be empty.
	Salt []byte `mapstructure:"salt"`
	// Info is the context string. May be empty.
	Info []byte `mapstructure:"info"`

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
	p.Salt = bytes.Clone(p.Salt)
	p.Info = bytes.Clone(p.Info)
	return &p, nil
}

// ImportParams is the parameter record for HKDF importKey.
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
		return nil, fmt.Errorf("%w: params are of type %T, need *hkdf.Params", webcrypto.ErrOperation, params)
	}
	if length <= 0 || length%8 != 0 {
		return nil, fmt.Errorf("%w: HKDF length must be a positive multiple of 8 bits, got %d", webcrypto.ErrOperation, length)
	}
	newHash, err := sha.HashFunc(p.HashName)
	if err != nil {
		return nil, err
	}
	material, err := aeskey.Handle(baseKey)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length/8)
	kdf := hkdf.New(newHash, material.Data(insecuresecretdataaccess.Token{}), p.Salt, p.Info)
	if _, err := io.ReadFull(kdf, out); err != nil {
		return nil, fmt.Errorf("%w: HKDF output length too long for %s", webcrypto.ErrOperation, p.HashName)
	}
	return out, nil
}

func (module) ImportKey(params webcrypto.Params, format webcrypto.KeyFormat, keyData any, extractable bool, usages []webcrypto.KeyUsage) (*webcrypto.Key, error) {
	if format != webcrypto.FormatRaw {
		return nil, fmt.Errorf("%w: HKDF keys import from raw material only", webcrypto.ErrNotSupported)
	}
	if extractable {
		return nil, fmt.Errorf("%w: HKDF keys must not be extractable", webcrypto.ErrSyntax)
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
			panic(fmt.Sprintf("hkdf.init() failed: %v", err))
		}
	}
}

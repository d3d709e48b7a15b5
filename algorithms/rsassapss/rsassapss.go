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

// Package rsassapss registers the RSA-PSS signature algorithm.
package rsassapss

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/algorithms/internal/rsakey"
	"github.com/Aconitin/webcrypto/internal/descriptor"
	"github.com/Aconitin/webcrypto/internal/registry"
)

// Name is the canonical algorithm name.
const Name = "RSA-PSS"

var (
	pubUsages  = []webcrypto.KeyUsage{webcrypto.UsageVerify}
	privUsages = []webcrypto.KeyUsage{webcrypto.UsageSign}
)

// jwkAlgs maps the bound digest to the JWK alg member.
var jwkAlgs = map[string]string{
	"SHA-256": "PS256",
	"SHA-384": "PS384",
	"SHA-512": "PS512",
}

// Params is the parameter record for RSA-PSS sign and verify.
type Params struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	// SaltLength is the salt size in bytes.
	SaltLength int `mapstructure:"saltLength"`
}

func paramsSchema(name string, members map[string]any) (webcrypto.Params, error) {
	if _, found := descriptor.Member(members, "saltLength"); !found {
		return nil, fmt.Errorf("%w: RSA-PSS: saltLength member is required", webcrypto.ErrSyntax)
	}
	var p Params
	if err := descriptor.Decode(members, &p); err != nil {
		return nil, err
	}
	p.Name = name
	if p.SaltLength < 0 {
		return nil, fmt.Errorf("%w: RSA-PSS: negative saltLength", webcrypto.ErrSyntax)
	}
	return &p, nil
}

type module struct{}

func (module) Sign(params webcrypto.Params, key *webcrypto.Key, data []byte) ([]byte, error) {
	p, ok := params.(*Params)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *rsassapss.Params", webcrypto.ErrOperation, params)
	}
	priv, err := rsakey.PrivateHandle(key)
	if err != nil {
		return nil, err
	}
	ch, err := rsakey.CryptoHash(key.Algorithm().Hash)
	if err != nil {
		return nil, err
	}
	h := ch.New()
	h.Write(data)
	sig, err := rsa.SignPSS(rand.Reader, priv, ch, h.Sum(nil), &rsa.PSSOptions{SaltLength: p.SaltLength, Hash: ch})
	if err != nil {
		return nil, fmt.Errorf("%w: RSA-PSS signing failed: %v", webcrypto.ErrOperation, err)
	}
	return sig, nil
}

func (module) Verify(params webcrypto.Params, key *webcrypto.Key, signature, data []byte) (bool, error) {
	p, ok := params.(*Params)
	if !ok {
		return false, fmt.Errorf("%w: params are of type %T, need *rsassapss.Params", webcrypto.ErrOperation, params)
	}
	pub, err := rsakey.PublicHandle(key)
	if err != nil {
		return false, err
	}
	ch, err := rsakey.CryptoHash(key.Algorithm().Hash)
	if err != nil {
		return false, err
	}
	h := ch.New()
	h.Write(data)
	return rsa.VerifyPSS(pub, ch, h.Sum(nil), signature, &rsa.PSSOptions{SaltLength: p.SaltLength, Hash: ch}) == nil, nil
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
	return rsakey.Import(p, format, keyData, extractable, usages, pubUsages, privUsages, jwkAlgs[p.HashName], "sig")
}

func (module) ExportKey(format webcrypto.KeyFormat, key *webcrypto.Key) (any, error) {
	return rsakey.Export(format, key, jwkAlgs[key.Algorithm().Hash])
}

func init() {
	m := module{}
	for op, schema := range map[registry.Operation]registry.SchemaFunc{
		registry.OpSign:        paramsSchema,
		registry.OpVerify:      paramsSchema,
		registry.OpGenerateKey: rsakey.KeyGenSchema,
		registry.OpImportKey:   rsakey.ImportSchema,
		registry.OpExportKey:   rsakey.ImportSchema,
	} {
		if err := registry.Register(op, Name, schema, m); err != nil {
			panic(fmt.Sprintf("rsassapss.init() failed: %v", err))
		}
	}
}

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

// Package ed25519 registers the Ed25519 signature algorithm.
package ed25519

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"slices"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/algorithms/internal/jwkutil"
	"github.com/Aconitin/webcrypto/internal/registry"
)

// Name is the canonical algorithm name.
const Name = "Ed25519"

var (
	pubUsages  = []webcrypto.KeyUsage{webcrypto.UsageVerify}
	privUsages = []webcrypto.KeyUsage{webcrypto.UsageSign}
)

// Params is the parameter record for Ed25519 operations; the algorithm
// takes no members.
type Params struct {
	webcrypto.Algorithm `mapstructure:",squash"`
}

func paramsSchema(name string, members map[string]any) (webcrypto.Params, error) {
	return &Params{Algorithm: webcrypto.Algorithm{Name: name}}, nil
}

func checkUsages(usages, allowed []webcrypto.KeyUsage) error {
	for _, u := range usages {
		if !slices.Contains(allowed, u) {
			return fmt.Errorf("%w: usage %q not permitted for this algorithm", webcrypto.ErrSyntax, u)
		}
	}
	return nil
}

var keyAlg = webcrypto.KeyAlgorithm{Name: Name}

func publicHandle(key *webcrypto.Key) (ed25519.PublicKey, error) {
	switch h := key.Handle().(type) {
	case ed25519.PublicKey:
		return h, nil
	case ed25519.PrivateKey:
		return h.Public().(ed25519.PublicKey), nil
	}
	return nil, fmt.Errorf("%w: key handle is not an Ed25519 key", webcrypto.ErrOperation)
}

func privateHandle(key *webcrypto.Key) (ed25519.PrivateKey, error) {
	priv, ok := key.Handle().(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: key handle is not an Ed25519 private key", webcrypto.ErrOperation)
	}
	return priv, nil
}

type module struct{}

func (module) Sign(params webcrypto.Params, key *webcrypto.Key, data []byte) ([]byte, error) {
	priv, err := privateHandle(key)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(priv, data), nil
}

func (module) Verify(params webcrypto.Params, key *webcrypto.Key, signature, data []byte) (bool, error) {
	pub, err := publicHandle(key)
	if err != nil {
		return false, err
	}
	if len(signature) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(pub, data, signature), nil
}

func (module) GenerateKey(params webcrypto.Params, extractable bool, usages []webcrypto.KeyUsage) (any, error) {
	if err := checkUsages(usages, append(slices.Clone(pubUsages), privUsages...)); err != nil {
		return nil, err
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generating Ed25519 key: %v", webcrypto.ErrOperation, err)
	}
	var pubKeyUsages []webcrypto.KeyUsage
	if slices.Contains(usages, webcrypto.UsageVerify) {
		pubKeyUsages = pubUsages
	}
	publicKey, err := webcrypto.NewKey(webcrypto.Public, true, keyAlg, pubKeyUsages, pub)
	if err != nil {
		return nil, err
	}
	var privKeyUsages []webcrypto.KeyUsage
	if slices.Contains(usages, webcrypto.UsageSign) {
		privKeyUsages = privUsages
	}
	privateKey, err := webcrypto.NewKey(webcrypto.Private, extractable, keyAlg, privKeyUsages, priv)
	if err != nil {
		return nil, err
	}
	return &webcrypto.KeyPair{PublicKey: publicKey, PrivateKey: privateKey}, nil
}

func (module) ImportKey(params webcrypto.Params, format webcrypto.KeyFormat, keyData any, extractable bool, usages []webcrypto.KeyUsage) (*webcrypto.Key, error) {
	switch format {
	case webcrypto.FormatRaw:
		raw, ok := keyData.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: raw key material must be a byte buffer", webcrypto.ErrType)
		}
		if err := checkUsages(usages, pubUsages); err != nil {
			return nil, err
		}
		if len(raw) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: Ed25519 public keys are %d bytes, got %d", webcrypto.ErrData, ed25519.PublicKeySize, len(raw))
		}
		return webcrypto.NewKey(webcrypto.Public, extractable, keyAlg, usages, ed25519.PublicKey(slices.Clone(raw)))

	case webcrypto.FormatPKCS8:
		raw, ok := keyData.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: pkcs8 key material must be a byte buffer", webcrypto.ErrType)
		}
		if err := checkUsages(usages, privUsages); err != nil {
			return nil, err
		}
		parsed, err := x509.ParsePKCS8PrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing PKCS #8: %v", webcrypto.ErrData, err)
		}
		priv, ok := parsed.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: PKCS #8 material holds a %T, not an Ed25519 key", webcrypto.ErrData, parsed)
		}
		return webcrypto.NewKey(webcrypto.Private, extractable, keyAlg, usages, priv)

	case webcrypto.FormatSPKI:
		raw, ok := keyData.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: spki key material must be a byte buffer", webcrypto.ErrType)
		}
		if err := checkUsages(usages, pubUsages); err != nil {
			return nil, err
		}
		parsed, err := x509.ParsePKIXPublicKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing SPKI: %v", webcrypto.ErrData, err)
		}
		pub, ok := parsed.(ed25519.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: SPKI material holds a %T, not an Ed25519 key", webcrypto.ErrData, parsed)
		}
		return webcrypto.NewKey(webcrypto.Public, extractable, keyAlg, usages, pub)

	case webcrypto.FormatJWK:
		j, ok := keyData.(*webcrypto.JSONWebKey)
		if !ok {
			return nil, fmt.Errorf("%w: jwk key material must be a JSON Web Key", webcrypto.ErrType)
		}
		return importJWK(j, extractable, usages)

	default:
		return nil, fmt.Errorf("%w: Ed25519 does not support the %s format", webcrypto.ErrNotSupported, format)
	}
}

func importJWK(j *webcrypto.JSONWebKey, extractable bool, usages []webcrypto.KeyUsage) (*webcrypto.Key, error) {
	if err := jwkutil.CheckKty(j, "OKP"); err != nil {
		return nil, err
	}
	if j.Crv != "Ed25519" {
		return nil, fmt.Errorf("%w: JWK crv is %q, want Ed25519", webcrypto.ErrData, j.Crv)
	}
	if err := jwkutil.CheckAlg(j, "EdDSA"); err != nil {
		return nil, err
	}
	if err := jwkutil.CheckUse(j, "sig"); err != nil {
		return nil, err
	}
	if err := jwkutil.CheckExt(j, extractable); err != nil {
		return nil, err
	}
	if err := jwkutil.CheckOps(j, usages); err != nil {
		return nil, err
	}
	if j.X == "" {
		return nil, fmt.Errorf("%w: OKP JWK must have an x member", webcrypto.ErrData)
	}
	x, err := jwkutil.B64Decode(j.X)
	if err != nil {
		return nil, err
	}
	if len(x) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: Ed25519 x member must be %d bytes", webcrypto.ErrData, ed25519.PublicKeySize)
	}

	if j.D == "" {
		if err := checkUsages(usages, pubUsages); err != nil {
			return nil, err
		}
		return webcrypto.NewKey(webcrypto.Public, extractable, keyAlg, usages, ed25519.PublicKey(x))
	}

	if err := checkUsages(usages, privUsages); err != nil {
		return nil, err
	}
	seed, err := jwkutil.B64Decode(j.D)
	if err != nil {
		return nil, err
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: Ed25519 d member must be %d bytes", webcrypto.ErrData, ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	if !priv.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(x)) {
		return nil, fmt.Errorf("%w: OKP JWK d does not match x", webcrypto.ErrData)
	}
	return webcrypto.NewKey(webcrypto.Private, extractable, keyAlg, usages, priv)
}

func (module) ExportKey(format webcrypto.KeyFormat, key *webcrypto.Key) (any, error) {
	switch format {
	case webcrypto.FormatRaw:
		if key.Type() != webcrypto.Public {
			return nil, fmt.Errorf("%w: only public Ed25519 keys export as raw", webcrypto.ErrInvalidAccess)
		}
		pub, err := publicHandle(key)
		if err != nil {
			return nil, err
		}
		return slices.Clone([]byte(pub)), nil

	case webcrypto.FormatPKCS8:
		priv, err := privateHandle(key)
		if err != nil {
			return nil, err
		}
		der, err := x509.MarshalPKCS8PrivateKey(priv)
		if err != nil {
			return nil, fmt.Errorf("%w: marshaling PKCS #8: %v", webcrypto.ErrOperation, err)
		}
		return der, nil

	case webcrypto.FormatSPKI:
		if key.Type() != webcrypto.Public {
			return nil, fmt.Errorf("%w: only public Ed25519 keys export as spki", webcrypto.ErrInvalidAccess)
		}
		pub, err := publicHandle(key)
		if err != nil {
			return nil, err
		}
		der, err := x509.MarshalPKIXPublicKey(pub)
		if err != nil {
			return nil, fmt.Errorf("%w: marshaling SPKI: %v", webcrypto.ErrOperation, err)
		}
		return der, nil

	case webcrypto.FormatJWK:
		pub, err := publicHandle(key)
		if err != nil {
			return nil, err
		}
		j := &webcrypto.JSONWebKey{
			Kty: "OKP",
			Crv: "Ed25519",
			X:   jwkutil.B64Encode(pub),
			Ext: jwkutil.Ext(key.Extractable()),
		}
		if key.Type() == webcrypto.Private {
			priv, err := privateHandle(key)
			if err != nil {
				return nil, err
			}
			j.D = jwkutil.B64Encode(priv.Seed())
		}
		return j, nil

	default:
		return nil, fmt.Errorf("%w: Ed25519 does not support the %s format", webcrypto.ErrNotSupported, format)
	}
}

func init() {
	m := module{}
	for op, schema := range map[registry.Operation]registry.SchemaFunc{
		registry.OpSign:        paramsSchema,
		registry.OpVerify:      paramsSchema,
		registry.OpGenerateKey: paramsSchema,
		registry.OpImportKey:   paramsSchema,
		registry.OpExportKey:   paramsSchema,
	} {
		if err := registry.Register(op, Name, schema, m); err != nil {
			panic(fmt.Sprintf("ed25519.init() failed: %v", err))
		}
	}
}

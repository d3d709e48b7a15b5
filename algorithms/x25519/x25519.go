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

// Package x25519 registers the X25519 bit-derivation algorithm.
package x25519

import (
	"bytes"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"slices"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/algorithms/internal/derivebits"
	"github.com/Aconitin/webcrypto/algorithms/internal/jwkutil"
	"github.com/Aconitin/webcrypto/internal/descriptor"
	"github.com/Aconitin/webcrypto/internal/registry"
)

// Name is the canonical algorithm name.
const Name = "X25519"

var privUsages = []webcrypto.KeyUsage{webcrypto.UsageDeriveKey, webcrypto.UsageDeriveBits}

var keyAlg = webcrypto.KeyAlgorithm{Name: Name}

// DeriveParams is the parameter record for X25519 deriveBits and
// deriveKey.
type DeriveParams struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	// Public is the peer's public [*webcrypto.Key].
	Public any `mapstructure:"public"`
}

func deriveSchema(name string, members map[string]any) (webcrypto.Params, error) {
	var p DeriveParams
	if err := descriptor.Decode(members, &p); err != nil {
		return nil, err
	}
	p.Name = name
	if p.Public == nil {
		return nil, fmt.Errorf("%w: X25519: public member is required", webcrypto.ErrSyntax)
	}
	if _, ok := p.Public.(*webcrypto.Key); !ok {
		return nil, fmt.Errorf("%w: X25519: public member must be a key, got %T", webcrypto.ErrType, p.Public)
	}
	return &p, nil
}

// KeyParams is the parameter record for the key lifecycle operations.
type KeyParams struct {
	webcrypto.Algorithm `mapstructure:",squash"`
}

func keyParamsSchema(name string, members map[string]any) (webcrypto.Params, error) {
	return &KeyParams{Algorithm: webcrypto.Algorithm{Name: name}}, nil
}

func checkUsages(usages, allowed []webcrypto.KeyUsage) error {
	for _, u := range usages {
		if !slices.Contains(allowed, u) {
			return fmt.Errorf("%w: usage %q not permitted for this algorithm", webcrypto.ErrSyntax, u)
		}
	}
	return nil
}

func publicHandle(key *webcrypto.Key) (*ecdh.PublicKey, error) {
	switch h := key.Handle().(type) {
	case *ecdh.PublicKey:
		return h, nil
	case *ecdh.PrivateKey:
		return h.PublicKey(), nil
	}
	return nil, fmt.Errorf("%w: key handle is not an X25519 key", webcrypto.ErrOperation)
}

func privateHandle(key *webcrypto.Key) (*ecdh.PrivateKey, error) {
	priv, ok := key.Handle().(*ecdh.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: key handle is not an X25519 private key", webcrypto.ErrOperation)
	}
	return priv, nil
}

type module struct{}

func (module) DeriveBits(params webcrypto.Params, baseKey *webcrypto.Key, length int) ([]byte, error) {
	p, ok := params.(*DeriveParams)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *x25519.DeriveParams", webcrypto.ErrOperation, params)
	}
	peer := p.Public.(*webcrypto.Key)
	if peer.Type() != webcrypto.Public {
		return nil, fmt.Errorf("%w: X25519 public member must be a public key, got a %s key", webcrypto.ErrInvalidAccess, peer.Type())
	}
	if peer.Algorithm().Name != baseKey.Algorithm().Name {
		return nil, fmt.Errorf("%w: peer key algorithm does not match the base key", webcrypto.ErrInvalidAccess)
	}
	priv, err := privateHandle(baseKey)
	if err != nil {
		return nil, err
	}
	pub, err := publicHandle(peer)
	if err != nil {
		return nil, err
	}
	secret, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: X25519 agreement failed: %v", webcrypto.ErrOperation, err)
	}
	return derivebits.Truncate(secret, length)
}

func (module) GenerateKey(params webcrypto.Params, extractable bool, usages []webcrypto.KeyUsage) (any, error) {
	if err := checkUsages(usages, privUsages); err != nil {
		return nil, err
	}
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generating X25519 key: %v", webcrypto.ErrOperation, err)
	}
	publicKey, err := webcrypto.NewKey(webcrypto.Public, true, keyAlg, nil, priv.PublicKey())
	if err != nil {
		return nil, err
	}
	privateKey, err := webcrypto.NewKey(webcrypto.Private, extractable, keyAlg, usages, priv)
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
		if len(usages) != 0 {
			return nil, fmt.Errorf("%w: a public X25519 key carries no usages", webcrypto.ErrSyntax)
		}
		pub, err := ecdh.X25519().NewPublicKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing X25519 public key: %v", webcrypto.ErrData, err)
		}
		return webcrypto.NewKey(webcrypto.Public, extractable, keyAlg, nil, pub)

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
		priv, ok := parsed.(*ecdh.PrivateKey)
		if !ok || priv.Curve() != ecdh.X25519() {
			return nil, fmt.Errorf("%w: PKCS #8 material does not hold an X25519 key", webcrypto.ErrData)
		}
		return webcrypto.NewKey(webcrypto.Private, extractable, keyAlg, usages, priv)

	case webcrypto.FormatSPKI:
		raw, ok := keyData.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: spki key material must be a byte buffer", webcrypto.ErrType)
		}
		if len(usages) != 0 {
			return nil, fmt.Errorf("%w: a public X25519 key carries no usages", webcrypto.ErrSyntax)
		}
		parsed, err := x509.ParsePKIXPublicKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing SPKI: %v", webcrypto.ErrData, err)
		}
		pub, ok := parsed.(*ecdh.PublicKey)
		if !ok || pub.Curve() != ecdh.X25519() {
			return nil, fmt.Errorf("%w: SPKI material does not hold an X25519 key", webcrypto.ErrData)
		}
		return webcrypto.NewKey(webcrypto.Public, extractable, keyAlg, nil, pub)

	case webcrypto.FormatJWK:
		j, ok := keyData.(*webcrypto.JSONWebKey)
		if !ok {
			return nil, fmt.Errorf("%w: jwk key material must be a JSON Web Key", webcrypto.ErrType)
		}
		return importJWK(j, extractable, usages)

	default:
		return nil, fmt.Errorf("%w: X25519 does not support the %s format", webcrypto.ErrNotSupported, format)
	}
}

func importJWK(j *webcrypto.JSONWebKey, extractable bool, usages []webcrypto.KeyUsage) (*webcrypto.Key, error) {
	if err := jwkutil.CheckKty(j, "OKP"); err != nil {
		return nil, err
	}
	if j.Crv != "X25519" {
		return nil, fmt.Errorf("%w: JWK crv is %q, want X25519", webcrypto.ErrData, j.Crv)
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

	if j.D == "" {
		if len(usages) != 0 {
			return nil, fmt.Errorf("%w: a public X25519 key carries no usages", webcrypto.ErrSyntax)
		}
		pub, err := ecdh.X25519().NewPublicKey(x)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing X25519 public key: %v", webcrypto.ErrData, err)
		}
		return webcrypto.NewKey(webcrypto.Public, extractable, keyAlg, nil, pub)
	}

	if err := checkUsages(usages, privUsages); err != nil {
		return nil, err
	}
	d, err := jwkutil.B64Decode(j.D)
	if err != nil {
		return nil, err
	}
	priv, err := ecdh.X25519().NewPrivateKey(d)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid X25519 private key: %v", webcrypto.ErrData, err)
	}
	if !bytes.Equal(priv.PublicKey().Bytes(), x) {
		return nil, fmt.Errorf("%w: OKP JWK d does not match x", webcrypto.ErrData)
	}
	return webcrypto.NewKey(webcrypto.Private, extractable, keyAlg, usages, priv)
}

func (module) ExportKey(format webcrypto.KeyFormat, key *webcrypto.Key) (any, error) {
	switch format {
	case webcrypto.FormatRaw:
		if key.Type() != webcrypto.Public {
			return nil, fmt.Errorf("%w: only public X25519 keys export as raw", webcrypto.ErrInvalidAccess)
		}
		pub, err := publicHandle(key)
		if err != nil {
			return nil, err
		}
		return pub.Bytes(), nil

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
			return nil, fmt.Errorf("%w: only public X25519 keys export as spki", webcrypto.ErrInvalidAccess)
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
			Crv: "X25519",
			X:   jwkutil.B64Encode(pub.Bytes()),
			Ext: jwkutil.Ext(key.Extractable()),
		}
		if key.Type() == webcrypto.Private {
			priv, err := privateHandle(key)
			if err != nil {
				return nil, err
			}
			j.D = jwkutil.B64Encode(priv.Bytes())
		}
		return j, nil

	default:
		return nil, fmt.Errorf("%w: X25519 does not support the %s format", webcrypto.ErrNotSupported, format)
	}
}

func init() {
	m := module{}
	for op, schema := range map[registry.Operation]registry.SchemaFunc{
		registry.OpDeriveBits:  deriveSchema,
		registry.OpDeriveKey:   deriveSchema,
		registry.OpGenerateKey: keyParamsSchema,
		registry.OpImportKey:   keyParamsSchema,
		registry.OpExportKey:   keyParamsSchema,
	} {
		if err := registry.Register(op, Name, schema, m); err != nil {
			panic(fmt.Sprintf("x25519.init() failed: %v", err))
		}
	}
}

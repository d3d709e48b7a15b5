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

// Package ecdh registers the ECDH bit-derivation algorithm over the NIST
// curves P-256, P-384 and P-521.
package ecdh

import (
	"bytes"
	"crypto/ecdh"
	stdecdsa "crypto/ecdsa"
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
const Name = "ECDH"

var privUsages = []webcrypto.KeyUsage{webcrypto.UsageDeriveKey, webcrypto.UsageDeriveBits}

var curves = map[string]ecdh.Curve{
	"P-256": ecdh.P256(),
	"P-384": ecdh.P384(),
	"P-521": ecdh.P521(),
}

// coordinateSizes is the field element size in bytes per curve.
var coordinateSizes = map[string]int{
	"P-256": 32,
	"P-384": 48,
	"P-521": 66,
}

func curve(name string) (ecdh.Curve, error) {
	c, found := curves[name]
	if !found {
		return nil, fmt.Errorf("%w: unknown named curve %q", webcrypto.ErrNotSupported, name)
	}
	return c, nil
}

// DeriveParams is the parameter record for ECDH deriveBits and
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
		return nil, fmt.Errorf("%w: ECDH: public member is required", webcrypto.ErrSyntax)
	}
	if _, ok := p.Public.(*webcrypto.Key); !ok {
		return nil, fmt.Errorf("%w: ECDH: public member must be a key, got %T", webcrypto.ErrType, p.Public)
	}
	return &p, nil
}

// KeyParams is the parameter record for ECDH generateKey and importKey.
type KeyParams struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	// NamedCurve selects the curve: P-256, P-384 or P-521.
	NamedCurve string `mapstructure:"namedCurve"`
}

func keyParamsSchema(name string, members map[string]any) (webcrypto.Params, error) {
	var p KeyParams
	if err := descriptor.Decode(members, &p); err != nil {
		return nil, err
	}
	p.Name = name
	if p.NamedCurve == "" {
		return nil, fmt.Errorf("%w: %s: namedCurve member is required", webcrypto.ErrSyntax, name)
	}
	if _, err := curve(p.NamedCurve); err != nil {
		return nil, err
	}
	return &p, nil
}

func checkUsages(usages, allowed []webcrypto.KeyUsage) error {
	for _, u := range usages {
		if !slices.Contains(allowed, u) {
			return fmt.Errorf("%w: usage %q not permitted for this algorithm", webcrypto.ErrSyntax, u)
		}
	}
	return nil
}

func keyAlgorithm(namedCurve string) webcrypto.KeyAlgorithm {
	return webcrypto.KeyAlgorithm{Name: Name, NamedCurve: namedCurve}
}

func publicHandle(key *webcrypto.Key) (*ecdh.PublicKey, error) {
	switch h := key.Handle().(type) {
	case *ecdh.PublicKey:
		return h, nil
	case *ecdh.PrivateKey:
		return h.PublicKey(), nil
	}
	return nil, fmt.Errorf("%w: key handle is not an ECDH key", webcrypto.ErrOperation)
}

func privateHandle(key *webcrypto.Key) (*ecdh.PrivateKey, error) {
	priv, ok := key.Handle().(*ecdh.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: key handle is not an ECDH private key", webcrypto.ErrOperation)
	}
	return priv, nil
}

type module struct{}

func (module) DeriveBits(params webcrypto.Params, baseKey *webcrypto.Key, length int) ([]byte, error) {
	p, ok := params.(*DeriveParams)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *ecdh.DeriveParams", webcrypto.ErrOperation, params)
	}
	peer := p.Public.(*webcrypto.Key)
	if peer.Type() != webcrypto.Public {
		return nil, fmt.Errorf("%w: ECDH public member must be a public key, got a %s key", webcrypto.ErrInvalidAccess, peer.Type())
	}
	if peer.Algorithm().Name != baseKey.Algorithm().Name || peer.Algorithm().NamedCurve != baseKey.Algorithm().NamedCurve {
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
		return nil, fmt.Errorf("%w: ECDH agreement failed: %v", webcrypto.ErrOperation, err)
	}
	return derivebits.Truncate(secret, length)
}

func (module) GenerateKey(params webcrypto.Params, extractable bool, usages []webcrypto.KeyUsage) (any, error) {
	p, ok := params.(*KeyParams)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *ecdh.KeyParams", webcrypto.ErrOperation, params)
	}
	if err := checkUsages(usages, privUsages); err != nil {
		return nil, err
	}
	c, err := curve(p.NamedCurve)
	if err != nil {
		return nil, err
	}
	priv, err := c.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generating ECDH key: %v", webcrypto.ErrOperation, err)
	}
	alg := keyAlgorithm(p.NamedCurve)
	// The public half carries no usages; key agreement only needs it as
	// the peer input.
	publicKey, err := webcrypto.NewKey(webcrypto.Public, true, alg, nil, priv.PublicKey())
	if err != nil {
		return nil, err
	}
	privateKey, err := webcrypto.NewKey(webcrypto.Private, extractable, alg, usages, priv)
	if err != nil {
		return nil, err
	}
	return &webcrypto.KeyPair{PublicKey: publicKey, PrivateKey: privateKey}, nil
}

func (module) ImportKey(params webcrypto.Params, format webcrypto.KeyFormat, keyData any, extractable bool, usages []webcrypto.KeyUsage) (*webcrypto.Key, error) {
	p, ok := params.(*KeyParams)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *ecdh.KeyParams", webcrypto.ErrOperation, params)
	}
	c, err := curve(p.NamedCurve)
	if err != nil {
		return nil, err
	}
	alg := keyAlgorithm(p.NamedCurve)

	switch format {
	case webcrypto.FormatRaw:
		raw, ok := keyData.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: raw key material must be a byte buffer", webcrypto.ErrType)
		}
		if len(usages) != 0 {
			return nil, fmt.Errorf("%w: a public ECDH key carries no usages", webcrypto.ErrSyntax)
		}
		pub, err := c.NewPublicKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing EC point: %v", webcrypto.ErrData, err)
		}
		return webcrypto.NewKey(webcrypto.Public, extractable, alg, nil, pub)

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
		ec, ok := parsed.(*stdecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: PKCS #8 material holds a %T, not an EC key", webcrypto.ErrData, parsed)
		}
		priv, err := ec.ECDH()
		if err != nil {
			return nil, fmt.Errorf("%w: key material is not usable for ECDH: %v", webcrypto.ErrData, err)
		}
		if priv.Curve() != c {
			return nil, fmt.Errorf("%w: key material is not on curve %s", webcrypto.ErrData, p.NamedCurve)
		}
		return webcrypto.NewKey(webcrypto.Private, extractable, alg, usages, priv)

	case webcrypto.FormatSPKI:
		raw, ok := keyData.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: spki key material must be a byte buffer", webcrypto.ErrType)
		}
		if len(usages) != 0 {
			return nil, fmt.Errorf("%w: a public ECDH key carries no usages", webcrypto.ErrSyntax)
		}
		parsed, err := x509.ParsePKIXPublicKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing SPKI: %v", webcrypto.ErrData, err)
		}
		ec, ok := parsed.(*stdecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: SPKI material holds a %T, not an EC key", webcrypto.ErrData, parsed)
		}
		pub, err := ec.ECDH()
		if err != nil {
			return nil, fmt.Errorf("%w: key material is not usable for ECDH: %v", webcrypto.ErrData, err)
		}
		if pub.Curve() != c {
			return nil, fmt.Errorf("%w: key material is not on curve %s", webcrypto.ErrData, p.NamedCurve)
		}
		return webcrypto.NewKey(webcrypto.Public, extractable, alg, nil, pub)

	case webcrypto.FormatJWK:
		j, ok := keyData.(*webcrypto.JSONWebKey)
		if !ok {
			return nil, fmt.Errorf("%w: jwk key material must be a JSON Web Key", webcrypto.ErrType)
		}
		return importJWK(p, c, j, extractable, usages)

	default:
		return nil, fmt.Errorf("%w: ECDH does not support the %s format", webcrypto.ErrNotSupported, format)
	}
}

func importJWK(p *KeyParams, c ecdh.Curve, j *webcrypto.JSONWebKey, extractable bool, usages []webcrypto.KeyUsage) (*webcrypto.Key, error) {
	if err := jwkutil.CheckKty(j, "EC"); err != nil {
		return nil, err
	}
	if j.Crv != p.NamedCurve {
		return nil, fmt.Errorf("%w: JWK crv is %q, want %q", webcrypto.ErrData, j.Crv, p.NamedCurve)
	}
	if err := jwkutil.CheckExt(j, extractable); err != nil {
		return nil, err
	}
	if err := jwkutil.CheckOps(j, usages); err != nil {
		return nil, err
	}
	if j.X == "" || j.Y == "" {
		return nil, fmt.Errorf("%w: EC JWK must have x and y members", webcrypto.ErrData)
	}
	x, err := jwkutil.B64Decode(j.X)
	if err != nil {
		return nil, err
	}
	y, err := jwkutil.B64Decode(j.Y)
	if err != nil {
		return nil, err
	}
	size := coordinateSizes[p.NamedCurve]
	if len(x) != size || len(y) != size {
		return nil, fmt.Errorf("%w: EC JWK coordinates must be %d bytes", webcrypto.ErrData, size)
	}
	point := append(append([]byte{4}, x...), y...)
	alg := keyAlgorithm(p.NamedCurve)

	if j.D == "" {
		if len(usages) != 0 {
			return nil, fmt.Errorf("%w: a public ECDH key carries no usages", webcrypto.ErrSyntax)
		}
		pub, err := c.NewPublicKey(point)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing EC point: %v", webcrypto.ErrData, err)
		}
		return webcrypto.NewKey(webcrypto.Public, extractable, alg, nil, pub)
	}

	if err := checkUsages(usages, privUsages); err != nil {
		return nil, err
	}
	d, err := jwkutil.B64Decode(j.D)
	if err != nil {
		return nil, err
	}
	priv, err := c.NewPrivateKey(d)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid EC private scalar: %v", webcrypto.ErrData, err)
	}
	if !bytes.Equal(priv.PublicKey().Bytes(), point) {
		return nil, fmt.Errorf("%w: EC JWK d does not match x and y", webcrypto.ErrData)
	}
	return webcrypto.NewKey(webcrypto.Private, extractable, alg, usages, priv)
}

func (module) ExportKey(format webcrypto.KeyFormat, key *webcrypto.Key) (any, error) {
	switch format {
	case webcrypto.FormatRaw:
		if key.Type() != webcrypto.Public {
			return nil, fmt.Errorf("%w: only public ECDH keys export as raw", webcrypto.ErrInvalidAccess)
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
			return nil, fmt.Errorf("%w: only public ECDH keys export as spki", webcrypto.ErrInvalidAccess)
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
		size := coordinateSizes[key.Algorithm().NamedCurve]
		point := pub.Bytes()
		if len(point) != 1+2*size {
			return nil, fmt.Errorf("%w: unexpected EC point encoding", webcrypto.ErrOperation)
		}
		j := &webcrypto.JSONWebKey{
			Kty: "EC",
			Crv: key.Algorithm().NamedCurve,
			X:   jwkutil.B64Encode(point[1 : 1+size]),
			Y:   jwkutil.B64Encode(point[1+size:]),
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
		return nil, fmt.Errorf("%w: ECDH does not support the %s format", webcrypto.ErrNotSupported, format)
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
			panic(fmt.Sprintf("ecdh.init() failed: %v", err))
		}
	}
}

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

// Package ecdsa registers the ECDSA signature algorithm over the NIST
// curves P-256, P-384 and P-521.
//
// Signatures are the raw concatenation r || s with both halves padded to
// the curve size, not ASN.1 DER.
package ecdsa

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"math/big"
	"slices"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/algorithms/internal/jwkutil"
	"github.com/Aconitin/webcrypto/algorithms/sha"
	"github.com/Aconitin/webcrypto/internal/descriptor"
	"github.com/Aconitin/webcrypto/internal/registry"
)

// Name is the canonical algorithm name.
const Name = "ECDSA"

var (
	pubUsages  = []webcrypto.KeyUsage{webcrypto.UsageVerify}
	privUsages = []webcrypto.KeyUsage{webcrypto.UsageSign}
)

var curves = map[string]elliptic.Curve{
	"P-256": elliptic.P256(),
	"P-384": elliptic.P384(),
	"P-521": elliptic.P521(),
}

func curve(name string) (elliptic.Curve, error) {
	c, found := curves[name]
	if !found {
		return nil, fmt.Errorf("%w: unknown named curve %q", webcrypto.ErrNotSupported, name)
	}
	return c, nil
}

// coordinateSize is the field element size in bytes.
func coordinateSize(c elliptic.Curve) int { return (c.Params().BitSize + 7) / 8 }

// Params is the parameter record for ECDSA sign and verify.
type Params struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	// Hash is the descriptor of the digest to apply to the data.
	Hash any `mapstructure:"hash"`

	// HashName is the canonical digest name after normalization.
	HashName string `mapstructure:"-"`
}

func signSchema(name string, members map[string]any) (webcrypto.Params, error) {
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
	return &p, nil
}

// KeyParams is the parameter record for ECDSA generateKey and importKey.
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

func publicHandle(key *webcrypto.Key) (*ecdsa.PublicKey, error) {
	switch h := key.Handle().(type) {
	case *ecdsa.PublicKey:
		return h, nil
	case *ecdsa.PrivateKey:
		return &h.PublicKey, nil
	}
	return nil, fmt.Errorf("%w: key handle is not an ECDSA key", webcrypto.ErrOperation)
}

func privateHandle(key *webcrypto.Key) (*ecdsa.PrivateKey, error) {
	priv, ok := key.Handle().(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: key handle is not an ECDSA private key", webcrypto.ErrOperation)
	}
	return priv, nil
}

type module struct{}

func (module) Sign(params webcrypto.Params, key *webcrypto.Key, data []byte) ([]byte, error) {
	p, ok := params.(*Params)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *ecdsa.Params", webcrypto.ErrOperation, params)
	}
	priv, err := privateHandle(key)
	if err != nil {
		return nil, err
	}
	newHash, err := sha.HashFunc(p.HashName)
	if err != nil {
		return nil, err
	}
	h := newHash()
	h.Write(data)
	r, s, err := ecdsa.Sign(rand.Reader, priv, h.Sum(nil))
	if err != nil {
		return nil, fmt.Errorf("%w: ECDSA signing failed: %v", webcrypto.ErrOperation, err)
	}
	size := coordinateSize(priv.Curve)
	sig := make([]byte, 2*size)
	r.FillBytes(sig[:size])
	s.FillBytes(sig[size:])
	return sig, nil
}

func (module) Verify(params webcrypto.Params, key *webcrypto.Key, signature, data []byte) (bool, error) {
	p, ok := params.(*Params)
	if !ok {
		return false, fmt.Errorf("%w: params are of type %T, need *ecdsa.Params", webcrypto.ErrOperation, params)
	}
	pub, err := publicHandle(key)
	if err != nil {
		return false, err
	}
	size := coordinateSize(pub.Curve)
	if len(signature) != 2*size {
		return false, nil
	}
	newHash, err := sha.HashFunc(p.HashName)
	if err != nil {
		return false, err
	}
	h := newHash()
	h.Write(data)
	r := new(big.Int).SetBytes(signature[:size])
	s := new(big.Int).SetBytes(signature[size:])
	return ecdsa.Verify(pub, h.Sum(nil), r, s), nil
}

func (module) GenerateKey(params webcrypto.Params, extractable bool, usages []webcrypto.KeyUsage) (any, error) {
	p, ok := params.(*KeyParams)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *ecdsa.KeyParams", webcrypto.ErrOperation, params)
	}
	if err := checkUsages(usages, append(slices.Clone(pubUsages), privUsages...)); err != nil {
		return nil, err
	}
	c, err := curve(p.NamedCurve)
	if err != nil {
		return nil, err
	}
	priv, err := ecdsa.GenerateKey(c, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generating ECDSA key: %v", webcrypto.ErrOperation, err)
	}
	alg := keyAlgorithm(p.NamedCurve)
	var pubKeyUsages []webcrypto.KeyUsage
	if slices.Contains(usages, webcrypto.UsageVerify) {
		pubKeyUsages = pubUsages
	}
	publicKey, err := webcrypto.NewKey(webcrypto.Public, true, alg, pubKeyUsages, &priv.PublicKey)
	if err != nil {
		return nil, err
	}
	var privKeyUsages []webcrypto.KeyUsage
	if slices.Contains(usages, webcrypto.UsageSign) {
		privKeyUsages = privUsages
	}
	privateKey, err := webcrypto.NewKey(webcrypto.Private, extractable, alg, privKeyUsages, priv)
	if err != nil {
		return nil, err
	}
	return &webcrypto.KeyPair{PublicKey: publicKey, PrivateKey: privateKey}, nil
}

// parsePoint reads an uncompressed SEC 1 point.
func parsePoint(c elliptic.Curve, data []byte) (*ecdsa.PublicKey, error) {
	size := coordinateSize(c)
	if len(data) != 1+2*size || data[0] != 4 {
		return nil, fmt.Errorf("%w: not an uncompressed EC point", webcrypto.ErrData)
	}
	x := new(big.Int).SetBytes(data[1 : 1+size])
	y := new(big.Int).SetBytes(data[1+size:])
	if !c.IsOnCurve(x, y) {
		return nil, fmt.Errorf("%w: point is not on the curve", webcrypto.ErrData)
	}
	return &ecdsa.PublicKey{Curve: c, X: x, Y: y}, nil
}

func (module) ImportKey(params webcrypto.Params, format webcrypto.KeyFormat, keyData any, extractable bool, usages []webcrypto.KeyUsage) (*webcrypto.Key, error) {
	p, ok := params.(*KeyParams)
	if !ok {
		return nil, fmt.Errorf("%w: params are of type %T, need *ecdsa.KeyParams", webcrypto.ErrOperation, params)
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
		if err := checkUsages(usages, pubUsages); err != nil {
			return nil, err
		}
		pub, err := parsePoint(c, raw)
		if err != nil {
			return nil, err
		}
		return webcrypto.NewKey(webcrypto.Public, extractable, alg, usages, pub)

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
		priv, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: PKCS #8 material holds a %T, not an EC key", webcrypto.ErrData, parsed)
		}
		if priv.Curve != c {
			return nil, fmt.Errorf("%w: key material is not on curve %s", webcrypto.ErrData, p.NamedCurve)
		}
		return webcrypto.NewKey(webcrypto.Private, extractable, alg, usages, priv)

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
		pub, ok := parsed.(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: SPKI material holds a %T, not an EC key", webcrypto.ErrData, parsed)
		}
		if pub.Curve != c {
			return nil, fmt.Errorf("%w: key material is not on curve %s", webcrypto.ErrData, p.NamedCurve)
		}
		return webcrypto.NewKey(webcrypto.Public, extractable, alg, usages, pub)

	case webcrypto.FormatJWK:
		j, ok := keyData.(*webcrypto.JSONWebKey)
		if !ok {
			return nil, fmt.Errorf("%w: jwk key material must be a JSON Web Key", webcrypto.ErrType)
		}
		return importJWK(p, c, j, extractable, usages)

	default:
		return nil, fmt.Errorf("%w: ECDSA does not support the %s format", webcrypto.ErrNotSupported, format)
	}
}

func importJWK(p *KeyParams, c elliptic.Curve, j *webcrypto.JSONWebKey, extractable bool, usages []webcrypto.KeyUsage) (*webcrypto.Key, error) {
	if err := jwkutil.CheckKty(j, "EC"); err != nil {
		return nil, err
	}
	if j.Crv != p.NamedCurve {
		return nil, fmt.Errorf("%w: JWK crv is %q, want %q", webcrypto.ErrData, j.Crv, p.NamedCurve)
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
	if j.X == "" || j.Y == "" {
		return nil, fmt.Errorf("%w: EC JWK must have x and y members", webcrypto.ErrData)
	}
	x, err := jwkutil.B64BigInt(j.X)
	if err != nil {
		return nil, err
	}
	y, err := jwkutil.B64BigInt(j.Y)
	if err != nil {
		return nil, err
	}
	if !c.IsOnCurve(x, y) {
		return nil, fmt.Errorf("%w: point is not on the curve", webcrypto.ErrData)
	}
	pub := &ecdsa.PublicKey{Curve: c, X: x, Y: y}
	alg := keyAlgorithm(p.NamedCurve)

	if j.D == "" {
		if err := checkUsages(usages, pubUsages); err != nil {
			return nil, err
		}
		return webcrypto.NewKey(webcrypto.Public, extractable, alg, usages, pub)
	}

	if err := checkUsages(usages, privUsages); err != nil {
		return nil, err
	}
	d, err := jwkutil.B64BigInt(j.D)
	if err != nil {
		return nil, err
	}
	priv := &ecdsa.PrivateKey{PublicKey: *pub, D: d}
	gx, gy := c.ScalarBaseMult(d.Bytes())
	if gx.Cmp(pub.X) != 0 || gy.Cmp(pub.Y) != 0 {
		return nil, fmt.Errorf("%w: EC JWK d does not match x and y", webcrypto.ErrData)
	}
	return webcrypto.NewKey(webcrypto.Private, extractable, alg, usages, priv)
}

func (module) ExportKey(format webcrypto.KeyFormat, key *webcrypto.Key) (any, error) {
	c, err := curve(key.Algorithm().NamedCurve)
	if err != nil {
		return nil, err
	}
	size := coordinateSize(c)

	switch format {
	case webcrypto.FormatRaw:
		pub, err := publicHandle(key)
		if err != nil {
			return nil, err
		}
		if key.Type() != webcrypto.Public {
			return nil, fmt.Errorf("%w: only public ECDSA keys export as raw", webcrypto.ErrInvalidAccess)
		}
		out := make([]byte, 1+2*size)
		out[0] = 4
		pub.X.FillBytes(out[1 : 1+size])
		pub.Y.FillBytes(out[1+size:])
		return out, nil

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
		pub, err := publicHandle(key)
		if err != nil {
			return nil, err
		}
		if key.Type() != webcrypto.Public {
			return nil, fmt.Errorf("%w: only public ECDSA keys export as spki", webcrypto.ErrInvalidAccess)
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
			Kty: "EC",
			Crv: key.Algorithm().NamedCurve,
			X:   jwkutil.B64FixedInt(pub.X, size),
			Y:   jwkutil.B64FixedInt(pub.Y, size),
			Ext: jwkutil.Ext(key.Extractable()),
		}
		if key.Type() == webcrypto.Private {
			priv, err := privateHandle(key)
			if err != nil {
				return nil, err
			}
			j.D = jwkutil.B64FixedInt(priv.D, size)
		}
		return j, nil

	default:
		return nil, fmt.Errorf("%w: ECDSA does not support the %s format", webcrypto.ErrNotSupported, format)
	}
}

func init() {
	m := module{}
	for op, schema := range map[registry.Operation]registry.SchemaFunc{
		registry.OpSign:        signSchema,
		registry.OpVerify:      signSchema,
		registry.OpGenerateKey: keyParamsSchema,
		registry.OpImportKey:   keyParamsSchema,
		registry.OpExportKey:   keyParamsSchema,
	} {
		if err := registry.Register(op, Name, schema, m); err != nil {
			panic(fmt.Sprintf("ecdsa.init() failed: %v", err))
		}
	}
}

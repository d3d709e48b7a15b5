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

// Package rsakey handles key generation, import and export shared by the
// RSA-based algorithm packages.
package rsakey

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"math/big"
	"slices"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/algorithms/internal/jwkutil"
	"github.com/Aconitin/webcrypto/internal/descriptor"
	"github.com/Aconitin/webcrypto/internal/registry"
)

// cryptoHashes maps canonical digest names to stdlib hashes.
var cryptoHashes = map[string]crypto.Hash{
	"SHA-1":    crypto.SHA1,
	"SHA-256":  crypto.SHA256,
	"SHA-384":  crypto.SHA384,
	"SHA-512":  crypto.SHA512,
	"SHA3-256": crypto.SHA3_256,
	"SHA3-384": crypto.SHA3_384,
	"SHA3-512": crypto.SHA3_512,
}

// CryptoHash resolves a canonical digest name to a stdlib hash.
func CryptoHash(name string) (crypto.Hash, error) {
	h, found := cryptoHashes[name]
	if !found {
		return 0, fmt.Errorf("%w: digest %q is not usable with RSA", webcrypto.ErrNotSupported, name)
	}
	return h, nil
}

// rsaF4 is the only public exponent supported for generation.
var rsaF4 = []byte{0x01, 0x00, 0x01}

// KeyGenParams is the parameter record for generateKey of all RSA
// algorithms.
type KeyGenParams struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	// ModulusLength is the modulus size in bits.
	ModulusLength int `mapstructure:"modulusLength"`
	// PublicExponent is the public exponent, big-endian. Only 65537 is
	// supported.
	PublicExponent []byte `mapstructure:"publicExponent"`
	// Hash is the descriptor of the digest to bind to the key.
	Hash any `mapstructure:"hash"`

	// HashName is the canonical digest name after normalization.
	HashName string `mapstructure:"-"`
}

// KeyGenSchema instantiates [KeyGenParams] from descriptor members.
func KeyGenSchema(name string, members map[string]any) (webcrypto.Params, error) {
	var p KeyGenParams
	if err := descriptor.Decode(members, &p); err != nil {
		return nil, err
	}
	p.Name = name
	if p.ModulusLength == 0 {
		return nil, fmt.Errorf("%w: %s: modulusLength member is required", webcrypto.ErrSyntax, name)
	}
	if p.ModulusLength < 1024 || p.ModulusLength > 8192 {
		return nil, fmt.Errorf("%w: %s: modulusLength %d out of range", webcrypto.ErrOperation, name, p.ModulusLength)
	}
	if len(p.PublicExponent) == 0 {
		p.PublicExponent = rsaF4
	}
	if !slices.Equal(new(big.Int).SetBytes(p.PublicExponent).Bytes(), rsaF4) {
		return nil, fmt.Errorf("%w: %s: only public exponent 65537 is supported", webcrypto.ErrNotSupported, name)
	}
	hashName, err := registry.NormalizeDigest(p.Hash)
	if err != nil {
		return nil, err
	}
	p.HashName = hashName
	return &p, nil
}

// ImportParams is the parameter record for importKey of all RSA
// algorithms.
type ImportParams struct {
	webcrypto.Algorithm `mapstructure:",squash"`

	// Hash is the descriptor of the digest to bind to the key.
	Hash any `mapstructure:"hash"`

	// HashName is the canonical digest name after normalization.
	HashName string `mapstructure:"-"`
}

// ImportSchema instantiates [ImportParams] from descriptor members.
func ImportSchema(name string, members map[string]any) (webcrypto.Params, error) {
	var p ImportParams
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

func checkUsages(usages, allowed []webcrypto.KeyUsage) error {
	for _, u := range usages {
		if !slices.Contains(allowed, u) {
			return fmt.Errorf("%w: usage %q not permitted for this algorithm", webcrypto.ErrSyntax, u)
		}
	}
	return nil
}

func intersect(usages, allowed []webcrypto.KeyUsage) []webcrypto.KeyUsage {
	out := make([]webcrypto.KeyUsage, 0, len(usages))
	for _, u := range usages {
		if slices.Contains(allowed, u) {
			out = append(out, u)
		}
	}
	return out
}

func keyAlgorithm(name, hashName string, pub *rsa.PublicKey) webcrypto.KeyAlgorithm {
	return webcrypto.KeyAlgorithm{
		Name:           name,
		ModulusLength:  pub.N.BitLen(),
		PublicExponent: big.NewInt(int64(pub.E)).Bytes(),
		Hash:           hashName,
	}
}

// Generate produces an RSA key pair for the named algorithm. The
// requested usages are split across the halves by pubUsages/privUsages;
// the private key must end up with at least one.
func Generate(p *KeyGenParams, extractable bool, usages, pubUsages, privUsages []webcrypto.KeyUsage) (*webcrypto.KeyPair, error) {
	if err := checkUsages(usages, append(slices.Clone(pubUsages), privUsages...)); err != nil {
		return nil, err
	}
	priv, err := rsa.GenerateKey(rand.Reader, p.ModulusLength)
	if err != nil {
		return nil, fmt.Errorf("%w: generating RSA key: %v", webcrypto.ErrOperation, err)
	}
	alg := keyAlgorithm(p.Name, p.HashName, &priv.PublicKey)
	publicKey, err := webcrypto.NewKey(webcrypto.Public, true, alg, intersect(usages, pubUsages), &priv.PublicKey)
	if err != nil {
		return nil, err
	}
	privateKey, err := webcrypto.NewKey(webcrypto.Private, extractable, alg, intersect(usages, privUsages), priv)
	if err != nil {
		return nil, err
	}
	return &webcrypto.KeyPair{PublicKey: publicKey, PrivateKey: privateKey}, nil
}

// Import builds an RSA key from external material. jwkAlg is the
// expected JWK alg member ("" skips the check); jwkUse the expected use
// member.
func Import(p *ImportParams, format webcrypto.KeyFormat, keyData any, extractable bool, usages, pubUsages, privUsages []webcrypto.KeyUsage, jwkAlg, jwkUse string) (*webcrypto.Key, error) {
	switch format {
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
		priv, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: PKCS #8 material holds a %T, not an RSA key", webcrypto.ErrData, parsed)
		}
		return webcrypto.NewKey(webcrypto.Private, extractable, keyAlgorithm(p.Name, p.HashName, &priv.PublicKey), usages, priv)

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
		pub, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: SPKI material holds a %T, not an RSA key", webcrypto.ErrData, parsed)
		}
		return webcrypto.NewKey(webcrypto.Public, extractable, keyAlgorithm(p.Name, p.HashName, pub), usages, pub)

	case webcrypto.FormatJWK:
		j, ok := keyData.(*webcrypto.JSONWebKey)
		if !ok {
			return nil, fmt.Errorf("%w: jwk key material must be a JSON Web Key", webcrypto.ErrType)
		}
		return importJWK(p, j, extractable, usages, pubUsages, privUsages, jwkAlg, jwkUse)

	default:
		return nil, fmt.Errorf("%w: %s does not support the %s format", webcrypto.ErrNotSupported, p.Name, format)
	}
}

func importJWK(p *ImportParams, j *webcrypto.JSONWebKey, extractable bool, usages, pubUsages, privUsages []webcrypto.KeyUsage, jwkAlg, jwkUse string) (*webcrypto.Key, error) {
	if err := jwkutil.CheckKty(j, "RSA"); err != nil {
		return nil, err
	}
	if err := jwkutil.CheckAlg(j, jwkAlg); err != nil {
		return nil, err
	}
	if err := jwkutil.CheckUse(j, jwkUse); err != nil {
		return nil, err
	}
	if err := jwkutil.CheckExt(j, extractable); err != nil {
		return nil, err
	}
	if err := jwkutil.CheckOps(j, usages); err != nil {
		return nil, err
	}
	if j.N == "" || j.E == "" {
		return nil, fmt.Errorf("%w: RSA JWK must have n and e members", webcrypto.ErrData)
	}
	n, err := jwkutil.B64BigInt(j.N)
	if err != nil {
		return nil, err
	}
	e, err := jwkutil.B64BigInt(j.E)
	if err != nil {
		return nil, err
	}
	if !e.IsInt64() || e.Int64() <= 1 {
		return nil, fmt.Errorf("%w: invalid RSA public exponent", webcrypto.ErrData)
	}
	pub := &rsa.PublicKey{N: n, E: int(e.Int64())}

	if j.D == "" {
		if err := checkUsages(usages, pubUsages); err != nil {
			return nil, err
		}
		return webcrypto.NewKey(webcrypto.Public, extractable, keyAlgorithm(p.Name, p.HashName, pub), usages, pub)
	}

	if err := checkUsages(usages, privUsages); err != nil {
		return nil, err
	}
	if j.P == "" || j.Q == "" {
		return nil, fmt.Errorf("%w: private RSA JWK must carry p and q", webcrypto.ErrData)
	}
	d, err := jwkutil.B64BigInt(j.D)
	if err != nil {
		return nil, err
	}
	prime1, err := jwkutil.B64BigInt(j.P)
	if err != nil {
		return nil, err
	}
	prime2, err := jwkutil.B64BigInt(j.Q)
	if err != nil {
		return nil, err
	}
	priv := &rsa.PrivateKey{
		PublicKey: *pub,
		D:         d,
		Primes:    []*big.Int{prime1, prime2},
	}
	if err := priv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid RSA private key: %v", webcrypto.ErrData, err)
	}
	priv.Precompute()
	return webcrypto.NewKey(webcrypto.Private, extractable, keyAlgorithm(p.Name, p.HashName, pub), usages, priv)
}

// Export surfaces an RSA key in the requested format.
func Export(format webcrypto.KeyFormat, key *webcrypto.Key, jwkAlg string) (any, error) {
	switch format {
	case webcrypto.FormatPKCS8:
		priv, err := PrivateHandle(key)
		if err != nil {
			return nil, err
		}
		der, err := x509.MarshalPKCS8PrivateKey(priv)
		if err != nil {
			return nil, fmt.Errorf("%w: marshaling PKCS #8: %v", webcrypto.ErrOperation, err)
		}
		return der, nil

	case webcrypto.FormatSPKI:
		pub, err := PublicHandle(key)
		if err != nil {
			return nil, err
		}
		der, err := x509.MarshalPKIXPublicKey(pub)
		if err != nil {
			return nil, fmt.Errorf("%w: marshaling SPKI: %v", webcrypto.ErrOperation, err)
		}
		return der, nil

	case webcrypto.FormatJWK:
		return exportJWK(key, jwkAlg)

	default:
		return nil, fmt.Errorf("%w: %s does not support the %s format", webcrypto.ErrNotSupported, key.Algorithm().Name, format)
	}
}

func exportJWK(key *webcrypto.Key, jwkAlg string) (*webcrypto.JSONWebKey, error) {
	j := &webcrypto.JSONWebKey{
		Kty: "RSA",
		Alg: jwkAlg,
		Ext: jwkutil.Ext(key.Extractable()),
	}
	switch key.Type() {
	case webcrypto.Public:
		pub, err := PublicHandle(key)
		if err != nil {
			return nil, err
		}
		j.N = jwkutil.B64Encode(pub.N.Bytes())
		j.E = jwkutil.B64Encode(big.NewInt(int64(pub.E)).Bytes())
	case webcrypto.Private:
		priv, err := PrivateHandle(key)
		if err != nil {
			return nil, err
		}
		priv.Precompute()
		j.N = jwkutil.B64Encode(priv.N.Bytes())
		j.E = jwkutil.B64Encode(big.NewInt(int64(priv.E)).Bytes())
		j.D = jwkutil.B64Encode(priv.D.Bytes())
		j.P = jwkutil.B64Encode(priv.Primes[0].Bytes())
		j.Q = jwkutil.B64Encode(priv.Primes[1].Bytes())
		j.DP = jwkutil.B64Encode(priv.Precomputed.Dp.Bytes())
		j.DQ = jwkutil.B64Encode(priv.Precomputed.Dq.Bytes())
		j.QI = jwkutil.B64Encode(priv.Precomputed.Qinv.Bytes())
	default:
		return nil, fmt.Errorf("%w: cannot export a %s RSA key as JWK", webcrypto.ErrOperation, key.Type())
	}
	return j, nil
}

// PublicHandle returns the public half behind a key handle of either
// type.
func PublicHandle(key *webcrypto.Key) (*rsa.PublicKey, error) {
	switch h := key.Handle().(type) {
	case *rsa.PublicKey:
		return h, nil
	case *rsa.PrivateKey:
		return &h.PublicKey, nil
	}
	return nil, fmt.Errorf("%w: key handle is not an RSA key", webcrypto.ErrOperation)
}

// PrivateHandle returns the private key behind a key handle.
func PrivateHandle(key *webcrypto.Key) (*rsa.PrivateKey, error) {
	priv, ok := key.Handle().(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: key handle is not an RSA private key", webcrypto.ErrOperation)
	}
	return priv, nil
}

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

package webcrypto

import (
	"fmt"
	"slices"
)

// KeyType describes which half of a key a [Key] handle represents.
type KeyType string

const (
	// Secret is a symmetric key.
	Secret KeyType = "secret"
	// Private is the private half of an asymmetric key pair.
	Private KeyType = "private"
	// Public is the public half of an asymmetric key pair.
	Public KeyType = "public"
)

// KeyUsage is a token authorizing one operation on one key.
type KeyUsage string

const (
	UsageEncrypt    KeyUsage = "encrypt"
	UsageDecrypt    KeyUsage = "decrypt"
	UsageSign       KeyUsage = "sign"
	UsageVerify     KeyUsage = "verify"
	UsageDeriveKey  KeyUsage = "deriveKey"
	UsageDeriveBits KeyUsage = "deriveBits"
	UsageWrapKey    KeyUsage = "wrapKey"
	UsageUnwrapKey  KeyUsage = "unwrapKey"
)

var recognizedUsages = []KeyUsage{
	UsageEncrypt, UsageDecrypt, UsageSign, UsageVerify,
	UsageDeriveKey, UsageDeriveBits, UsageWrapKey, UsageUnwrapKey,
}

// publicUsages are the only usages a public key may carry.
var publicUsages = []KeyUsage{UsageEncrypt, UsageVerify, UsageWrapKey}

// NormalizeUsages deduplicates usages, preserving first-occurrence order.
// An unknown token is rejected with [ErrSyntax].
func NormalizeUsages(usages []KeyUsage) ([]KeyUsage, error) {
	out := make([]KeyUsage, 0, len(usages))
	for _, u := range usages {
		if !slices.Contains(recognizedUsages, u) {
			return nil, fmt.Errorf("%w: unknown key usage %q", ErrSyntax, u)
		}
		if !slices.Contains(out, u) {
			out = append(out, u)
		}
	}
	return out, nil
}

// KeyFormat names a key-material format.
type KeyFormat string

const (
	// FormatRaw is the raw octets of a secret key or of an uncompressed
	// public point.
	FormatRaw KeyFormat = "raw"
	// FormatPKCS8 is the DER encoding of a PKCS #8 PrivateKeyInfo.
	FormatPKCS8 KeyFormat = "pkcs8"
	// FormatSPKI is the DER encoding of an X.509 SubjectPublicKeyInfo.
	FormatSPKI KeyFormat = "spki"
	// FormatJWK is a JSON Web Key.
	FormatJWK KeyFormat = "jwk"
)

// KeyAlgorithm is the algorithm record stored on a key: the canonical
// algorithm name plus the algorithm-specific members that were fixed when
// the key was created. Members that do not apply to the algorithm are
// left zero.
type KeyAlgorithm struct {
	Name string
	// Length is the key length in bits (AES, HMAC, ChaCha20-Poly1305).
	Length int
	// Hash is the digest algorithm bound to the key (HMAC, RSA).
	Hash string
	// ModulusLength is the RSA modulus length in bits.
	ModulusLength int
	// PublicExponent is the RSA public exponent, big-endian.
	PublicExponent []byte
	// NamedCurve is the curve name (ECDSA, ECDH).
	NamedCurve string
}

// Key is an opaque handle to key material held in memory. The material
// itself is owned by the algorithm package that created the key and is
// reachable only through [Key.Handle].
type Key struct {
	keyType     KeyType
	extractable bool
	algorithm   KeyAlgorithm
	usages      []KeyUsage
	handle      any
}

// NewKey constructs a key handle, enforcing the construction invariants:
// usages must be recognized, a public key may only carry encrypt, verify
// and wrapKey, and a secret or private key must carry at least one usage.
// Violations are reported with [ErrSyntax].
//
// NewKey is intended for algorithm implementations; applications obtain
// keys from generateKey, importKey, deriveKey or unwrapKey.
func NewKey(keyType KeyType, extractable bool, algorithm KeyAlgorithm, usages []KeyUsage, handle any) (*Key, error) {
	normalized, err := NormalizeUsages(usages)
	if err != nil {
		return nil, err
	}
	switch keyType {
	case Public:
		for _, u := range normalized {
			if !slices.Contains(publicUsages, u) {
				return nil, fmt.Errorf("%w: usage %q not permitted on a public key", ErrSyntax, u)
			}
		}
	case Secret, Private:
		if len(normalized) == 0 {
			return nil, fmt.Errorf("%w: a %s key must have at least one usage", ErrSyntax, keyType)
		}
	default:
		return nil, fmt.Errorf("%w: unknown key type %q", ErrSyntax, keyType)
	}
	return &Key{
		keyType:     keyType,
		extractable: extractable,
		algorithm:   algorithm,
		usages:      normalized,
		handle:      handle,
	}, nil
}

// Type returns the key type.
func (k *Key) Type() KeyType { return k.keyType }

// Extractable reports whether the key material may be exported.
func (k *Key) Extractable() bool { return k.extractable }

// Algorithm returns the algorithm record the key is bound to.
func (k *Key) Algorithm() KeyAlgorithm { return k.algorithm }

// Usages returns a copy of the key's authorized usages.
func (k *Key) Usages() []KeyUsage { return slices.Clone(k.usages) }

// HasUsage reports whether u is among the key's authorized usages.
func (k *Key) HasUsage(u KeyUsage) bool { return slices.Contains(k.usages, u) }

// Handle returns the implementation-defined state owned by the algorithm
// package that created the key. Callers outside that package must treat
// the value as opaque.
func (k *Key) Handle() any { return k.handle }

// KeyPair holds the two halves of an asymmetric key.
type KeyPair struct {
	PublicKey  *Key
	PrivateKey *Key
}

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

// Package subtle is the operation dispatcher: the public surface of the
// cryptographic service.
//
// Every operation follows the same skeleton: octet inputs are copied by
// value, the algorithm descriptor is normalized against the registry for
// that one operation, the remainder runs as a deferred computation that
// validates the key's usages and extractability and then invokes the
// resolved capability on the algorithm module. Failures reject the
// returned [webcrypto.Result] with an error wrapping one of the
// [webcrypto] sentinel errors; nothing is thrown across the dispatch
// boundary.
//
// Importing this package links in the full algorithm suite.
package subtle

import (
	"bytes"
	"fmt"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/internal/registry"

	_ "github.com/Aconitin/webcrypto/algorithms/aescbc"           // To register AES-CBC.
	_ "github.com/Aconitin/webcrypto/algorithms/aesctr"           // To register AES-CTR.
	_ "github.com/Aconitin/webcrypto/algorithms/aesgcm"           // To register AES-GCM.
	_ "github.com/Aconitin/webcrypto/algorithms/aeskw"            // To register AES-KW.
	_ "github.com/Aconitin/webcrypto/algorithms/chacha20poly1305" // To register ChaCha20-Poly1305.
	_ "github.com/Aconitin/webcrypto/algorithms/ecdh"             // To register ECDH.
	_ "github.com/Aconitin/webcrypto/algorithms/ecdsa"            // To register ECDSA.
	_ "github.com/Aconitin/webcrypto/algorithms/ed25519"          // To register Ed25519.
	_ "github.com/Aconitin/webcrypto/algorithms/hkdf"             // To register HKDF.
	_ "github.com/Aconitin/webcrypto/algorithms/hmac"             // To register HMAC.
	_ "github.com/Aconitin/webcrypto/algorithms/pbkdf2"           // To register PBKDF2.
	_ "github.com/Aconitin/webcrypto/algorithms/rsaoaep"          // To register RSA-OAEP.
	_ "github.com/Aconitin/webcrypto/algorithms/rsassapkcs1"      // To register RSASSA-PKCS1-v1_5.
	_ "github.com/Aconitin/webcrypto/algorithms/rsassapss"        // To register RSA-PSS.
	_ "github.com/Aconitin/webcrypto/algorithms/sha"              // To register the SHA digests.
	_ "github.com/Aconitin/webcrypto/algorithms/x25519"           // To register X25519.
)

// Crypto dispatches cryptographic operations against the algorithm
// registry. The zero value is ready to use; all state lives in the
// registry, which is read-only after package initialization.
type Crypto struct{}

// New returns a dispatcher backed by the registered algorithm suite.
func New() *Crypto { return &Crypto{} }

// reject returns a Result that has already rejected with err.
func reject[T any](op, alg string, err error) *webcrypto.Result[T] {
	r, complete := webcrypto.NewResult[T]()
	var zero T
	complete(zero, &webcrypto.Error{Op: op, Alg: alg, Err: err})
	return r
}

// spawn schedules fn as the deferred remainder of an operation. A panic
// in an algorithm module is captured and converted into a rejection.
func spawn[T any](op, alg string, fn func() (T, error)) *webcrypto.Result[T] {
	r, complete := webcrypto.NewResult[T]()
	go func() {
		defer func() {
			if p := recover(); p != nil {
				var zero T
				complete(zero, &webcrypto.Error{Op: op, Alg: alg, Err: fmt.Errorf("%w: algorithm module panicked: %v", webcrypto.ErrOperation, p)})
			}
		}()
		v, err := fn()
		if err != nil {
			var zero T
			complete(zero, &webcrypto.Error{Op: op, Alg: alg, Err: err})
			return
		}
		complete(v, nil)
	}()
	return r
}

// checkKeyAlgorithm enforces that the normalized parameter record names
// the same algorithm the key is bound to.
func checkKeyAlgorithm(params webcrypto.Params, key *webcrypto.Key) error {
	if params.Algorithm() != key.Algorithm().Name {
		return fmt.Errorf("%w: operation uses %q but the key is bound to %q", webcrypto.ErrInvalidAccess, params.Algorithm(), key.Algorithm().Name)
	}
	return nil
}

// checkUsage enforces that the key authorizes the operation.
func checkUsage(key *webcrypto.Key, usage webcrypto.KeyUsage) error {
	if !key.HasUsage(usage) {
		return fmt.Errorf("%w: key does not authorize %q", webcrypto.ErrInvalidAccess, usage)
	}
	return nil
}

// checkProducedKey enforces the post-conditions on key-producing
// operations: no unusable secret or private keys.
func checkProducedKey(result any) error {
	switch k := result.(type) {
	case *webcrypto.Key:
		if (k.Type() == webcrypto.Secret || k.Type() == webcrypto.Private) && len(k.Usages()) == 0 {
			return fmt.Errorf("%w: produced %s key has no usages", webcrypto.ErrSyntax, k.Type())
		}
	case *webcrypto.KeyPair:
		if k.PrivateKey == nil || len(k.PrivateKey.Usages()) == 0 {
			return fmt.Errorf("%w: produced key pair has an unusable private key", webcrypto.ErrSyntax)
		}
	default:
		return fmt.Errorf("%w: module produced a %T, not a key or key pair", webcrypto.ErrOperation, result)
	}
	return nil
}

// copyKeyData copies caller-owned key material before the deferred
// computation starts. Unrecognized shapes pass through; the
// format/material validation rejects them later with the right error.
func copyKeyData(keyData any) any {
	switch m := keyData.(type) {
	case []byte:
		return bytes.Clone(m)
	case *webcrypto.JSONWebKey:
		return m.Clone()
	}
	return keyData
}

// materialFor enforces the format-vs-material rule: binary formats take
// a byte buffer, jwk takes a JSON Web Key.
func materialFor(format webcrypto.KeyFormat, keyData any) (any, error) {
	switch format {
	case webcrypto.FormatRaw, webcrypto.FormatPKCS8, webcrypto.FormatSPKI:
		raw, ok := keyData.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: %s key material must be a byte buffer, got %T", webcrypto.ErrType, format, keyData)
		}
		return raw, nil
	case webcrypto.FormatJWK:
		j, ok := keyData.(*webcrypto.JSONWebKey)
		if !ok {
			return nil, fmt.Errorf("%w: jwk key material must be a *webcrypto.JSONWebKey, got %T", webcrypto.ErrType, keyData)
		}
		return j, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized key format %q", webcrypto.ErrNotSupported, format)
	}
}

// Encrypt encrypts data with key under the algorithm described by alg.
// It resolves with the ciphertext.
func (c *Crypto) Encrypt(alg webcrypto.AlgorithmIdentifier, key *webcrypto.Key, data []byte) *webcrypto.Result[[]byte] {
	data = bytes.Clone(data)
	params, entry, err := registry.Normalize(registry.OpEncrypt, alg)
	if err != nil {
		return reject[[]byte]("encrypt", "", err)
	}
	return spawn("encrypt", params.Algorithm(), func() ([]byte, error) {
		if err := checkKeyAlgorithm(params, key); err != nil {
			return nil, err
		}
		if err := checkUsage(key, webcrypto.UsageEncrypt); err != nil {
			return nil, err
		}
		enc, ok := entry.Module.(registry.Encrypter)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot encrypt", webcrypto.ErrNotSupported, params.Algorithm())
		}
		return enc.Encrypt(params, key, data)
	})
}

// Decrypt decrypts data with key under the algorithm described by alg.
// It resolves with the plaintext.
func (c *Crypto) Decrypt(alg webcrypto.AlgorithmIdentifier, key *webcrypto.Key, data []byte) *webcrypto.Result[[]byte] {
	data = bytes.Clone(data)
	params, entry, err := registry.Normalize(registry.OpDecrypt, alg)
	if err != nil {
		return reject[[]byte]("decrypt", "", err)
	}
	return spawn("decrypt", params.Algorithm(), func() ([]byte, error) {
		if err := checkKeyAlgorithm(params, key); err != nil {
			return nil, err
		}
		if err := checkUsage(key, webcrypto.UsageDecrypt); err != nil {
			return nil, err
		}
		dec, ok := entry.Module.(registry.Decrypter)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot decrypt", webcrypto.ErrNotSupported, params.Algorithm())
		}
		return dec.Decrypt(params, key, data)
	})
}

// Sign computes a signature over data with key. It resolves with the
// signature bytes.
func (c *Crypto) Sign(alg webcrypto.AlgorithmIdentifier, key *webcrypto.Key, data []byte) *webcrypto.Result[[]byte] {
	data = bytes.Clone(data)
	params, entry, err := registry.Normalize(registry.OpSign, alg)
	if err != nil {
		return reject[[]byte]("sign", "", err)
	}
	return spawn("sign", params.Algorithm(), func() ([]byte, error) {
		if err := checkKeyAlgorithm(params, key); err != nil {
			return nil, err
		}
		if err := checkUsage(key, webcrypto.UsageSign); err != nil {
			return nil, err
		}
		signer, ok := entry.Module.(registry.Signer)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot sign", webcrypto.ErrNotSupported, params.Algorithm())
		}
		return signer.Sign(params, key, data)
	})
}

// Verify checks signature over data with key. It resolves false for an
// invalid signature; operational failures reject.
func (c *Crypto) Verify(alg webcrypto.AlgorithmIdentifier, key *webcrypto.Key, signature, data []byte) *webcrypto.Result[bool] {
	signature = bytes.Clone(signature)
	data = bytes.Clone(data)
	params, entry, err := registry.Normalize(registry.OpVerify, alg)
	if err != nil {
		return reject[bool]("verify", "", err)
	}
	return spawn("verify", params.Algorithm(), func() (bool, error) {
		if err := checkKeyAlgorithm(params, key); err != nil {
			return false, err
		}
		if err := checkUsage(key, webcrypto.UsageVerify); err != nil {
			return false, err
		}
		verifier, ok := entry.Module.(registry.Verifier)
		if !ok {
			return false, fmt.Errorf("%w: %s cannot verify", webcrypto.ErrNotSupported, params.Algorithm())
		}
		return verifier.Verify(params, key, signature, data)
	})
}

// Digest computes the digest of data under the algorithm described by
// alg.
func (c *Crypto) Digest(alg webcrypto.AlgorithmIdentifier, data []byte) *webcrypto.Result[[]byte] {
	data = bytes.Clone(data)
	params, entry, err := registry.Normalize(registry.OpDigest, alg)
	if err != nil {
		return reject[[]byte]("digest", "", err)
	}
	return spawn("digest", params.Algorithm(), func() ([]byte, error) {
		digester, ok := entry.Module.(registry.Digester)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot digest", webcrypto.ErrNotSupported, params.Algorithm())
		}
		return digester.Digest(params, data)
	})
}

// GenerateKey generates a key or key pair. The result holds a
// [*webcrypto.Key] for symmetric algorithms and a [*webcrypto.KeyPair]
// for asymmetric ones.
func (c *Crypto) GenerateKey(alg webcrypto.AlgorithmIdentifier, extractable bool, usages []webcrypto.KeyUsage) *webcrypto.Result[any] {
	params, entry, err := registry.Normalize(registry.OpGenerateKey, alg)
	if err != nil {
		return reject[any]("generateKey", "", err)
	}
	return spawn("generateKey", params.Algorithm(), func() (any, error) {
		normalized, err := webcrypto.NormalizeUsages(usages)
		if err != nil {
			return nil, err
		}
		gen, ok := entry.Module.(registry.KeyGenerator)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot generate keys", webcrypto.ErrNotSupported, params.Algorithm())
		}
		result, err := gen.GenerateKey(params, extractable, normalized)
		if err != nil {
			return nil, err
		}
		if err := checkProducedKey(result); err != nil {
			return nil, err
		}
		return result, nil
	})
}

// ImportKey builds a key from external material: a byte buffer for the
// raw, pkcs8 and spki formats, a [*webcrypto.JSONWebKey] for jwk. The
// produced key carries exactly the requested extractability and usages.
func (c *Crypto) ImportKey(format webcrypto.KeyFormat, keyData any, alg webcrypto.AlgorithmIdentifier, extractable bool, usages []webcrypto.KeyUsage) *webcrypto.Result[*webcrypto.Key] {
	keyData = copyKeyData(keyData)
	params, entry, err := registry.Normalize(registry.OpImportKey, alg)
	if err != nil {
		return reject[*webcrypto.Key]("importKey", "", err)
	}
	return spawn("importKey", params.Algorithm(), func() (*webcrypto.Key, error) {
		material, err := materialFor(format, keyData)
		if err != nil {
			return nil, err
		}
		normalized, err := webcrypto.NormalizeUsages(usages)
		if err != nil {
			return nil, err
		}
		importer, ok := entry.Module.(registry.KeyImporter)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot import keys", webcrypto.ErrNotSupported, params.Algorithm())
		}
		key, err := importer.ImportKey(params, format, material, extractable, normalized)
		if err != nil {
			return nil, err
		}
		if err := checkProducedKey(key); err != nil {
			return nil, err
		}
		return key, nil
	})
}

// ExportKey surfaces key material in the requested format. The
// algorithm is the key's own; no descriptor is taken. The result holds
// a []byte for the binary formats and a [*webcrypto.JSONWebKey] for
// jwk.
func (c *Crypto) ExportKey(format webcrypto.KeyFormat, key *webcrypto.Key) *webcrypto.Result[any] {
	name := key.Algorithm().Name
	entry, err := registry.Lookup(registry.OpExportKey, name)
	if err != nil {
		return reject[any]("exportKey", name, err)
	}
	return spawn("exportKey", name, func() (any, error) {
		if !key.Extractable() {
			return nil, fmt.Errorf("%w: key is not extractable", webcrypto.ErrInvalidAccess)
		}
		exporter, ok := entry.Module.(registry.KeyExporter)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot export keys", webcrypto.ErrNotSupported, name)
		}
		return exporter.ExportKey(format, key)
	})
}

// DeriveBits derives length bits of secret material from baseKey. A
// length of zero requests the algorithm's natural output size where it
// has one.
func (c *Crypto) DeriveBits(alg webcrypto.AlgorithmIdentifier, baseKey *webcrypto.Key, length int) *webcrypto.Result[[]byte] {
	params, entry, err := registry.Normalize(registry.OpDeriveBits, alg)
	if err != nil {
		return reject[[]byte]("deriveBits", "", err)
	}
	return spawn("deriveBits", params.Algorithm(), func() ([]byte, error) {
		if err := checkKeyAlgorithm(params, baseKey); err != nil {
			return nil, err
		}
		if err := checkUsage(baseKey, webcrypto.UsageDeriveBits); err != nil {
			return nil, err
		}
		deriver, ok := entry.Module.(registry.BitsDeriver)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot derive bits", webcrypto.ErrNotSupported, params.Algorithm())
		}
		return deriver.DeriveBits(params, baseKey, length)
	})
}

// DeriveKey derives a key of type derivedKeyType from baseKey: the
// derivation algorithm produces as many bits as the derived key type
// requires, and the result is imported as a raw key with the requested
// extractability and usages.
func (c *Crypto) DeriveKey(alg webcrypto.AlgorithmIdentifier, baseKey *webcrypto.Key, derivedKeyType webcrypto.AlgorithmIdentifier, extractable bool, usages []webcrypto.KeyUsage) *webcrypto.Result[*webcrypto.Key] {
	params, entry, err := registry.Normalize(registry.OpDeriveKey, alg)
	if err != nil {
		return reject[*webcrypto.Key]("deriveKey", "", err)
	}
	importParams, importEntry, err := registry.Normalize(registry.OpImportKey, derivedKeyType)
	if err != nil {
		return reject[*webcrypto.Key]("deriveKey", params.Algorithm(), err)
	}
	lengthParams, lengthEntry, err := registry.Normalize(registry.OpGetKeyLength, derivedKeyType)
	if err != nil {
		return reject[*webcrypto.Key]("deriveKey", params.Algorithm(), err)
	}
	return spawn("deriveKey", params.Algorithm(), func() (*webcrypto.Key, error) {
		if err := checkKeyAlgorithm(params, baseKey); err != nil {
			return nil, err
		}
		if err := checkUsage(baseKey, webcrypto.UsageDeriveKey); err != nil {
			return nil, err
		}
		lengthGetter, ok := lengthEntry.Module.(registry.KeyLengthGetter)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no key length", webcrypto.ErrNotSupported, importParams.Algorithm())
		}
		length, err := lengthGetter.GetKeyLength(lengthParams)
		if err != nil {
			return nil, err
		}
		deriver, ok := entry.Module.(registry.BitsDeriver)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot derive bits", webcrypto.ErrNotSupported, params.Algorithm())
		}
		bits, err := deriver.DeriveBits(params, baseKey, length)
		if err != nil {
			return nil, err
		}
		normalized, err := webcrypto.NormalizeUsages(usages)
		if err != nil {
			return nil, err
		}
		importer, ok := importEntry.Module.(registry.KeyImporter)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot import keys", webcrypto.ErrNotSupported, importParams.Algorithm())
		}
		key, err := importer.ImportKey(importParams, webcrypto.FormatRaw, bits, extractable, normalized)
		if err != nil {
			return nil, err
		}
		if err := checkProducedKey(key); err != nil {
			return nil, err
		}
		return key, nil
	})
}

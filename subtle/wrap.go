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

package subtle

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/internal/registry"
)

// normalizeWithFallback normalizes desc under primary and, only when the
// algorithm is not registered there, retries under fallback. If both
// fail the primary error is surfaced. The dispatcher never tries the
// fallback after a successful primary normalization.
func normalizeWithFallback(primary, fallback registry.Operation, desc webcrypto.AlgorithmIdentifier) (webcrypto.Params, *registry.Entry, error) {
	params, entry, err := registry.Normalize(primary, desc)
	if err == nil {
		return params, entry, nil
	}
	if !errors.Is(err, webcrypto.ErrNotSupported) {
		return nil, nil, err
	}
	params, entry, fallbackErr := registry.Normalize(fallback, desc)
	if fallbackErr != nil {
		return nil, nil, err // the original error
	}
	return params, entry, nil
}

// WrapKey exports key in the given format and encrypts the exported
// octets under wrappingKey. A jwk export is wrapped as its canonical
// UTF-8 JSON serialization. The wrapping module's wrapKey capability is
// preferred; encrypt is the fallback.
func (c *Crypto) WrapKey(format webcrypto.KeyFormat, key, wrappingKey *webcrypto.Key, wrapAlg webcrypto.AlgorithmIdentifier) *webcrypto.Result[[]byte] {
	params, entry, err := normalizeWithFallback(registry.OpWrapKey, registry.OpEncrypt, wrapAlg)
	if err != nil {
		return reject[[]byte]("wrapKey", "", err)
	}
	return spawn("wrapKey", params.Algorithm(), func() ([]byte, error) {
		if err := checkKeyAlgorithm(params, wrappingKey); err != nil {
			return nil, err
		}
		if err := checkUsage(wrappingKey, webcrypto.UsageWrapKey); err != nil {
			return nil, err
		}
		exportEntry, err := registry.Lookup(registry.OpExportKey, key.Algorithm().Name)
		if err != nil {
			return nil, err
		}
		if !key.Extractable() {
			return nil, fmt.Errorf("%w: key is not extractable", webcrypto.ErrInvalidAccess)
		}
		exporter, ok := exportEntry.Module.(registry.KeyExporter)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot export keys", webcrypto.ErrNotSupported, key.Algorithm().Name)
		}
		exported, err := exporter.ExportKey(format, key)
		if err != nil {
			return nil, err
		}
		octets, err := wrapOctets(exported)
		if err != nil {
			return nil, err
		}
		if wrapper, ok := entry.Module.(registry.KeyWrapper); ok {
			return wrapper.WrapKey(params, wrappingKey, octets)
		}
		if enc, ok := entry.Module.(registry.Encrypter); ok {
			return enc.Encrypt(params, wrappingKey, octets)
		}
		return nil, fmt.Errorf("%w: %s can neither wrap nor encrypt", webcrypto.ErrNotSupported, params.Algorithm())
	})
}

// wrapOctets materializes an export result as the octets to wrap.
func wrapOctets(exported any) ([]byte, error) {
	switch e := exported.(type) {
	case []byte:
		return e, nil
	case *webcrypto.JSONWebKey:
		return e.Octets()
	}
	return nil, fmt.Errorf("%w: export produced a %T, not octets or a JWK", webcrypto.ErrOperation, exported)
}

// UnwrapKey decrypts wrappedKey under unwrappingKey, re-materializes
// the plaintext according to format, and imports it as a key of type
// unwrappedKeyAlg with the requested extractability and usages. The
// unwrapping module's unwrapKey capability is preferred; decrypt is the
// fallback. The plaintext octets never surface to the caller.
func (c *Crypto) UnwrapKey(format webcrypto.KeyFormat, wrappedKey []byte, unwrappingKey *webcrypto.Key, unwrapAlg, unwrappedKeyAlg webcrypto.AlgorithmIdentifier, extractable bool, keyUsages []webcrypto.KeyUsage) *webcrypto.Result[*webcrypto.Key] {
	wrappedKey = bytes.Clone(wrappedKey)
	params, entry, err := normalizeWithFallback(registry.OpUnwrapKey, registry.OpDecrypt, unwrapAlg)
	if err != nil {
		return reject[*webcrypto.Key]("unwrapKey", "", err)
	}
	// The unwrapped key's algorithm comes from unwrappedKeyAlg, never
	// from the unwrap algorithm.
	importParams, importEntry, err := registry.Normalize(registry.OpImportKey, unwrappedKeyAlg)
	if err != nil {
		return reject[*webcrypto.Key]("unwrapKey", params.Algorithm(), err)
	}
	return spawn("unwrapKey", params.Algorithm(), func() (*webcrypto.Key, error) {
		if err := checkKeyAlgorithm(params, unwrappingKey); err != nil {
			return nil, err
		}
		if err := checkUsage(unwrappingKey, webcrypto.UsageUnwrapKey); err != nil {
			return nil, err
		}
		var (
			octets []byte
			err    error
		)
		// Invoke the algorithm module's capability directly; going back
		// through the public unwrapKey operation would recurse.
		if unwrapper, ok := entry.Module.(registry.KeyUnwrapper); ok {
			octets, err = unwrapper.UnwrapKey(params, unwrappingKey, wrappedKey)
		} else if dec, ok := entry.Module.(registry.Decrypter); ok {
			octets, err = dec.Decrypt(params, unwrappingKey, wrappedKey)
		} else {
			return nil, fmt.Errorf("%w: %s can neither unwrap nor decrypt", webcrypto.ErrNotSupported, params.Algorithm())
		}
		if err != nil {
			return nil, err
		}
		var material any
		switch format {
		case webcrypto.FormatRaw, webcrypto.FormatPKCS8, webcrypto.FormatSPKI:
			material = octets
		case webcrypto.FormatJWK:
			material, err = webcrypto.ParseJSONWebKey(octets)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unrecognized key format %q", webcrypto.ErrNotSupported, format)
		}
		normalized, err := webcrypto.NormalizeUsages(keyUsages)
		if err != nil {
			return nil, err
		}
		importer, ok := importEntry.Module.(registry.KeyImporter)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot import keys", webcrypto.ErrNotSupported, importParams.Algorithm())
		}
		key, err := importer.ImportKey(importParams, format, material, extractable, normalized)
		if err != nil {
			return nil, err
		}
		if err := checkProducedKey(key); err != nil {
			return nil, err
		}
		return key, nil
	})
}

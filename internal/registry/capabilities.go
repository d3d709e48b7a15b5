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

package registry

import "github.com/Aconitin/webcrypto"

// The algorithm-module contract: a module implements whichever subset of
// these capability interfaces its algorithm supports. The dispatcher and
// the wrap/unwrap fallback paths probe the set by type assertion.

// Encrypter encrypts plaintext under a key.
type Encrypter interface {
	Encrypt(params webcrypto.Params, key *webcrypto.Key, plaintext []byte) ([]byte, error)
}

// Decrypter decrypts ciphertext under a key.
type Decrypter interface {
	Decrypt(params webcrypto.Params, key *webcrypto.Key, ciphertext []byte) ([]byte, error)
}

// Signer computes a signature over data.
type Signer interface {
	Sign(params webcrypto.Params, key *webcrypto.Key, data []byte) ([]byte, error)
}

// Verifier checks a signature over data. An invalid signature is reported
// as (false, nil); an error is reserved for operational failures.
type Verifier interface {
	Verify(params webcrypto.Params, key *webcrypto.Key, signature, data []byte) (bool, error)
}

// Digester computes a message digest.
type Digester interface {
	Digest(params webcrypto.Params, data []byte) ([]byte, error)
}

// KeyGenerator generates a new key or key pair. The result is a
// *webcrypto.Key or a *webcrypto.KeyPair.
type KeyGenerator interface {
	GenerateKey(params webcrypto.Params, extractable bool, usages []webcrypto.KeyUsage) (any, error)
}

// KeyImporter builds a key from external material. keyData is []byte for
// the binary formats and *webcrypto.JSONWebKey for jwk.
type KeyImporter interface {
	ImportKey(params webcrypto.Params, format webcrypto.KeyFormat, keyData any, extractable bool, usages []webcrypto.KeyUsage) (*webcrypto.Key, error)
}

// KeyExporter surfaces key material in an external format. The result is
// []byte for the binary formats and *webcrypto.JSONWebKey for jwk.
type KeyExporter interface {
	ExportKey(format webcrypto.KeyFormat, key *webcrypto.Key) (any, error)
}

// BitsDeriver derives length bits of secret material from a base key. A
// length of zero requests the algorithm's full output where the
// algorithm has one.
type BitsDeriver interface {
	DeriveBits(params webcrypto.Params, baseKey *webcrypto.Key, length int) ([]byte, error)
}

// KeyWrapper wraps exported key octets. Modules without it fall back to
// Encrypter in the wrapKey protocol.
type KeyWrapper interface {
	WrapKey(params webcrypto.Params, wrappingKey *webcrypto.Key, keyOctets []byte) ([]byte, error)
}

// KeyUnwrapper unwraps wrapped key octets. Modules without it fall back
// to Decrypter in the unwrapKey protocol.
type KeyUnwrapper interface {
	UnwrapKey(params webcrypto.Params, unwrappingKey *webcrypto.Key, wrappedKey []byte) ([]byte, error)
}

// KeyLengthGetter reports the length in bits of keys described by params,
// used to size the output of deriveKey.
type KeyLengthGetter interface {
	GetKeyLength(params webcrypto.Params) (int, error)
}

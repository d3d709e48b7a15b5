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

// Package sha registers the message-digest algorithms: SHA-1, the SHA-2
// family, and the SHA-3 family as an extension.
//
// SHA-1 is registered for interoperability only and should not be used
// where collision resistance matters.
package sha

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"golang.org/x/crypto/sha3"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/internal/registry"
)

// hashInfo fixes the properties of one digest algorithm.
type hashInfo struct {
	newHash    func() hash.Hash
	digestSize int
	blockSize  int
}

var hashes = map[string]hashInfo{
	"SHA-1":    {sha1.New, 20, 64},
	"SHA-256":  {sha256.New, 32, 64},
	"SHA-384":  {sha512.New384, 48, 128},
	"SHA-512":  {sha512.New, 64, 128},
	"SHA3-256": {sha3.New256, 32, 136},
	"SHA3-384": {sha3.New384, 48, 104},
	"SHA3-512": {sha3.New512, 64, 72},
}

// Params is the parameter record for a digest operation. Digest
// algorithms have no members beyond the name.
type Params struct {
	webcrypto.Algorithm `mapstructure:",squash"`
}

func schema(name string, members map[string]any) (webcrypto.Params, error) {
	return &Params{Algorithm: webcrypto.Algorithm{Name: name}}, nil
}

// HashFunc returns the constructor for a canonical digest name.
func HashFunc(name string) (func() hash.Hash, error) {
	info, found := hashes[name]
	if !found {
		return nil, fmt.Errorf("%w: unknown digest algorithm %q", webcrypto.ErrNotSupported, name)
	}
	return info.newHash, nil
}

// DigestSize returns the output size in bytes of a canonical digest name.
func DigestSize(name string) (int, error) {
	info, found := hashes[name]
	if !found {
		return 0, fmt.Errorf("%w: unknown digest algorithm %q", webcrypto.ErrNotSupported, name)
	}
	return info.digestSize, nil
}

// BlockSize returns the block size in bytes of a canonical digest name.
func BlockSize(name string) (int, error) {
	info, found := hashes[name]
	if !found {
		return 0, fmt.Errorf("%w: unknown digest algorithm %q", webcrypto.ErrNotSupported, name)
	}
	return info.blockSize, nil
}

type digester struct{}

func (digester) Digest(params webcrypto.Params, data []byte) ([]byte, error) {
	newHash, err := HashFunc(params.Algorithm())
	if err != nil {
		return nil, err
	}
	h := newHash()
	h.Write(data)
	return h.Sum(nil), nil
}

func init() {
	for name := range hashes {
		if err := registry.Register(registry.OpDigest, name, schema, digester{}); err != nil {
			panic(fmt.Sprintf("sha.init() failed: %v", err))
		}
	}
}

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

// Package registry maps (operation, algorithm name) pairs to parameter
// schemas and algorithm modules, and normalizes algorithm descriptors
// against those schemas.
//
// Algorithm packages register themselves from init(), so the set of
// available algorithms is fixed by which packages are linked in. The
// registry is read-only after initialization.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/internal/descriptor"
)

// Operation names one of the dispatchable operations. Registration and
// lookup are always per operation: an algorithm registered for encrypt
// says nothing about decrypt.
type Operation string

const (
	OpEncrypt      Operation = "encrypt"
	OpDecrypt      Operation = "decrypt"
	OpSign         Operation = "sign"
	OpVerify       Operation = "verify"
	OpDigest       Operation = "digest"
	OpGenerateKey  Operation = "generateKey"
	OpImportKey    Operation = "importKey"
	OpExportKey    Operation = "exportKey"
	OpDeriveBits   Operation = "deriveBits"
	OpDeriveKey    Operation = "deriveKey"
	OpWrapKey      Operation = "wrapKey"
	OpUnwrapKey    Operation = "unwrapKey"
	OpGetKeyLength Operation = "get key length"
)

// SchemaFunc instantiates an operation-specific parameter record from the
// members of a descriptor. name is the canonical algorithm spelling.
type SchemaFunc func(name string, members map[string]any) (webcrypto.Params, error)

// Entry is one registration: the canonical algorithm name, the parameter
// schema for the operation, and the module implementing it.
type Entry struct {
	// Name is the canonical spelling of the algorithm name.
	Name string
	// NewParams instantiates the parameter record for this operation.
	NewParams SchemaFunc
	// Module is the algorithm implementation. The dispatcher probes its
	// capability set by type assertion.
	Module any
}

var (
	mu      sync.RWMutex
	entries = make(map[Operation]map[string]*Entry)
)

// Register binds an algorithm name to a schema and module for one
// operation. Names are matched case-insensitively but retained in their
// canonical spelling. Registering the same (operation, name) pair twice
// is an error.
func Register(op Operation, name string, schema SchemaFunc, module any) error {
	if schema == nil || module == nil {
		return fmt.Errorf("registry.Register: nil schema or module for %q %s", name, op)
	}
	mu.Lock()
	defer mu.Unlock()
	byName := entries[op]
	if byName == nil {
		byName = make(map[string]*Entry)
		entries[op] = byName
	}
	lower := strings.ToLower(name)
	if _, found := byName[lower]; found {
		return fmt.Errorf("registry.Register: %q already registered for %s", name, op)
	}
	byName[lower] = &Entry{Name: name, NewParams: schema, Module: module}
	return nil
}

// Lookup returns the entry for (op, name), matching name
// case-insensitively. An unregistered pair is reported with
// [webcrypto.ErrNotSupported].
func Lookup(op Operation, name string) (*Entry, error) {
	mu.RLock()
	defer mu.RUnlock()
	if e, found := entries[op][strings.ToLower(name)]; found {
		return e, nil
	}
	return nil, fmt.Errorf("%w: algorithm %q is not registered for %s", webcrypto.ErrNotSupported, name, op)
}

// Normalize converts an algorithm descriptor into a validated parameter
// record for op, per the fixed procedure: a plain string is promoted to a
// name-only descriptor; the name must be registered for op; the
// operation-specific schema is instantiated from the descriptor members;
// nested algorithm descriptors (such as a hash member) are normalized by
// the schema under their own operation.
//
// Normalize is pure: it touches no key material and performs no I/O.
func Normalize(op Operation, desc webcrypto.AlgorithmIdentifier) (webcrypto.Params, *Entry, error) {
	members, err := descriptor.ToMap(desc)
	if err != nil {
		return nil, nil, err
	}
	nameVal, found := descriptor.Member(members, "name")
	if !found {
		return nil, nil, fmt.Errorf("%w: algorithm descriptor has no name", webcrypto.ErrNotSupported)
	}
	name, ok := nameVal.(string)
	if !ok || name == "" {
		return nil, nil, fmt.Errorf("%w: algorithm name must be a non-empty string", webcrypto.ErrNotSupported)
	}
	entry, err := Lookup(op, name)
	if err != nil {
		return nil, nil, err
	}
	params, err := entry.NewParams(entry.Name, members)
	if err != nil {
		return nil, nil, err
	}
	return params, entry, nil
}

// NormalizeDigest normalizes a nested hash-algorithm descriptor under the
// digest operation and returns its canonical name. Schemas use it for
// hash members.
func NormalizeDigest(desc webcrypto.AlgorithmIdentifier) (string, error) {
	if desc == nil {
		return "", fmt.Errorf("%w: missing hash member", webcrypto.ErrSyntax)
	}
	params, _, err := Normalize(OpDigest, desc)
	if err != nil {
		return "", err
	}
	return params.Algorithm(), nil
}

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

// Package descriptor converts loosely-typed algorithm descriptors into
// typed parameter records.
//
// A descriptor may arrive as a plain string, a map with string keys, or a
// typed parameter struct. The package reduces all three to a
// map[string]any and decodes that map into an operation-specific schema
// struct, matching member names case-insensitively.
package descriptor

import (
	"fmt"
	"maps"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/Aconitin/webcrypto"
)

// ToMap reduces an algorithm descriptor to its member map. A plain string
// s becomes {"name": s}. A map is shallow-copied. Any struct (or pointer
// to struct) is read through its mapstructure tags. Other kinds are
// rejected with [webcrypto.ErrSyntax].
func ToMap(desc webcrypto.AlgorithmIdentifier) (map[string]any, error) {
	switch d := desc.(type) {
	case nil:
		return nil, fmt.Errorf("%w: algorithm descriptor is nil", webcrypto.ErrSyntax)
	case string:
		return map[string]any{"name": d}, nil
	case map[string]any:
		return maps.Clone(d), nil
	}
	v := reflect.ValueOf(desc)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("%w: algorithm descriptor is nil", webcrypto.ErrSyntax)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: algorithm descriptor must be a string, map or parameter struct, got %T", webcrypto.ErrSyntax, desc)
	}
	out := map[string]any{}
	structMembers(v, out)
	return out, nil
}

// structMembers flattens the exported fields of a parameter struct into
// m, honoring mapstructure tags. Member values are kept as-is so opaque
// values (a peer *Key, a nested hash descriptor) survive the round trip.
func structMembers(v reflect.Value, m map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		value := v.Field(i)
		if strings.Contains(opts, "squash") && value.Kind() == reflect.Struct {
			structMembers(value, m)
			continue
		}
		if name == "" {
			name = field.Name
		}
		if value.IsZero() {
			continue
		}
		m[name] = value.Interface()
	}
}

// Member fetches a descriptor member by name, case-insensitively.
func Member(m map[string]any, name string) (any, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// Decode instantiates the schema struct dst from the descriptor members
// in m. Member names match case-insensitively; strings and integer
// slices coerce to []byte members; members declared any are set as-is. A
// member of the wrong kind is rejected with [webcrypto.ErrSyntax].
func Decode(m map[string]any, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("%w: building descriptor decoder: %v", webcrypto.ErrSyntax, err)
	}
	if err := dec.Decode(m); err != nil {
		return fmt.Errorf("%w: malformed algorithm descriptor: %v", webcrypto.ErrSyntax, err)
	}
	return nil
}

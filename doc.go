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

// Package webcrypto defines the key model, algorithm descriptors, error
// taxonomy and deferred results shared by the Web-Cryptography-style
// operation dispatcher in [github.com/Aconitin/webcrypto/subtle].
//
// Keys are opaque in-memory handles. A [Key] binds key material owned by
// one algorithm package to an algorithm name, a usage set and an
// extractability flag; the dispatcher enforces that a key is only ever
// handed to the operation and algorithm it was authorized for.
//
// Algorithm descriptors are loosely typed on the way in: a plain string
// ("SHA-256"), a map with a "name" member and algorithm-specific
// parameters, or a typed parameter struct from one of the algorithm
// packages. The dispatcher normalizes a descriptor into a validated
// parameter record for exactly one operation before any key material is
// touched.
package webcrypto

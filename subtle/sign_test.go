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

package subtle_test

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/Aconitin/webcrypto"
	"github.com/Aconitin/webcrypto/subtle"
)

func TestHMACSignVerify(t *testing.T) {
	c := subtle.New()
	alg := map[string]any{"name": "HMAC", "hash": "SHA-256"}
	key := wait(t, c.GenerateKey(alg, true,
		[]webcrypto.KeyUsage{webcrypto.UsageSign, webcrypto.UsageVerify})).(*webcrypto.Key)

	data := []byte("authenticated message")
	sig := wait(t, c.Sign("HMAC", key, data))
	if len(sig) != 32 {
		t.Errorf("len(sig) = %d, want 32", len(sig))
	}
	if !wait(t, c.Verify("HMAC", key, sig, data)) {
		t.Error("Verify() = false for a valid signature")
	}

	// A corrupted signature of the same length resolves false.
	bad := bytes.Clone(sig)
	bad[0] ^= 0x01
	if wait(t, c.Verify("HMAC", key, bad, data)) {
		t.Error("Verify() = true for a corrupted signature")
	}
}

// RFC 4231 test case 2.
func TestHMACVector(t *testing.T) {
	c := subtle.New()
	key := wait(t, c.ImportKey(webcrypto.FormatRaw, []byte("Jefe"),
		map[string]any{"name": "HMAC", "hash": "SHA-256"}, false,
		[]webcrypto.KeyUsage{webcrypto.UsageSign}))
	sig := wait(t, c.Sign("HMAC", key, []byte("what do ya want for nothing?")))
	want := "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"
	if hex.EncodeToString(sig) != want {
		t.Errorf("Sign() = %x, want %s", sig, want)
	}
}

func TestHMACJWKRoundTrip(t *testing.T) {
	c := subtle.New()
	alg := map[string]any{"name": "HMAC", "hash": "SHA-256"}
	key := wait(t, c.GenerateKey(alg, true,
		[]webcrypto.KeyUsage{webcrypto.UsageSign, webcrypto.UsageVerify})).(*webcrypto.Key)
	exported := wait(t, c.ExportKey(webcrypto.FormatJWK, key)).(*webcrypto.JSONWebKey)
	if exported.Kty != "oct" || exported.Alg != "HS256" {
		t.Errorf("exported JWK = (%s, %s), want (oct, HS256)", exported.Kty, exported.Alg)
	}
	imported := wait(t, c.ImportKey(webcrypto.FormatJWK, exported, alg, true,
		[]webcrypto.KeyUsage{webcrypto.UsageSign}))
	data := []byte("same key, same mac")
	sig1 := wait(t, c.Sign("HMAC", key, data))
	sig2 := wait(t, c.Sign("HMAC", imported, data))
	if !bytes.Equal(sig1, sig2) {
		t.Error("imported key signs differently")
	}
}

func TestECDSASignVerify(t *testing.T) {
	c := subtle.New()
	genAlg := map[string]any{"name": "ECDSA", "namedCurve": "P-256"}
	pair := wait(t, c.GenerateKey(genAlg, true,
		[]webcrypto.KeyUsage{webcrypto.UsageSign, webcrypto.UsageVerify})).(*webcrypto.KeyPair)

	signAlg := map[string]any{"name": "ECDSA", "hash": "SHA-256"}
	data := []byte("signed payload")
	sig := wait(t, c.Sign(signAlg, pair.PrivateKey, data))
	if len(sig) != 64 {
		t.Errorf("len(sig) = %d, want 64 (raw r||s on P-256)", len(sig))
	}
	if !wait(t, c.Verify(signAlg, pair.PublicKey, sig, data)) {
		t.Error("Verify() = false for a valid signature")
	}
	bad := bytes.Clone(sig)
	bad[10] ^= 0x01
	if wait(t, c.Verify(signAlg, pair.PublicKey, bad, data)) {
		t.Error("Verify() = true for a corrupted signature")
	}
}

func TestECDSAPublicKeyCannotSign(t *testing.T) {
	c := subtle.New()
	pair := wait(t, c.GenerateKey(map[string]any{"name": "ECDSA", "namedCurve": "P-256"}, true,
		[]webcrypto.KeyUsage{webcrypto.UsageSign, webcrypto.UsageVerify})).(*webcrypto.KeyPair)
	signAlg := map[string]any{"name": "ECDSA", "hash": "SHA-256"}
	waitErr(t, c.Sign(signAlg, pair.PublicKey, []byte("data")), webcrypto.ErrInvalidAccess)
}

func TestECDSAJWKRoundTrip(t *testing.T) {
	c := subtle.New()
	genAlg := map[string]any{"name": "ECDSA", "namedCurve": "P-256"}
	pair := wait(t, c.GenerateKey(genAlg, true,
		[]webcrypto.KeyUsage{webcrypto.UsageSign, webcrypto.UsageVerify})).(*webcrypto.KeyPair)

	exported := wait(t, c.ExportKey(webcrypto.FormatJWK, pair.PrivateKey)).(*webcrypto.JSONWebKey)
	if exported.Kty != "EC" || exported.Crv != "P-256" || exported.D == "" {
		t.Fatalf("exported JWK = %+v, want a P-256 private key", exported)
	}
	imported := wait(t, c.ImportKey(webcrypto.FormatJWK, exported, genAlg, true,
		[]webcrypto.KeyUsage{webcrypto.UsageSign}))

	signAlg := map[string]any{"name": "ECDSA", "hash": "SHA-256"}
	data := []byte("portable key")
	sig := wait(t, c.Sign(signAlg, imported, data))
	if !wait(t, c.Verify(signAlg, pair.PublicKey, sig, data)) {
		t.Error("signature from the re-imported key does not verify")
	}
}

func TestEd25519SignVerify(t *testing.T) {
	c := subtle.New()
	pair := wait(t, c.GenerateKey("Ed25519", true,
		[]webcrypto.KeyUsage{webcrypto.UsageSign, webcrypto.UsageVerify})).(*webcrypto.KeyPair)

	data := []byte("ed25519 payload")
	sig := wait(t, c.Sign("Ed25519", pair.PrivateKey, data))
	if len(sig) != 64 {
		t.Errorf("len(sig) = %d, want 64", len(sig))
	}
	if !wait(t, c.Verify("Ed25519", pair.PublicKey, sig, data)) {
		t.Error("Verify() = false for a valid signature")
	}
	bad := bytes.Clone(sig)
	bad[3] ^= 0x01
	if wait(t, c.Verify("Ed25519", pair.PublicKey, bad, data)) {
		t.Error("Verify() = true for a corrupted signature")
	}
}

func TestEd25519RawPublicRoundTrip(t *testing.T) {
	c := subtle.New()
	pair := wait(t, c.GenerateKey("Ed25519", true,
		[]webcrypto.KeyUsage{webcrypto.UsageSign, webcrypto.UsageVerify})).(*webcrypto.KeyPair)
	raw := wait(t, c.ExportKey(webcrypto.FormatRaw, pair.PublicKey)).([]byte)
	imported := wait(t, c.ImportKey(webcrypto.FormatRaw, raw, "Ed25519", true,
		[]webcrypto.KeyUsage{webcrypto.UsageVerify}))
	data := []byte("raw public key")
	sig := wait(t, c.Sign("Ed25519", pair.PrivateKey, data))
	if !wait(t, c.Verify("Ed25519", imported, sig, data)) {
		t.Error("signature does not verify under the re-imported public key")
	}
}

func TestRSASSASignVerify(t *testing.T) {
	c := subtle.New()
	genAlg := map[string]any{
		"name":          "RSASSA-PKCS1-v1_5",
		"modulusLength": 2048,
		"hash":          "SHA-256",
	}
	pair := wait(t, c.GenerateKey(genAlg, true,
		[]webcrypto.KeyUsage{webcrypto.UsageSign, webcrypto.UsageVerify})).(*webcrypto.KeyPair)

	data := []byte("rsa signed payload")
	sig := wait(t, c.Sign("RSASSA-PKCS1-v1_5", pair.PrivateKey, data))
	if len(sig) != 256 {
		t.Errorf("len(sig) = %d, want 256", len(sig))
	}
	if !wait(t, c.Verify("RSASSA-PKCS1-v1_5", pair.PublicKey, sig, data)) {
		t.Error("Verify() = false for a valid signature")
	}
	bad := bytes.Clone(sig)
	bad[100] ^= 0x01
	if wait(t, c.Verify("RSASSA-PKCS1-v1_5", pair.PublicKey, bad, data)) {
		t.Error("Verify() = true for a corrupted signature")
	}
}

func TestRSAPSSSignVerify(t *testing.T) {
	c := subtle.New()
	genAlg := map[string]any{
		"name":          "RSA-PSS",
		"modulusLength": 2048,
		"hash":          "SHA-256",
	}
	pair := wait(t, c.GenerateKey(genAlg, true,
		[]webcrypto.KeyUsage{webcrypto.UsageSign, webcrypto.UsageVerify})).(*webcrypto.KeyPair)

	pssAlg := map[string]any{"name": "RSA-PSS", "saltLength": 32}
	data := []byte("pss signed payload")
	sig := wait(t, c.Sign(pssAlg, pair.PrivateKey, data))
	if !wait(t, c.Verify(pssAlg, pair.PublicKey, sig, data)) {
		t.Error("Verify() = false for a valid signature")
	}
}

func TestRSAOAEPRoundTrip(t *testing.T) {
	c := subtle.New()
	genAlg := map[string]any{
		"name":          "RSA-OAEP",
		"modulusLength": 2048,
		"hash":          "SHA-256",
	}
	pair := wait(t, c.GenerateKey(genAlg, true,
		[]webcrypto.KeyUsage{
			webcrypto.UsageEncrypt, webcrypto.UsageDecrypt,
			webcrypto.UsageWrapKey, webcrypto.UsageUnwrapKey,
		})).(*webcrypto.KeyPair)

	ciphertext := wait(t, c.Encrypt("RSA-OAEP", pair.PublicKey, []byte("hello")))
	plaintext := wait(t, c.Decrypt("RSA-OAEP", pair.PrivateKey, ciphertext))
	if string(plaintext) != "hello" {
		t.Errorf("Decrypt() = %q, want %q", plaintext, "hello")
	}
}

// RSA-OAEP has no wrapKey capability of its own; wrapping rides the
// encrypt/decrypt fallback.
func TestRSAOAEPWrapsViaEncryptFallback(t *testing.T) {
	c := subtle.New()
	genAlg := map[string]any{
		"name":          "RSA-OAEP",
		"modulusLength": 2048,
		"hash":          "SHA-256",
	}
	pair := wait(t, c.GenerateKey(genAlg, true,
		[]webcrypto.KeyUsage{
			webcrypto.UsageEncrypt, webcrypto.UsageDecrypt,
			webcrypto.UsageWrapKey, webcrypto.UsageUnwrapKey,
		})).(*webcrypto.KeyPair)
	aesKey := importGCMKey(t, true, webcrypto.UsageEncrypt, webcrypto.UsageDecrypt)

	wrapped := wait(t, c.WrapKey(webcrypto.FormatRaw, aesKey, pair.PublicKey, "RSA-OAEP"))
	unwrapped := wait(t, c.UnwrapKey(webcrypto.FormatRaw, wrapped, pair.PrivateKey,
		"RSA-OAEP", "AES-GCM", true, []webcrypto.KeyUsage{webcrypto.UsageEncrypt, webcrypto.UsageDecrypt}))
	raw := wait(t, c.ExportKey(webcrypto.FormatRaw, unwrapped)).([]byte)
	original := wait(t, c.ExportKey(webcrypto.FormatRaw, aesKey)).([]byte)
	if !bytes.Equal(raw, original) {
		t.Error("unwrapped key material differs from the original")
	}
}

func TestRSAPKCS8RoundTrip(t *testing.T) {
	c := subtle.New()
	genAlg := map[string]any{
		"name":          "RSASSA-PKCS1-v1_5",
		"modulusLength": 2048,
		"hash":          "SHA-256",
	}
	pair := wait(t, c.GenerateKey(genAlg, true,
		[]webcrypto.KeyUsage{webcrypto.UsageSign, webcrypto.UsageVerify})).(*webcrypto.KeyPair)

	der := wait(t, c.ExportKey(webcrypto.FormatPKCS8, pair.PrivateKey)).([]byte)
	imported := wait(t, c.ImportKey(webcrypto.FormatPKCS8, der, genAlg, true,
		[]webcrypto.KeyUsage{webcrypto.UsageSign}))
	data := []byte("pkcs8 round trip")
	sig := wait(t, c.Sign("RSASSA-PKCS1-v1_5", imported, data))
	if !wait(t, c.Verify("RSASSA-PKCS1-v1_5", pair.PublicKey, sig, data)) {
		t.Error("signature from the re-imported key does not verify")
	}

	spki := wait(t, c.ExportKey(webcrypto.FormatSPKI, pair.PublicKey)).([]byte)
	pub := wait(t, c.ImportKey(webcrypto.FormatSPKI, spki, genAlg, true,
		[]webcrypto.KeyUsage{webcrypto.UsageVerify}))
	if !wait(t, c.Verify("RSASSA-PKCS1-v1_5", pub, sig, data)) {
		t.Error("signature does not verify under the re-imported public key")
	}
}

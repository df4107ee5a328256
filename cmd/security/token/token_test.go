package token

import (
	"strings"
	"testing"
)

func TestFingerprint_SHA256WithoutKey(t *testing.T) {
	t.Setenv(HMACEnvKey, "")

	got := Fingerprint("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("Fingerprint(abc)=%q want=%q", got, want)
	}
	if HMACEnabled() {
		t.Fatalf("expected HMAC disabled")
	}
}

func TestFingerprint_HMACWithKey(t *testing.T) {
	key := strings.Repeat("k", 32)
	t.Setenv(HMACEnvKey, key)

	got := Fingerprint("abc")
	if got != HashHMACSHA256Hex("abc", []byte(key)) {
		t.Fatalf("expected HMAC fingerprint")
	}
	if got == HashSHA256Hex("abc") {
		t.Fatalf("HMAC fingerprint must differ from plain SHA-256")
	}
	if len(got) != FingerprintLen {
		t.Fatalf("fingerprint length=%d want=%d", len(got), FingerprintLen)
	}
}

func TestHMACKeyFromEnv(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if _, err := HMACKeyFromEnv(32); err != ErrHMACKeyMissing {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}

	t.Setenv(HMACEnvKey, "short")
	if _, err := HMACKeyFromEnv(32); err != ErrHMACKeyTooShort {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}

	t.Setenv(HMACEnvKey, strings.Repeat("x", 40))
	if _, err := FingerprintRequireHMAC("tok", 32); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	a := HashSHA256Hex("one")
	b := HashSHA256Hex("two")

	if !Equal(a, a) {
		t.Fatalf("expected equal fingerprints to match")
	}
	if Equal(a, b) {
		t.Fatalf("expected different fingerprints to differ")
	}
	if Equal("", "") {
		t.Fatalf("empty fingerprints must never match")
	}
	if Equal(a[:10], a[:10]) {
		t.Fatalf("truncated fingerprints must never match")
	}
}

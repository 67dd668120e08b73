package crypto

import (
	"bytes"
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := New(testKey)
	if err != nil {
		t.Fatalf("unexpected key error: %v", err)
	}
	if !svc.Configured() {
		t.Fatal("expected configured service")
	}

	plain := []byte("NID-9823-4411")
	sealed, err := svc.Encrypt(plain)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if bytes.Equal(sealed, plain) {
		t.Fatal("ciphertext equals plaintext")
	}
	out, err := svc.Decrypt(sealed)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if !bytes.Equal(out, plain) {
		t.Fatalf("round trip mismatch: %q", out)
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	svc, err := New(testKey)
	if err != nil {
		t.Fatalf("unexpected key error: %v", err)
	}
	sealed, err := svc.Encrypt([]byte("acct-7788"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff
	if _, err := svc.Decrypt(sealed); err == nil {
		t.Fatal("expected tampered ciphertext to fail authentication")
	}
}

func TestUnconfiguredServicePassesThrough(t *testing.T) {
	svc, err := New("")
	if err != nil {
		t.Fatalf("unexpected key error: %v", err)
	}
	if svc.Configured() {
		t.Fatal("expected unconfigured service")
	}
	sealed, err := svc.EncryptString("plain value")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if string(sealed) != "plain value" {
		t.Fatalf("expected passthrough, got %q", sealed)
	}
}

func TestNewRejectsBadKeys(t *testing.T) {
	for _, key := range []string{
		"too-short",
		strings.Repeat("zz", 32), // 64 chars but not hex
		"dGhpcyBpcyBub3QgMzIgYnl0ZXM=",
	} {
		if _, err := New(key); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestNewAcceptsHexKey(t *testing.T) {
	svc, err := New(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("unexpected key error: %v", err)
	}
	if !svc.Configured() {
		t.Fatal("expected configured service")
	}
}

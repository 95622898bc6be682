package crypt

import (
	"errors"
	"strings"
	"testing"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestNewRejectsBadKey(t *testing.T) {
	if _, err := New("not-hex"); err == nil {
		t.Fatal("expected error for non-hex key")
	}
	if _, err := New("aabbcc"); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestCipherRoundTrip(t *testing.T) {
	c, err := New(testKeyHex)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	plain := "6222021234567890"
	enc, err := c.Encrypt(plain)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if strings.Contains(enc, plain) {
		t.Fatalf("ciphertext leaks plaintext: %q", enc)
	}

	got, err := c.Decrypt(enc)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if got != plain {
		t.Fatalf("round trip mismatch: %q != %q", got, plain)
	}
}

func TestCipherNonceUniqueness(t *testing.T) {
	c, err := New(testKeyHex)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	first, err := c.Encrypt("same input")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	second, err := c.Encrypt("same input")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if first == second {
		t.Fatal("two encryptions of the same input must differ")
	}
}

func TestCipherWrongKey(t *testing.T) {
	c1, err := New(testKeyHex)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	c2, err := New("ffeeddccbbaa99887766554433221100ffeeddccbbaa99887766554433221100")
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	enc, err := c1.Encrypt("secret value")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := c2.Decrypt(enc); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestCipherRejectsGarbage(t *testing.T) {
	c, err := New(testKeyHex)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	if _, err := c.Decrypt("%%%not-base64%%%"); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected ErrInvalidCiphertext for bad encoding, got %v", err)
	}
	if _, err := c.Decrypt("c2hvcnQ="); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected ErrInvalidCiphertext for truncated blob, got %v", err)
	}
}

package secretbox

import (
	"strings"
	"testing"
)

func testBox(t *testing.T) *Box {
	t.Helper()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	b, err := NewFromRaw(raw)
	if err != nil {
		t.Fatalf("NewFromRaw: %v", err)
	}
	return b
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()
	b := testBox(t)

	msg := "XXXX-XXXX-1234 ✓"
	ct, err := b.Encrypt(msg)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := b.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if pt != msg {
		t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
	}
}

func TestDecrypt_DetectsTamper(t *testing.T) {
	t.Parallel()
	b := testBox(t)

	ct, err := b.Encrypt("top secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	parts := strings.Split(ct, "|")
	if len(parts) != 2 {
		t.Fatalf("unexpected wire shape: %q", ct)
	}
	// flip un byte del ciphertext
	mut := []byte(parts[1])
	mut[0] ^= 0x01
	if _, err := b.Decrypt(parts[0] + "|" + string(mut)); err == nil {
		t.Fatal("tampered ciphertext should not decrypt")
	}
}

func TestDecrypt_BadFormat(t *testing.T) {
	t.Parallel()
	b := testBox(t)
	for _, bad := range []string{"", "nonsep", "a|b|c", "!!!|???"} {
		if _, err := b.Decrypt(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestBlindIndex_Deterministic(t *testing.T) {
	t.Parallel()
	b := testBox(t)
	if b.BlindIndex("1234") != b.BlindIndex("1234") {
		t.Fatal("blind index must be deterministic")
	}
	if b.BlindIndex("1234") == b.BlindIndex("1235") {
		t.Fatal("distinct values should not collide trivially")
	}
}

func TestNew_RejectsBadKeys(t *testing.T) {
	t.Parallel()
	if _, err := New("not base64 !!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
	if _, err := New("c2hvcnQ="); err == nil { // "short"
		t.Fatal("expected error for wrong length")
	}
}

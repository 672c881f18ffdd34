package crypto

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	key := FromPassphrase("test")
	plain := []byte("hello, subtitles")
	cipher, err := key.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	decrypted, err := key.Decrypt(cipher)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plain) {
		t.Fatalf("round trip mismatch: got %q want %q", decrypted, plain)
	}
}

func TestRoundTripEmptyPayload(t *testing.T) {
	key := FromPassphrase("test")
	cipher, err := key.Encrypt(nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	decrypted, err := key.Decrypt(cipher)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if len(decrypted) != 0 {
		t.Fatalf("expected empty payload, got %d bytes", len(decrypted))
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	cipher, err := FromPassphrase("correct").Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := FromPassphrase("wrong").Decrypt(cipher); err == nil {
		t.Fatalf("expected decrypt under wrong key to fail")
	}
}

func TestDecryptTamperedFails(t *testing.T) {
	key := FromPassphrase("test")
	cipher, err := key.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	cipher[len(cipher)-1] ^= 0xFF
	if _, err := key.Decrypt(cipher); err == nil {
		t.Fatalf("expected decrypt of tampered data to fail")
	}
}

func TestDecryptTruncatedFails(t *testing.T) {
	key := FromPassphrase("test")
	if _, err := key.Decrypt([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected decrypt of truncated data to fail")
	}
}

func TestNoncesDoNotRepeat(t *testing.T) {
	key := FromPassphrase("test")
	plain := []byte("same plaintext every time")
	a, err := key.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := key.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("expected distinct ciphertexts for repeated plaintext due to fresh nonces")
	}
}

// Package crypto implements the symmetric authenticated-encryption envelope
// used to wrap payload bytes end to end between the client pipeline and the
// HTTP handler (spec §4.2). The envelope is self-delimiting: it carries its
// own nonce, so Decrypt needs nothing beyond the ciphertext and the key.
package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/mpv-stt/sttcore/internal/sttcore"
)

// fixedSalt is deliberately constant: the contract requires the *same*
// passphrase to always derive the *same* key (spec §3), which rules out a
// per-call random salt the way password storage would use one. The key
// derivation still benefits from argon2's memory-hard KDF to slow down
// offline passphrase guessing.
var fixedSalt = []byte("mpv-stt-envelope-key-salt-v1")

const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = chacha20poly1305.KeySize
)

// Key is a derived symmetric key used to encrypt and decrypt envelopes.
type Key struct {
	raw [chacha20poly1305.KeySize]byte
}

// FromPassphrase derives a Key deterministically from passphrase.
func FromPassphrase(passphrase string) Key {
	derived := argon2.IDKey([]byte(passphrase), fixedSalt, argonTime, argonMemory, argonThreads, argonKeyLen)
	var k Key
	copy(k.raw[:], derived)
	return k
}

// Encrypt seals plain into a self-delimiting envelope: a fresh random nonce
// followed by the ChaCha20-Poly1305 ciphertext and authentication tag.
// Nonces are drawn from crypto/rand, so they do not repeat across encryptions
// under the same key for any practical request volume.
func (k Key) Encrypt(plain []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(k.raw[:])
	if err != nil {
		return nil, sttcore.Wrap(sttcore.KindCrypto, "init cipher", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, sttcore.Wrap(sttcore.KindCrypto, "generate nonce", err)
	}
	out := aead.Seal(nonce, nonce, plain, nil)
	return out, nil
}

// Decrypt opens an envelope produced by Encrypt under the same key. It
// fails with a Kind=KindCrypto error if cipher was truncated, modified, or
// produced under a different key.
func (k Key) Decrypt(cipher []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(k.raw[:])
	if err != nil {
		return nil, sttcore.Wrap(sttcore.KindCrypto, "init cipher", err)
	}
	if len(cipher) < aead.NonceSize() {
		return nil, sttcore.New(sttcore.KindCrypto, "envelope shorter than nonce")
	}
	nonce, ciphertext := cipher[:aead.NonceSize()], cipher[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, sttcore.Wrap(sttcore.KindCrypto, "authentication failed", err)
	}
	return plain, nil
}

// Package auth derives and compares the fixed-size authentication tokens
// exchanged between the client pipeline and the HTTP handler (spec §4.1).
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// TokenSize is the fixed token length in bytes.
const TokenSize = 32

// tokenLabel is a fixed domain-separation label so this derivation can never
// collide with an HMAC used elsewhere in the process for another purpose.
const tokenLabel = "mpv-stt-auth-token-v1"

// Token is a 32-byte value derived deterministically from a shared secret.
type Token [TokenSize]byte

// FromSecret derives a token from secret. An empty secret is a legal input
// and produces a fixed token; the server only enforces authentication when
// its own configured secret is non-empty (spec §9 open question).
func FromSecret(secret string) Token {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(tokenLabel))
	var tok Token
	copy(tok[:], mac.Sum(nil))
	return tok
}

// FromBytes wraps a raw 32-byte value as a Token, for decoding a token
// received over the wire.
func FromBytes(b []byte) (Token, bool) {
	var tok Token
	if len(b) != TokenSize {
		return tok, false
	}
	copy(tok[:], b)
	return tok, true
}

// Hex returns the lowercase hex encoding used on the wire (x-auth-token).
func (t Token) Hex() string { return hex.EncodeToString(t[:]) }

// FromHex decodes a lowercase-hex-encoded token.
func FromHex(s string) (Token, bool) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Token{}, false
	}
	return FromBytes(b)
}

// Equal compares two tokens in constant time.
func (t Token) Equal(other Token) bool {
	return hmac.Equal(t[:], other[:])
}

// Package crypt turns note content into self-describing, password-protected
// envelopes and back. Keys are derived from the password with PBKDF2-SHA256
// and the payload is sealed with AES-256-GCM; no key material is ever
// stored outside the envelope itself.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Algorithm identifies the only envelope construction this version
	// can produce or open.
	Algorithm = "aes256gcm-pbkdf2"

	// DefaultIterations is the PBKDF2 work factor used when the caller
	// does not supply one.
	DefaultIterations = 390000

	// MinIterations is the floor applied to caller-supplied counts.
	MinIterations = 100000

	saltSize = 16
	keySize  = 32
)

var (
	// ErrDecryptionFailed covers wrong passwords and corrupted or
	// tampered ciphertext alike. The two cases are deliberately
	// indistinguishable so decryption cannot be used as a password
	// oracle.
	ErrDecryptionFailed = errors.New("decryption failed: wrong password or corrupted data")

	// ErrUnsupportedAlgorithm means the envelope was produced by a
	// construction this build does not implement. The note stays locked.
	ErrUnsupportedAlgorithm = errors.New("envelope uses an unsupported encryption algorithm")
)

// Envelope is the text-serialized record stored in a locked note's content
// column. Iterations and salt travel inside it so old notes remain
// decryptable after the configured default changes.
type Envelope struct {
	Encrypted  bool   `json:"enc"`
	Alg        string `json:"alg"`
	Iterations int    `json:"iterations"`
	Salt       string `json:"salt"`
	Ciphertext string `json:"ciphertext"`
}

// DeriveKey stretches a password into a 32-byte AES key.
func DeriveKey(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
}

// Encrypt seals plaintext under a key derived from password, with a fresh
// random salt, and returns the serialized envelope. Iteration counts below
// the floor are raised to the default.
func Encrypt(plaintext, password string, iterations int) (string, error) {
	if iterations < MinIterations {
		iterations = DefaultIterations
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	aead, err := newAEAD(password, salt, iterations)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	env := Envelope{
		Encrypted:  true,
		Alg:        Algorithm,
		Iterations: iterations,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
	}

	out, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Decrypt opens a serialized envelope with the supplied password. Input
// that is not an envelope is returned unchanged, letting one call site
// handle locked and unlocked notes uniformly.
func Decrypt(payload, password string) (string, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil || !env.Encrypted {
		return payload, nil
	}

	if env.Alg != Algorithm {
		return "", ErrUnsupportedAlgorithm
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil || len(salt) == 0 {
		return "", ErrDecryptionFailed
	}

	sealed, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	aead, err := newAEAD(password, salt, env.Iterations)
	if err != nil {
		return "", err
	}

	if len(sealed) < aead.NonceSize() {
		return "", ErrDecryptionFailed
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// IsEnvelope reports whether content parses as a valid encrypted envelope.
func IsEnvelope(content string) bool {
	var env Envelope
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		return false
	}
	return env.Encrypted && env.Alg != "" && env.Ciphertext != ""
}

func newAEAD(password string, salt []byte, iterations int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(DeriveKey(password, salt, iterations))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

package crypt

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests use a tiny iteration count where possible to stay fast; Encrypt
// raises anything below the floor to the default, so the floor itself is
// the cheapest valid work factor.
const testIterations = MinIterations

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	plaintexts := []string{
		"<p>hello world</p>",
		"",
		"# Markdown\n\nwith two lines",
		"unicode: émojis 🔒 and ümlauts",
	}

	for _, plaintext := range plaintexts {
		envelope, err := Encrypt(plaintext, "secret", testIterations)
		require.NoError(t, err)

		got, err := Decrypt(envelope, "secret")
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestDecrypt_WrongPassword(t *testing.T) {
	envelope, err := Encrypt("private stuff", "right", testIterations)
	require.NoError(t, err)

	_, err = Decrypt(envelope, "wrong")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecrypt_PlaintextPassthrough(t *testing.T) {
	// Non-envelope input must come back unchanged so one call site can
	// handle locked and unlocked notes.
	for _, content := range []string{
		"<p>just html</p>",
		"not even close to JSON",
		`{"some":"json","but":"no envelope"}`,
		`{"enc":false,"ciphertext":"x"}`,
	} {
		got, err := Decrypt(content, "whatever")
		require.NoError(t, err)
		assert.Equal(t, content, got)
	}
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	serialized, err := Encrypt("payload", "pw", testIterations)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(serialized), &env))

	sealed, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	env.Ciphertext = base64.StdEncoding.EncodeToString(sealed)

	tampered, err := json.Marshal(env)
	require.NoError(t, err)

	// Tampering and a wrong password must be indistinguishable.
	_, err = Decrypt(string(tampered), "pw")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecrypt_UnknownAlgorithm(t *testing.T) {
	env := Envelope{
		Encrypted:  true,
		Alg:        "rot13-hope",
		Iterations: testIterations,
		Salt:       base64.StdEncoding.EncodeToString(make([]byte, saltSize)),
		Ciphertext: base64.StdEncoding.EncodeToString([]byte("nonsense")),
	}
	payload, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = Decrypt(string(payload), "pw")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestEncrypt_EnvelopeFormat(t *testing.T) {
	serialized, err := Encrypt("content", "pw", 150000)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(serialized), &env))

	assert.True(t, env.Encrypted)
	assert.Equal(t, Algorithm, env.Alg)
	// The caller's count travels inside the envelope, so later config
	// changes cannot orphan old notes.
	assert.Equal(t, 150000, env.Iterations)

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	require.NoError(t, err)
	assert.Len(t, salt, saltSize)
	assert.NotEmpty(t, env.Ciphertext)
}

func TestEncrypt_IterationFloor(t *testing.T) {
	serialized, err := Encrypt("content", "pw", 10)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(serialized), &env))
	assert.Equal(t, DefaultIterations, env.Iterations)
}

func TestEncrypt_FreshSaltPerCall(t *testing.T) {
	a, err := Encrypt("same", "pw", testIterations)
	require.NoError(t, err)
	b, err := Encrypt("same", "pw", testIterations)
	require.NoError(t, err)

	var envA, envB Envelope
	require.NoError(t, json.Unmarshal([]byte(a), &envA))
	require.NoError(t, json.Unmarshal([]byte(b), &envB))
	assert.NotEqual(t, envA.Salt, envB.Salt)
	assert.NotEqual(t, envA.Ciphertext, envB.Ciphertext)
}

func TestIsEnvelope(t *testing.T) {
	envelope, err := Encrypt("x", "pw", testIterations)
	require.NoError(t, err)

	assert.True(t, IsEnvelope(envelope))
	assert.False(t, IsEnvelope("<p>x</p>"))
	assert.False(t, IsEnvelope(`{"enc":false}`))
	assert.False(t, IsEnvelope(""))
}

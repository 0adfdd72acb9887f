package sig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEd25519SignVerify(t *testing.T) {
	signer, err := Ed25519.Generate()
	require.NoError(t, err)

	msg := []byte("narrow the capability before delegating")
	s := signer.Sign(msg)

	verifier := Ed25519.VerifierOf(signer)
	assert.NoError(t, verifier.Verify(msg, s))
	assert.True(t, verifier.PublicKey().Equal(signer.Public()))
}

func TestEd25519VerifyRejectsTamperedMessage(t *testing.T) {
	signer, err := Ed25519.Generate()
	require.NoError(t, err)

	s := signer.Sign([]byte("original"))
	verifier := Ed25519.VerifierOf(signer)

	err = verifier.Verify([]byte("tampered"), s)
	assert.ErrorIs(t, err, ErrVerification)
}

func TestEd25519FromSecretRoundTrip(t *testing.T) {
	signer, err := Ed25519.Generate()
	require.NoError(t, err)

	seed := signer.(ed25519Signer).priv.Seed()
	restored, err := Ed25519.FromSecret(seed)
	require.NoError(t, err)

	assert.True(t, restored.Public().Equal(signer.Public()))
}

func TestEd25519PublicKeyBytesRoundTrip(t *testing.T) {
	signer, err := Ed25519.Generate()
	require.NoError(t, err)

	b := signer.Public().Bytes()
	assert.Len(t, b, Ed25519.PublicKeySize())

	key, err := Ed25519.PublicKeyFromBytes(b)
	require.NoError(t, err)
	assert.True(t, key.Equal(signer.Public()))
}

func TestEd25519RejectsWrongSizedKey(t *testing.T) {
	_, err := Ed25519.PublicKeyFromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

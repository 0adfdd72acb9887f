// Package sig abstracts over a signing scheme: key pair, signer, verifier,
// signature, and their fixed-width byte encodings. Ed25519 is the one
// concrete scheme; it is exposed as a Method interface value, so callers
// such as reference chain validation reach it through dynamic dispatch.
package sig

import "errors"

// ErrVerification is returned by Verifier.Verify when a signature does not
// match the given message under the verifier's public key.
var ErrVerification = errors.New("sig: signature verification failed")

// ErrInvalidKey is returned when key or signature material does not match
// the scheme's expected fixed width or encoding.
var ErrInvalidKey = errors.New("sig: invalid key material")

// PublicKey is an opaque, fixed-width, byte-encoded public key.
type PublicKey interface {
	Bytes() []byte
	Equal(PublicKey) bool
}

// Signature is an opaque, fixed-width, byte-encoded signature.
type Signature interface {
	Bytes() []byte
	Equal(Signature) bool
}

// Signer produces signatures over arbitrary byte slices.
type Signer interface {
	Sign(msg []byte) Signature
	Public() PublicKey
}

// Verifier accepts (message, signature) pairs and reports whether they
// verify under its public key.
type Verifier interface {
	Verify(msg []byte, sig Signature) error
	PublicKey() PublicKey
}

// Method groups the capabilities a concrete signing scheme must provide.
type Method interface {
	// Generate returns a fresh keypair.
	Generate() (Signer, error)
	// FromSecret reconstructs a Signer from scheme-specific secret bytes.
	FromSecret(secret []byte) (Signer, error)
	// VerifierOf returns the Verifier side of signer.
	VerifierOf(signer Signer) Verifier
	// VerifierFromPublicKey builds a Verifier for a public key whose
	// signer is not available, e.g. an issuer read back out of a
	// delegation chain during Reference.Validate.
	VerifierFromPublicKey(pub PublicKey) Verifier
	// PublicKeyFromBytes decodes a fixed-width public key.
	PublicKeyFromBytes(b []byte) (PublicKey, error)
	// SignatureFromBytes decodes a fixed-width signature.
	SignatureFromBytes(b []byte) (Signature, error)
	// PublicKeySize and SignatureSize are the scheme's fixed encoded widths.
	PublicKeySize() int
	SignatureSize() int
}

package sig

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// Ed25519 is the reference Method: 32-byte public keys, 64-byte signatures.
var Ed25519 Method = ed25519Method{}

type ed25519Method struct{}

type ed25519PublicKey struct {
	key ed25519.PublicKey
}

func (k ed25519PublicKey) Bytes() []byte { return []byte(k.key) }

func (k ed25519PublicKey) Equal(other PublicKey) bool {
	o, ok := other.(ed25519PublicKey)
	if !ok {
		return false
	}
	return k.key.Equal(o.key)
}

type ed25519Signature struct {
	bytes []byte
}

func (s ed25519Signature) Bytes() []byte { return s.bytes }

func (s ed25519Signature) Equal(other Signature) bool {
	o, ok := other.(ed25519Signature)
	if !ok || len(s.bytes) != len(o.bytes) {
		return false
	}
	for i := range s.bytes {
		if s.bytes[i] != o.bytes[i] {
			return false
		}
	}
	return true
}

type ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519PublicKey
}

func (s ed25519Signer) Sign(msg []byte) Signature {
	return ed25519Signature{bytes: ed25519.Sign(s.priv, msg)}
}

func (s ed25519Signer) Public() PublicKey { return s.pub }

type ed25519Verifier struct {
	pub ed25519PublicKey
}

func (v ed25519Verifier) Verify(msg []byte, s Signature) error {
	sig, ok := s.(ed25519Signature)
	if !ok || len(sig.bytes) != ed25519.SignatureSize {
		return ErrInvalidKey
	}
	if !ed25519.Verify(v.pub.key, msg, sig.bytes) {
		return ErrVerification
	}
	return nil
}

func (v ed25519Verifier) PublicKey() PublicKey { return v.pub }

func (ed25519Method) Generate() (Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sig: generating ed25519 key: %w", err)
	}
	return ed25519Signer{priv: priv, pub: ed25519PublicKey{key: pub}}, nil
}

func (ed25519Method) FromSecret(secret []byte) (Signer, error) {
	switch len(secret) {
	case ed25519.SeedSize:
		priv := ed25519.NewKeyFromSeed(secret)
		pub := priv.Public().(ed25519.PublicKey)
		return ed25519Signer{priv: priv, pub: ed25519PublicKey{key: pub}}, nil
	case ed25519.PrivateKeySize:
		priv := ed25519.PrivateKey(append([]byte(nil), secret...))
		pub := priv.Public().(ed25519.PublicKey)
		return ed25519Signer{priv: priv, pub: ed25519PublicKey{key: pub}}, nil
	default:
		return nil, fmt.Errorf("%w: ed25519 secret must be %d or %d bytes, got %d",
			ErrInvalidKey, ed25519.SeedSize, ed25519.PrivateKeySize, len(secret))
	}
}

func (ed25519Method) VerifierOf(signer Signer) Verifier {
	s := signer.(ed25519Signer)
	return ed25519Verifier{pub: s.pub}
}

func (ed25519Method) VerifierFromPublicKey(pub PublicKey) Verifier {
	return ed25519Verifier{pub: pub.(ed25519PublicKey)}
}

func (ed25519Method) PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, ed25519.PublicKeySize, len(b))
	}
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, b)
	return ed25519PublicKey{key: key}, nil
}

func (ed25519Method) SignatureFromBytes(b []byte) (Signature, error) {
	if len(b) != ed25519.SignatureSize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, ed25519.SignatureSize, len(b))
	}
	bytes := make([]byte, ed25519.SignatureSize)
	copy(bytes, b)
	return ed25519Signature{bytes: bytes}, nil
}

func (ed25519Method) PublicKeySize() int { return ed25519.PublicKeySize }
func (ed25519Method) SignatureSize() int { return ed25519.SignatureSize }

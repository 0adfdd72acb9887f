// Package reference implements the delegatable object-capability handle:
// an object id bound to a signed chain of Authorizations rooted at an
// issuer public key (spec §3, §4.3).
package reference

import (
	"errors"
	"fmt"

	"github.com/bkfox/rpccaps-go/capability"
	"github.com/bkfox/rpccaps-go/sig"
)

// Error taxonomy (spec §4.3/§7). Each is a distinct sentinel value, with
// ErrSignature and ErrSerialize as wrapper types below; none of them has a
// wire encoding of its own.
var (
	ErrEmpty      = errors.New("reference: chain is empty")
	ErrCapability = errors.New("reference: capability is not a subset of its predecessor")
	ErrIssuer     = errors.New("reference: signer does not match previous subject")
	ErrSubject    = errors.New("reference: chain does not end at the expected subject")
	ErrMaxShare   = errors.New("reference: chain length exceeds max_share+1")
)

// ErrSignature wraps a verification failure at a specific certificate index.
type ErrSignature struct {
	Index int
	Err   error
}

func (e *ErrSignature) Error() string {
	return fmt.Sprintf("reference: signature invalid at certificate %d: %v", e.Index, e.Err)
}

func (e *ErrSignature) Unwrap() error { return e.Err }

// ErrSerialize wraps a canonical-payload construction failure.
type ErrSerialize struct {
	Err error
}

func (e *ErrSerialize) Error() string { return fmt.Sprintf("reference: serialization failed: %v", e.Err) }
func (e *ErrSerialize) Unwrap() error { return e.Err }

// Authorization is what the grantee may do and who the grantee is.
type Authorization struct {
	Capability capability.Capability
	Subject    sig.PublicKey
}

// Certificate is a signed Authorization: one link in a delegation chain.
type Certificate struct {
	Auth      Authorization
	Signature sig.Signature
}

// Reference is an object-capability handle: an id bound to a delegation
// chain rooted at an issuer public key. See spec §3 for the six
// invariants a valid Reference must satisfy; Validate checks all of them.
type Reference struct {
	ID       ObjectID
	Issuer   sig.PublicKey
	MaxShare uint32
	Certs    []Certificate
	method   sig.Method
}

// New creates a Reference rooted at signer, immediately appending the
// first certificate so an empty chain never escapes this constructor.
func New(method sig.Method, id ObjectID, signer sig.Signer, maxShare uint32, auth Authorization) (*Reference, error) {
	r := &Reference{
		ID:       id,
		Issuer:   signer.Public(),
		MaxShare: maxShare,
		method:   method,
	}
	if err := r.Sign(signer, auth); err != nil {
		return nil, err
	}
	return r, nil
}

// Sign appends a new certificate to the chain, narrowing the
// authorization held by the chain's current last subject toward auth.Subject.
func (r *Reference) Sign(signer sig.Signer, auth Authorization) error {
	if uint32(len(r.Certs)) >= r.MaxShare+1 {
		return ErrMaxShare
	}

	if len(r.Certs) > 0 {
		last := r.Certs[len(r.Certs)-1]
		if !signer.Public().Equal(last.Auth.Subject) {
			return ErrIssuer
		}
		if !auth.Capability.IsSubset(last.Auth.Capability) {
			return ErrCapability
		}
	}

	payload, err := r.signPayload(auth)
	if err != nil {
		return &ErrSerialize{Err: err}
	}

	r.Certs = append(r.Certs, Certificate{
		Auth:      auth,
		Signature: signer.Sign(payload),
	})
	return nil
}

// signPayload builds the canonical payload for what would be the next
// certificate appended for auth: FirstPayload if the chain is currently
// empty, NextPayload (bound to the previous certificate's signature)
// otherwise.
func (r *Reference) signPayload(auth Authorization) ([]byte, error) {
	if len(r.Certs) == 0 {
		return firstPayload(auth, r.ID, r.Issuer, r.MaxShare), nil
	}
	prev := r.Certs[len(r.Certs)-1]
	return nextPayload(auth, prev.Signature), nil
}

// Subset returns a new Reference sharing ID, Issuer and MaxShare, whose
// chain is truncated right after the certificate granted to subject. The
// result is itself a valid Reference under the original issuer's key, for
// that subject.
func (r *Reference) Subset(subject sig.PublicKey) (*Reference, bool) {
	for i, cert := range r.Certs {
		if cert.Auth.Subject.Equal(subject) {
			certs := make([]Certificate, i+1)
			copy(certs, r.Certs[:i+1])
			return &Reference{
				ID:       r.ID.Clone(),
				Issuer:   r.Issuer,
				MaxShare: r.MaxShare,
				Certs:    certs,
				method:   r.method,
			}, true
		}
	}
	return nil, false
}

// Shrink re-signs a reference directly from signer to subject, collapsing
// any intermediate certificates between them. signer must be the holder of
// some certificate in the chain; the resulting reference preserves
// MaxShare unchanged (spec §9 open question) so shrinking never loosens
// the chain-length bound.
func (r *Reference) Shrink(signer sig.Signer, subject sig.PublicKey) (*Reference, bool) {
	var granted Authorization
	found := false
	for _, cert := range r.Certs {
		if cert.Auth.Subject.Equal(subject) {
			granted = cert.Auth
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}

	prefix, ok := r.Subset(signer.Public())
	if !ok {
		return nil, false
	}
	if err := prefix.Sign(signer, granted); err != nil {
		return nil, false
	}
	return prefix, true
}

// Validate checks all invariants in spec §3 against expectedSubject: the
// chain is non-empty, within the max-share bound, ends at the expected
// subject, and every adjacent pair of certificates narrows capability and
// chains signer identity and signature correctly back to Issuer.
func (r *Reference) Validate(expectedSubject sig.PublicKey) error {
	if uint32(len(r.Certs)) > r.MaxShare+1 {
		return ErrMaxShare
	}
	if len(r.Certs) == 0 {
		return ErrEmpty
	}
	if !r.Certs[len(r.Certs)-1].Auth.Subject.Equal(expectedSubject) {
		return ErrSubject
	}

	currentIssuer := r.Issuer
	var prev *Certificate
	for i := range r.Certs {
		cert := &r.Certs[i]

		if prev != nil {
			if !cert.Auth.Capability.IsSubset(prev.Auth.Capability) {
				return ErrCapability
			}
			if !currentIssuer.Equal(prev.Auth.Subject) {
				return ErrIssuer
			}
		}

		var payload []byte
		if i == 0 {
			payload = firstPayload(cert.Auth, r.ID, r.Issuer, r.MaxShare)
		} else {
			payload = nextPayload(cert.Auth, prev.Signature)
		}

		verifier := r.method.VerifierFromPublicKey(currentIssuer)
		if err := verifier.Verify(payload, cert.Signature); err != nil {
			return &ErrSignature{Index: i, Err: err}
		}

		currentIssuer = cert.Auth.Subject
		prev = cert
	}
	return nil
}

package rpcsvc

import (
	"fmt"

	"github.com/bkfox/rpccaps-go/reference"
	"github.com/bkfox/rpccaps-go/sig"
)

// AuthService exists purely to hand out narrowed capability references
// over the wire: given the root Reference it holds, a caller asks for a
// Reference narrowed toward some subject already present in the chain.
// This supplements the original's services/auth.rs (dropped by the
// distillation): a minimal, concrete consumer of
// reference.Reference.Subset/Shrink exercised through Derive.
type AuthService struct {
	method sig.Method
	root   *reference.Reference
	signer sig.Signer
}

// NewAuthService wraps root (a Reference rooted at signer) for serving
// over rpcsvc.Derive.
func NewAuthService(method sig.Method, signer sig.Signer, root *reference.Reference) *AuthService {
	return &AuthService{method: method, root: root, signer: signer}
}

// Subset returns the wire encoding of a.root truncated right after the
// certificate granted to the public key encoded in subjectBytes.
func (a *AuthService) Subset(subjectBytes []byte) ([]byte, error) {
	subject, err := a.method.PublicKeyFromBytes(subjectBytes)
	if err != nil {
		return nil, fmt.Errorf("rpcsvc: decoding subject: %w", err)
	}
	sub, ok := a.root.Subset(subject)
	if !ok {
		return nil, fmt.Errorf("rpcsvc: subject not present in chain")
	}
	return sub.MarshalBinary()
}

// Shrink re-signs directly from the service's own signer to the public
// key encoded in subjectBytes, collapsing any intermediate certificates.
func (a *AuthService) Shrink(subjectBytes []byte) ([]byte, error) {
	subject, err := a.method.PublicKeyFromBytes(subjectBytes)
	if err != nil {
		return nil, fmt.Errorf("rpcsvc: decoding subject: %w", err)
	}
	sub, ok := a.root.Shrink(a.signer, subject)
	if !ok {
		return nil, fmt.Errorf("rpcsvc: subject not present in chain, or shrink failed")
	}
	return sub.MarshalBinary()
}

// IsAlive reports the service as always alive: it holds no external
// connection to go stale.
func (a *AuthService) IsAlive() bool { return true }

// Metas reports this service's identity for discovery.
func (a *AuthService) Metas() []Meta {
	return []Meta{{Key: "name", Value: "auth"}}
}

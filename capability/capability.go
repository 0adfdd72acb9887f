// Package capability implements the bitfield algebra used to describe what
// an RPC caller may do, and what it may further delegate to someone else.
package capability

import "fmt"

// Capability is a pair of 64-bit bitfields: Ops is the set of operations
// permitted to the holder, Share is the subset of Ops the holder may
// further delegate. The invariant Share ⊆ Ops must hold at all times;
// every constructor and mutator in this package re-establishes it.
type Capability struct {
	Ops   uint64
	Share uint64
}

// Empty is the capability with no permitted and no shareable operations.
var Empty = Capability{}

// New builds a Capability, masking share down to ops so the invariant
// Share ⊆ Ops always holds regardless of what the caller passes in.
func New(ops, share uint64) Capability {
	return Capability{Ops: ops, Share: share & ops}
}

// Subset builds a new Capability bounded by what c may share: the result
// is New(c.Share&ops, c.Share&share), so it is always a subset of c.
func (c Capability) Subset(ops, share uint64) Capability {
	return Capability{
		Ops:   c.Share & ops,
		Share: c.Share & share & ops,
	}
}

// Intersect computes the component-wise bitwise AND of c and other. This is
// the delegation primitive: a holder of c can produce any subset of c by
// intersecting with a chosen mask.
func (c Capability) Intersect(other Capability) Capability {
	return New(c.Ops&other.Ops, c.Share&other.Share)
}

// IsAllowed reports whether opMask is (at least partially) permitted.
func (c Capability) IsAllowed(opMask uint64) bool {
	return c.Ops&opMask != 0
}

// IsShareable reports whether opMask is (at least partially) shareable.
func (c Capability) IsShareable(opMask uint64) bool {
	return c.Share&opMask != 0
}

// IsValid reports whether the Share ⊆ Ops invariant holds.
func (c Capability) IsValid() bool {
	return c.Share == c.Share&c.Ops
}

// IsSubset reports whether c is a valid delegation of other: c may only
// exercise what other marked shareable, and may only re-share within that
// same shareable set.
func (c Capability) IsSubset(other Capability) bool {
	return c.Ops&^other.Share == 0 && c.Share&^other.Share == 0
}

// Equal reports field-wise equality.
func (c Capability) Equal(other Capability) bool {
	return c.Ops == other.Ops && c.Share == other.Share
}

func (c Capability) String() string {
	return fmt.Sprintf("Capability{ops=%#016x share=%#016x}", c.Ops, c.Share)
}

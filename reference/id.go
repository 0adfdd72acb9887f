package reference

import "github.com/google/uuid"

// ObjectID is an application-defined object identifier: serializable to
// bytes for the canonical signature payload, and cloneable so a Reference
// can be freely copied (Subset, Shrink) without aliasing its id.
type ObjectID interface {
	Bytes() []byte
	Equal(ObjectID) bool
	Clone() ObjectID
}

// UUIDObjectID is the concrete ObjectID the demo binary and tests use,
// following the teacher's habit of minting google/uuid values as opaque
// identifiers (see kshinn-umbra-gateway's TokenID).
type UUIDObjectID struct {
	ID uuid.UUID
}

// NewObjectID mints a fresh random UUID object id.
func NewObjectID() UUIDObjectID {
	return UUIDObjectID{ID: uuid.New()}
}

func (id UUIDObjectID) Bytes() []byte { b := id.ID; return b[:] }

func (id UUIDObjectID) Equal(other ObjectID) bool {
	o, ok := other.(UUIDObjectID)
	return ok && id.ID == o.ID
}

func (id UUIDObjectID) Clone() ObjectID { return UUIDObjectID{ID: id.ID} }

func (id UUIDObjectID) String() string { return id.ID.String() }

package reference

import (
	"encoding/binary"

	"github.com/bkfox/rpccaps-go/sig"
)

// Canonical signature payload tags (spec §4.3/§6). These MUST stay stable:
// changing them would make chains signed by an old implementation fail to
// validate under a new one.
const (
	tagFirstPayload byte = 0x00
	tagNextPayload  byte = 0x01
)

// writeAuth appends Auth := Capability || PublicKey(raw) to buf.
// Capability := U64(ops) || U64(share), little-endian. PublicKey is
// written as raw scheme-fixed bytes with no length prefix, per spec §6.
func writeAuth(buf []byte, auth Authorization) []byte {
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], auth.Capability.Ops)
	buf = append(buf, u64[:]...)
	binary.LittleEndian.PutUint64(u64[:], auth.Capability.Share)
	buf = append(buf, u64[:]...)
	buf = append(buf, auth.Subject.Bytes()...)
	return buf
}

// writeLengthTagged appends a u32-LE length header followed by b, for the
// one genuinely variable-length field in the canonical payload (the
// application-defined object id).
func writeLengthTagged(buf []byte, b []byte) []byte {
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(b)))
	buf = append(buf, u32[:]...)
	return append(buf, b...)
}

// firstPayload builds the canonical payload signed by the root issuer for
// the first certificate in a chain:
// FirstPayload := tag(0x00) || Auth || Id || PublicKey(issuer, raw) || U32(max_share)
func firstPayload(auth Authorization, id ObjectID, issuer sig.PublicKey, maxShare uint32) []byte {
	buf := make([]byte, 0, 1+16+2*8+len(id.Bytes())+len(issuer.Bytes())+4)
	buf = append(buf, tagFirstPayload)
	buf = writeAuth(buf, auth)
	buf = writeLengthTagged(buf, id.Bytes())
	buf = append(buf, issuer.Bytes()...)
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], maxShare)
	buf = append(buf, u32[:]...)
	return buf
}

// nextPayload builds the canonical payload signed by certificate i>0:
// NextPayload := tag(0x01) || Auth || Signature(prev, raw)
func nextPayload(auth Authorization, prevSig sig.Signature) []byte {
	buf := make([]byte, 0, 1+2*8+len(auth.Subject.Bytes())+len(prevSig.Bytes()))
	buf = append(buf, tagNextPayload)
	buf = writeAuth(buf, auth)
	buf = append(buf, prevSig.Bytes()...)
	return buf
}

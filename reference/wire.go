package reference

import (
	"encoding/binary"
	"fmt"

	"github.com/bkfox/rpccaps-go/capability"
	"github.com/bkfox/rpccaps-go/sig"
)

// MarshalBinary encodes a Reference per spec §6's external wire format:
//
//	Id || PublicKey(issuer) || U32(max_share) || U64(len(certs)) || cert[0..n)
//	cert := Auth || Signature
//
// This is the one place besides the canonical signature payload where the
// byte-exact layout matters (a receiver must reconstruct identical bytes
// to re-verify signatures), so it is hand-rolled rather than routed
// through the generic msgpack Codec used for service traffic.
func (r *Reference) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 64+len(r.Certs)*96)
	buf = writeLengthTagged(buf, r.ID.Bytes())
	buf = append(buf, r.Issuer.Bytes()...)

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], r.MaxShare)
	buf = append(buf, u32[:]...)

	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(len(r.Certs)))
	buf = append(buf, u64[:]...)

	for _, cert := range r.Certs {
		buf = writeAuth(buf, cert.Auth)
		buf = append(buf, cert.Signature.Bytes()...)
	}
	return buf, nil
}

// IDDecoder reconstructs an application-defined ObjectID from the raw
// bytes carried in a wire Reference. Callers pass UUIDObjectIDDecoder for
// the concrete id type this module ships.
type IDDecoder func(b []byte) (ObjectID, error)

// UUIDObjectIDDecoder is the IDDecoder for UUIDObjectID.
func UUIDObjectIDDecoder(b []byte) (ObjectID, error) {
	var id UUIDObjectID
	if len(b) != 16 {
		return nil, fmt.Errorf("reference: uuid object id must be 16 bytes, got %d", len(b))
	}
	copy(id.ID[:], b)
	return id, nil
}

// UnmarshalReference decodes a Reference produced by MarshalBinary. The
// result is NOT validated — callers MUST run Validate before trusting it
// (see package validate for the adaptor that enforces this).
func UnmarshalReference(method sig.Method, decodeID IDDecoder, data []byte) (*Reference, error) {
	pos := 0
	readU32 := func() (uint32, error) {
		if len(data) < pos+4 {
			return 0, fmt.Errorf("reference: truncated u32 at offset %d", pos)
		}
		v := binary.LittleEndian.Uint32(data[pos : pos+4])
		pos += 4
		return v, nil
	}
	readU64 := func() (uint64, error) {
		if len(data) < pos+8 {
			return 0, fmt.Errorf("reference: truncated u64 at offset %d", pos)
		}
		v := binary.LittleEndian.Uint64(data[pos : pos+8])
		pos += 8
		return v, nil
	}
	readBytes := func(n int) ([]byte, error) {
		if len(data) < pos+n {
			return nil, fmt.Errorf("reference: truncated field at offset %d (want %d bytes)", pos, n)
		}
		b := data[pos : pos+n]
		pos += n
		return b, nil
	}

	idLen, err := readU32()
	if err != nil {
		return nil, err
	}
	idBytes, err := readBytes(int(idLen))
	if err != nil {
		return nil, err
	}
	id, err := decodeID(idBytes)
	if err != nil {
		return nil, err
	}

	issuerBytes, err := readBytes(method.PublicKeySize())
	if err != nil {
		return nil, err
	}
	issuer, err := method.PublicKeyFromBytes(issuerBytes)
	if err != nil {
		return nil, err
	}

	maxShare, err := readU32()
	if err != nil {
		return nil, err
	}
	numCerts, err := readU64()
	if err != nil {
		return nil, err
	}

	certs := make([]Certificate, 0, numCerts)
	for i := uint64(0); i < numCerts; i++ {
		ops, err := readU64()
		if err != nil {
			return nil, err
		}
		share, err := readU64()
		if err != nil {
			return nil, err
		}
		subjectBytes, err := readBytes(method.PublicKeySize())
		if err != nil {
			return nil, err
		}
		subject, err := method.PublicKeyFromBytes(subjectBytes)
		if err != nil {
			return nil, err
		}
		sigBytes, err := readBytes(method.SignatureSize())
		if err != nil {
			return nil, err
		}
		signature, err := method.SignatureFromBytes(sigBytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, Certificate{
			Auth: Authorization{
				Capability: capability.New(ops, share),
				Subject:    subject,
			},
			Signature: signature,
		})
	}

	return &Reference{
		ID:       id,
		Issuer:   issuer,
		MaxShare: maxShare,
		Certs:    certs,
		method:   method,
	}, nil
}

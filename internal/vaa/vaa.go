// Package vaa implements the signed message format of the bridge: a body
// describing an observed event, wrapped in a list of guardian signatures.
// Parsing is strict; anything that is not a well-formed message of the
// supported version is rejected.
package vaa

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/wormhole-demo/core/internal/wire"
)

// SupportedVersion is the only message version this implementation accepts.
const SupportedVersion uint8 = 1

// signatureLength is the wire size of one signature entry:
// guardian index (1) + r (32) + s (32) + recovery id (1).
const signatureLength = 66

// ErrUnsupportedVersion is returned when the version byte does not match
// SupportedVersion.
var ErrUnsupportedVersion = errors.New("unsupported vaa version")

// Signature is one guardian's signature over the body digest. Index is the
// guardian's position in the set referenced by the message.
type Signature struct {
	Index uint8
	R     [32]byte
	S     [32]byte
	V     uint8
}

// Compact returns the 65-byte r||s||v form used by secp256k1 recovery.
func (s Signature) Compact() []byte {
	sig := make([]byte, 65)
	copy(sig[0:32], s.R[:])
	copy(sig[32:64], s.S[:])
	sig[64] = s.V

	return sig
}

// Body is the signed portion of a message. Its canonical byte encoding is
// what guardians sign over.
type Body struct {
	Timestamp        uint32
	Nonce            uint32
	EmitterChain     uint16
	EmitterAddress   Address
	Sequence         uint64
	ConsistencyLevel uint8
	Payload          []byte
}

// Marshal returns the canonical big-endian encoding of the body.
func (b *Body) Marshal() []byte {
	w := wire.NewWriter()
	w.PutUint32(b.Timestamp)
	w.PutUint32(b.Nonce)
	w.PutUint16(b.EmitterChain)
	w.PutBytes(b.EmitterAddress[:])
	w.PutUint64(b.Sequence)
	w.PutUint8(b.ConsistencyLevel)
	w.PutBytes(b.Payload)

	return w.Bytes()
}

func unmarshalBody(r *wire.Reader) (Body, error) {
	var b Body

	b.Timestamp = r.Uint32()
	b.Nonce = r.Uint32()
	b.EmitterChain = r.Uint16()
	copy(b.EmitterAddress[:], r.Bytes(AddressLength))
	b.Sequence = r.Uint64()
	b.ConsistencyLevel = r.Uint8()
	b.Payload = append([]byte(nil), r.Rest()...)

	if err := r.Err(); err != nil {
		return b, errors.Wrap(err, "message body")
	}

	return b, nil
}

// SigningDigest returns keccak256(keccak256(marshaled body)). The double
// hash matches the off-chain signing convention and defends against
// length-extension tricks on the inner hash; it serves as the message
// identity for both signature verification and replay tracking.
func (b *Body) SigningDigest() [32]byte {
	var digest [32]byte
	copy(digest[:], crypto.Keccak256(crypto.Keccak256(b.Marshal())))

	return digest
}

// VAA is a parsed signed message: a guardian-quorum attestation of an
// observed event.
type VAA struct {
	Version          uint8
	GuardianSetIndex uint32
	Signatures       []Signature
	Body

	digest   [32]byte
	digested bool
}

// Unmarshal parses the wire form of a signed message:
//
//	version (1) | guardian set index (4) | sig count (1) |
//	signatures (66 each) | body
//
// The payload consumes all bytes after the fixed body fields, so a
// well-formed message never has trailing bytes. The body digest is computed
// once here and cached.
func Unmarshal(data []byte) (*VAA, error) {
	r := wire.NewReader(data)

	version := r.Uint8()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if version != SupportedVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", version)
	}

	v := &VAA{Version: version}
	v.GuardianSetIndex = r.Uint32()

	count := int(r.Uint8())
	v.Signatures = make([]Signature, 0, count)

	for i := 0; i < count; i++ {
		var sig Signature
		sig.Index = r.Uint8()
		copy(sig.R[:], r.Bytes(32))
		copy(sig.S[:], r.Bytes(32))
		sig.V = r.Uint8()

		if err := r.Err(); err != nil {
			return nil, errors.Wrapf(err, "signature %d", i)
		}

		v.Signatures = append(v.Signatures, sig)
	}

	body, err := unmarshalBody(r)
	if err != nil {
		return nil, err
	}
	v.Body = body

	v.digest = v.Body.SigningDigest()
	v.digested = true

	return v, nil
}

// Marshal returns the wire form of the message. Inverse of Unmarshal.
func (v *VAA) Marshal() []byte {
	w := wire.NewWriter()
	w.PutUint8(v.Version)
	w.PutUint32(v.GuardianSetIndex)
	w.PutUint8(uint8(len(v.Signatures)))

	for _, sig := range v.Signatures {
		w.PutUint8(sig.Index)
		w.PutBytes(sig.R[:])
		w.PutBytes(sig.S[:])
		w.PutUint8(sig.V)
	}

	w.PutBytes(v.Body.Marshal())

	return w.Bytes()
}

// Digest returns the cached signing digest of the body.
func (v *VAA) Digest() [32]byte {
	if !v.digested {
		v.digest = v.Body.SigningDigest()
		v.digested = true
	}

	return v.digest
}

// MessageID returns the chain/emitter/sequence triple that uniquely
// identifies the observed event. Used in logs.
func (v *VAA) MessageID() string {
	return fmt.Sprintf("%d/%s/%d", v.EmitterChain, v.EmitterAddress, v.Sequence)
}

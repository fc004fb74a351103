package vaa

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkvaa "github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/wormhole-demo/core/internal/guardian"
)

// makeGuardians generates n guardian keypairs and the matching set.
func makeGuardians(t *testing.T, n int) ([]*ecdsa.PrivateKey, *guardian.Set) {
	t.Helper()

	keys := make([]*ecdsa.PrivateKey, n)
	addrs := make([]common.Address, n)
	for i := range keys {
		k, err := crypto.GenerateKey()
		require.NoError(t, err)
		keys[i] = k
		addrs[i] = crypto.PubkeyToAddress(k.PublicKey)
	}

	set, err := guardian.NewSet(0, addrs)
	require.NoError(t, err)

	return keys, set
}

// sign appends signatures from the given guardian positions.
func sign(t *testing.T, v *VAA, keys []*ecdsa.PrivateKey, indices ...int) {
	t.Helper()

	digest := v.Digest()
	for _, gi := range indices {
		raw, err := crypto.Sign(digest[:], keys[gi])
		require.NoError(t, err)

		var sig Signature
		sig.Index = uint8(gi)
		copy(sig.R[:], raw[0:32])
		copy(sig.S[:], raw[32:64])
		sig.V = raw[64]

		v.Signatures = append(v.Signatures, sig)
	}
}

func testBody() Body {
	var emitter Address
	emitter[31] = 0x29

	return Body{
		Timestamp:        1700000000,
		Nonce:            42,
		EmitterChain:     2,
		EmitterAddress:   emitter,
		Sequence:         12345,
		ConsistencyLevel: 32,
		Payload:          []byte{0xde, 0xad, 0xbe, 0xef},
	}
}

func TestBodyMarshalLayout(t *testing.T) {
	body := testBody()
	raw := body.Marshal()

	// Fixed fields are 51 bytes, payload follows.
	require.Len(t, raw, 51+len(body.Payload))
	assert.Equal(t, []byte{0x65, 0x53, 0xf1, 0x00}, raw[0:4]) // 1700000000 BE
	assert.Equal(t, byte(42), raw[7])
	assert.Equal(t, []byte{0x00, 0x02}, raw[8:10])
	assert.Equal(t, body.EmitterAddress[:], raw[10:42])
	assert.Equal(t, byte(32), raw[50])
	assert.Equal(t, body.Payload, raw[51:])
}

func TestUnmarshalRoundTrip(t *testing.T) {
	keys, _ := makeGuardians(t, 3)

	v := &VAA{
		Version:          SupportedVersion,
		GuardianSetIndex: 9,
		Body:             testBody(),
	}
	sign(t, v, keys, 0, 1, 2)

	decoded, err := Unmarshal(v.Marshal())
	require.NoError(t, err)

	assert.Equal(t, v.Version, decoded.Version)
	assert.Equal(t, v.GuardianSetIndex, decoded.GuardianSetIndex)
	assert.Equal(t, v.Signatures, decoded.Signatures)
	assert.Equal(t, v.Body, decoded.Body)
	assert.Equal(t, v.Digest(), decoded.Digest())
}

func TestUnmarshalEmptyPayload(t *testing.T) {
	body := testBody()
	body.Payload = nil

	v := &VAA{Version: SupportedVersion, Body: body}

	decoded, err := Unmarshal(v.Marshal())
	require.NoError(t, err)
	assert.Empty(t, decoded.Payload)
}

func TestUnmarshalRejectsVersion(t *testing.T) {
	v := &VAA{Version: 2, Body: testBody()}

	_, err := Unmarshal(v.Marshal())
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestUnmarshalRejectsEmpty(t *testing.T) {
	_, err := Unmarshal(nil)
	require.Error(t, err)
}

func TestUnmarshalRejectsTruncated(t *testing.T) {
	keys, _ := makeGuardians(t, 3)

	v := &VAA{Version: SupportedVersion, Body: testBody()}
	sign(t, v, keys, 0, 1, 2)
	raw := v.Marshal()

	// Every prefix shorter than the fixed body fields must fail; payload is
	// the only variable-length tail.
	for cut := len(raw) - len(v.Payload) - 1; cut > 0; cut-- {
		_, err := Unmarshal(raw[:cut])
		require.Error(t, err, "prefix of %d bytes accepted", cut)
	}
}

func TestUnmarshalRejectsShortSignatureBlock(t *testing.T) {
	v := &VAA{Version: SupportedVersion, Body: testBody()}
	raw := v.Marshal()

	// Claim one signature but provide none.
	raw[5] = 1
	_, err := Unmarshal(raw)
	require.Error(t, err)
}

func TestSigningDigestIsDoubleKeccak(t *testing.T) {
	body := testBody()

	inner := crypto.Keccak256(body.Marshal())
	want := crypto.Keccak256(inner)

	digest := body.SigningDigest()
	assert.Equal(t, want, digest[:])
}

func TestSignatureCompact(t *testing.T) {
	var sig Signature
	sig.R[0] = 0x11
	sig.S[0] = 0x22
	sig.V = 1

	compact := sig.Compact()
	require.Len(t, compact, 65)
	assert.Equal(t, byte(0x11), compact[0])
	assert.Equal(t, byte(0x22), compact[32])
	assert.Equal(t, byte(1), compact[64])
}

func TestMessageID(t *testing.T) {
	v := &VAA{Version: SupportedVersion, Body: testBody()}
	assert.Equal(t,
		"2/0000000000000000000000000000000000000000000000000000000000000029/12345",
		v.MessageID())
}

// TestMarshalMatchesReferenceSDK checks our wire encoding against the
// reference SDK's decoder.
func TestMarshalMatchesReferenceSDK(t *testing.T) {
	keys, _ := makeGuardians(t, 3)

	v := &VAA{
		Version:          SupportedVersion,
		GuardianSetIndex: 4,
		Body:             testBody(),
	}
	sign(t, v, keys, 0, 1, 2)

	ref, err := sdkvaa.Unmarshal(v.Marshal())
	require.NoError(t, err)

	assert.Equal(t, v.Version, ref.Version)
	assert.Equal(t, v.GuardianSetIndex, ref.GuardianSetIndex)
	assert.Equal(t, int64(v.Timestamp), ref.Timestamp.Unix())
	assert.Equal(t, v.Nonce, ref.Nonce)
	assert.Equal(t, v.EmitterChain, uint16(ref.EmitterChain))
	assert.Equal(t, v.EmitterAddress[:], ref.EmitterAddress[:])
	assert.Equal(t, v.Sequence, ref.Sequence)
	assert.Equal(t, v.ConsistencyLevel, ref.ConsistencyLevel)
	assert.Equal(t, v.Payload, ref.Payload)

	require.Len(t, ref.Signatures, len(v.Signatures))
	for i, sig := range v.Signatures {
		assert.Equal(t, sig.Index, ref.Signatures[i].Index)
		assert.Equal(t, sig.Compact(), ref.Signatures[i].Signature[:])
	}
}

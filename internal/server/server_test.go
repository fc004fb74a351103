package server

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wormhole-demo/core/internal/core"
	"github.com/wormhole-demo/core/internal/governance"
	"github.com/wormhole-demo/core/internal/guardian"
	"github.com/wormhole-demo/core/internal/state"
	"github.com/wormhole-demo/core/internal/vaa"
)

func testServer(t *testing.T) (*Server, []*ecdsa.PrivateKey) {
	t.Helper()

	keys := make([]*ecdsa.PrivateKey, 3)
	addrs := make([]common.Address, 3)
	for i := range keys {
		k, err := crypto.GenerateKey()
		require.NoError(t, err)
		keys[i] = k
		addrs[i] = crypto.PubkeyToAddress(k.PublicKey)
	}

	set, err := guardian.NewSet(0, addrs)
	require.NoError(t, err)

	bridge, err := core.New(zap.NewNop(), core.Config{
		ChainID:           18,
		GovernanceEmitter: governance.Emitter{Chain: 1, Address: vaa.Address{31: 4}},
	}, state.NewMemory())
	require.NoError(t, err)
	require.NoError(t, bridge.InitGuardianSet(set))

	return New(zap.NewNop(), bridge, ":0"), keys
}

func signedMessage(t *testing.T, keys []*ecdsa.PrivateKey) []byte {
	t.Helper()

	v := &vaa.VAA{
		Version:          vaa.SupportedVersion,
		GuardianSetIndex: 0,
		Body: vaa.Body{
			Timestamp:        uint32(time.Now().Unix()),
			EmitterChain:     2,
			EmitterAddress:   vaa.Address{31: 0x42},
			Sequence:         7,
			ConsistencyLevel: 1,
			Payload:          []byte{0xca, 0xfe},
		},
	}

	digest := v.Digest()
	for i, k := range keys {
		raw, err := crypto.Sign(digest[:], k)
		require.NoError(t, err)

		var sig vaa.Signature
		sig.Index = uint8(i)
		copy(sig.R[:], raw[0:32])
		copy(sig.S[:], raw[32:64])
		sig.V = raw[64]
		v.Signatures = append(v.Signatures, sig)
	}

	return v.Marshal()
}

func postVerify(t *testing.T, s *Server, body []byte) (*httptest.ResponseRecorder, VerificationResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleVerify(rec, req)

	var resp VerificationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	return rec, resp
}

func TestVerifyEndpoint(t *testing.T) {
	s, keys := testServer(t)

	raw := signedMessage(t, keys)
	body, err := json.Marshal(VerificationRequest{VAABytes: "0x" + hex.EncodeToString(raw)})
	require.NoError(t, err)

	rec, resp := postVerify(t, s, body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, uint16(2), resp.EmitterChain)
	assert.Equal(t, uint64(7), resp.Sequence)
	assert.Equal(t, "cafe", resp.PayloadHex)
	assert.NotEmpty(t, resp.Digest)
}

func TestVerifyEndpointRejectsBadSignatures(t *testing.T) {
	s, keys := testServer(t)

	raw := signedMessage(t, keys)
	raw[len(raw)-1] ^= 0x01 // tamper with the payload

	body, err := json.Marshal(VerificationRequest{VAABytes: hex.EncodeToString(raw)})
	require.NoError(t, err)

	rec, resp := postVerify(t, s, body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestVerifyEndpointRejectsBadHex(t *testing.T) {
	s, _ := testServer(t)

	body, err := json.Marshal(VerificationRequest{VAABytes: "0xzz"})
	require.NoError(t, err)

	rec, resp := postVerify(t, s, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}

func TestVerifyEndpointRejectsBadBody(t *testing.T) {
	s, _ := testServer(t)

	rec, resp := postVerify(t, s, []byte("{"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}

func TestVerifyEndpointMethod(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/verify", nil)
	rec := httptest.NewRecorder()
	s.handleVerify(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

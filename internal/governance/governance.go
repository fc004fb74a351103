// Package governance decodes and gates protocol-level instructions carried
// in signed messages from the governance emitter.
package governance

import (
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/wormhole-demo/core/internal/vaa"
	"github.com/wormhole-demo/core/internal/wire"
)

// CoreModule identifies the core bridge in governance payloads: the ASCII
// string "Core" left-padded to 32 bytes.
var CoreModule = [32]byte{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	'C', 'o', 'r', 'e',
}

// Governance action codes for the core module.
const (
	ActionContractUpgrade   uint8 = 1
	ActionGuardianSetUpdate uint8 = 2
	ActionSetFee            uint8 = 3
	ActionTransferFee       uint8 = 4
)

// TargetGlobal marks a governance message that applies on every chain.
const TargetGlobal uint16 = 0

var (
	// ErrShortPayload is returned when a payload is too short to contain
	// the governance header.
	ErrShortPayload = errors.New("governance payload too short")

	// ErrNotGovernanceEmitter is returned when a message does not originate
	// from the configured governance emitter.
	ErrNotGovernanceEmitter = errors.New("message not from governance emitter")

	// ErrStaleGuardianSet is returned when a governance message references
	// anything but the current guardian set. A superseded set may still
	// verify ordinary messages during its grace period, but it can never
	// authorize further governance actions.
	ErrStaleGuardianSet = errors.New("governance message not signed by current guardian set")

	// ErrWrongModule is returned when the module identifier does not match
	// the caller's expectation.
	ErrWrongModule = errors.New("governance message for wrong module")

	// ErrWrongAction is returned when the action code does not match the
	// caller's expectation.
	ErrWrongAction = errors.New("governance message for wrong action")

	// ErrTargetMismatch is returned when the target chain is neither
	// acceptable for this deployment nor global where global is allowed.
	ErrTargetMismatch = errors.New("governance message for another chain")

	// ErrUnsupportedAction is returned for action codes this deployment
	// does not execute.
	ErrUnsupportedAction = errors.New("unsupported governance action")

	// ErrNonIncrementalGuardianSet is returned when a rotation does not
	// advance the set index by exactly one.
	ErrNonIncrementalGuardianSet = errors.New("guardian set index must increment by one")
)

// Emitter is the chain and address a deployment accepts governance
// messages from. Fixed at deployment time.
type Emitter struct {
	Chain   uint16
	Address vaa.Address
}

// Message is the governance view over a verified message body:
//
//	module (32) | action (1) | target chain (2) | action payload
type Message struct {
	Module      [32]byte
	Action      uint8
	TargetChain uint16
	Payload     []byte
	SourceHash  [32]byte
}

// DecodeMessage splits a verified body's payload into the governance header
// and the action-specific payload. SourceHash carries the signing digest of
// the enclosing message for replay tracking.
func DecodeMessage(body *vaa.Body, sourceHash [32]byte) (*Message, error) {
	r := wire.NewReader(body.Payload)

	m := &Message{SourceHash: sourceHash}
	copy(m.Module[:], r.Bytes(32))
	m.Action = r.Uint8()
	m.TargetChain = r.Uint16()
	m.Payload = append([]byte(nil), r.Rest()...)

	if err := r.Err(); err != nil {
		return nil, errors.Wrapf(ErrShortPayload, "%v", err)
	}

	return m, nil
}

// Require checks the message against an expected module and action.
func (m *Message) Require(module [32]byte, action uint8) error {
	if m.Module != module {
		return errors.Wrapf(ErrWrongModule, "module %s", hex.EncodeToString(m.Module[:]))
	}
	if m.Action != action {
		return errors.Wrapf(ErrWrongAction, "action %d, expected %d", m.Action, action)
	}

	return nil
}

// VerifyTarget accepts messages addressed globally or to localChain.
func (m *Message) VerifyTarget(localChain uint16) error {
	if m.TargetChain != TargetGlobal && m.TargetChain != localChain {
		return errors.Wrapf(ErrTargetMismatch, "target chain %d, this chain %d", m.TargetChain, localChain)
	}

	return nil
}

// VerifyLocalTarget accepts only messages addressed to localChain
// specifically. Used for actions that must not be applied globally, such
// as contract upgrades.
func (m *Message) VerifyLocalTarget(localChain uint16) error {
	if m.TargetChain != localChain {
		return errors.Wrapf(ErrTargetMismatch, "target chain %d, this chain %d", m.TargetChain, localChain)
	}

	return nil
}

package core

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wormhole-demo/core/internal/governance"
	"github.com/wormhole-demo/core/internal/state"
	"github.com/wormhole-demo/core/internal/vaa"
)

// SubmitGovernanceVAA runs the full governance gate over raw message bytes
// and executes the contained action. The gate is stricter than ordinary
// verification:
//
//  1. the message must be signed by the current guardian set exactly, not
//     a superseded set still in its grace period;
//  2. the message must originate from the configured governance emitter;
//  3. the message hash is consumed, so every governance action is one-shot;
//  4. the module identifier must name the core bridge and the target chain
//     must apply to this deployment.
//
// Guardian set updates are applied to the registry; contract upgrades are
// validated and returned for the host deployment to act on; fee actions
// are recognized but not executed here.
//
// Consumption and action state changes land in the same storage transition,
// so a failure at any step leaves the store untouched.
func (b *Bridge) SubmitGovernanceVAA(data []byte, now uint32) (*governance.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkSchema("governance"); err != nil {
		return nil, err
	}

	msg, err := b.governanceMessage(data, now)
	if err != nil {
		return nil, err
	}

	if msg.Module != governance.CoreModule {
		return nil, errors.Wrapf(governance.ErrWrongModule, "module %x", msg.Module)
	}

	switch msg.Action {
	case governance.ActionGuardianSetUpdate:
		if err := msg.VerifyTarget(b.cfg.ChainID); err != nil {
			return nil, err
		}
		if err := b.applyGuardianSetUpdate(msg, now); err != nil {
			return nil, err
		}

	case governance.ActionContractUpgrade:
		// Upgrades address one chain specifically; a global upgrade
		// instruction is meaningless across heterogeneous runtimes.
		if err := msg.VerifyLocalTarget(b.cfg.ChainID); err != nil {
			return nil, err
		}
		if err := b.store.Consume(msg.SourceHash); err != nil {
			return nil, err
		}

	default:
		// Fee handling lives outside the verification core.
		return nil, errors.Wrapf(governance.ErrUnsupportedAction, "action %d", msg.Action)
	}

	b.logger.Info("Executed governance action",
		zap.Uint8("action", msg.Action),
		zap.Uint16("targetChain", msg.TargetChain))

	return msg, nil
}

// governanceMessage performs gate steps 1 and 2 and decodes the governance
// header. It does not consume the message hash; the caller ties consumption
// to the action's state transition.
func (b *Bridge) governanceMessage(data []byte, now uint32) (*governance.Message, error) {
	v, err := vaa.Unmarshal(data)
	if err != nil {
		return nil, err
	}

	current, err := b.store.CurrentIndex()
	if err != nil {
		return nil, errors.Wrap(err, "read current guardian set index")
	}
	if v.GuardianSetIndex != current {
		return nil, errors.Wrapf(governance.ErrStaleGuardianSet,
			"message references set %d, current is %d", v.GuardianSetIndex, current)
	}

	set, err := b.store.GetSet(current)
	if err != nil {
		return nil, err
	}
	if err := vaa.VerifyAgainst(v, set); err != nil {
		return nil, err
	}

	emitter := b.cfg.GovernanceEmitter
	if v.EmitterChain != emitter.Chain || v.EmitterAddress != emitter.Address {
		return nil, errors.Wrapf(governance.ErrNotGovernanceEmitter,
			"emitter %s", v.MessageID())
	}

	return governance.DecodeMessage(&v.Body, v.Digest())
}

// applyGuardianSetUpdate advances the registry: the superseded set gets its
// expiration stamped at now + grace period, the new set becomes current,
// and the governance digest is consumed, all in one storage transition.
func (b *Bridge) applyGuardianSetUpdate(msg *governance.Message, now uint32) error {
	upd, err := governance.DecodeGuardianSetUpdate(msg.Payload)
	if err != nil {
		return err
	}

	current, err := b.store.CurrentIndex()
	if err != nil {
		return errors.Wrap(err, "read current guardian set index")
	}

	next, err := upd.NewSet(current)
	if err != nil {
		return err
	}

	expired, err := b.store.GetSet(current)
	if err != nil {
		return err
	}
	expired.ExpirationTime = now + b.cfg.GracePeriod

	digest := msg.SourceHash
	rot := state.Rotation{
		Digest:  &digest,
		Expired: expired,
		Next:    next,
	}
	if err := b.store.ApplyRotation(rot); err != nil {
		return errors.Wrap(err, "apply guardian set rotation")
	}

	b.logger.Info("Rotated guardian set",
		zap.Uint32("oldIndex", expired.Index),
		zap.Uint32("newIndex", next.Index),
		zap.Int("guardians", len(next.Keys)),
		zap.Uint32("oldSetExpires", expired.ExpirationTime))

	return nil
}

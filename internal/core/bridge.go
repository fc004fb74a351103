// Package core wires the parser, quorum verifier, guardian set registry,
// replay store and governance gate into the atomic per-message transitions
// a bridge deployment performs.
package core

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wormhole-demo/core/internal/governance"
	"github.com/wormhole-demo/core/internal/guardian"
	"github.com/wormhole-demo/core/internal/state"
	"github.com/wormhole-demo/core/internal/vaa"
)

var (
	// ErrAlreadyInitialized is returned when a genesis guardian set is
	// installed into a registry that already has one.
	ErrAlreadyInitialized = errors.New("guardian set registry already initialized")

	// ErrGuardianSetExpired is returned when the set a message references
	// exists but is past its grace period.
	ErrGuardianSetExpired = errors.New("guardian set expired")

	// ErrSchemaMismatch is returned when the store was written by a
	// different storage layout than this build understands.
	ErrSchemaMismatch = errors.New("state schema version mismatch")
)

// DefaultGracePeriod is how long a superseded guardian set keeps verifying
// ordinary messages, in seconds.
const DefaultGracePeriod uint32 = 86400

// requiredSchema maps each state-mutating entry point to the storage schema
// it expects. Consulted on every call: a store handle can outlive a schema
// migration performed by another process.
var requiredSchema = map[string]uint32{
	"init":       state.SchemaVersion,
	"consume":    state.SchemaVersion,
	"governance": state.SchemaVersion,
}

// Config fixes the deployment-time parameters of a bridge instance.
type Config struct {
	// ChainID is this ledger's chain id in the bridge's numbering.
	ChainID uint16

	// GovernanceEmitter is the only (chain, address) pair whose messages
	// can drive governance actions.
	GovernanceEmitter governance.Emitter

	// GracePeriod is the number of seconds a superseded guardian set stays
	// valid for ordinary verification. Zero selects DefaultGracePeriod.
	GracePeriod uint32
}

// Bridge is the verification engine. Every exported operation is one
// atomic transition: it either completes fully or leaves the store
// untouched. Transitions are serialized by the bridge mutex, so replay and
// registry checks always observe the state produced by the previous
// transition, never an intermediate one.
type Bridge struct {
	cfg    Config
	store  state.Store
	logger *zap.Logger

	mu sync.Mutex
}

// New creates a bridge over the given store, verifying the store's schema
// version before accepting it.
func New(logger *zap.Logger, cfg Config, store state.Store) (*Bridge, error) {
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}

	schema, err := store.Schema()
	if err != nil {
		return nil, errors.Wrap(err, "read state schema")
	}
	if schema != state.SchemaVersion {
		return nil, errors.Wrapf(ErrSchemaMismatch, "store has %d, want %d", schema, state.SchemaVersion)
	}

	return &Bridge{
		cfg:    cfg,
		store:  store,
		logger: logger.With(zap.String("component", "Bridge")),
	}, nil
}

func (b *Bridge) checkSchema(entry string) error {
	want, ok := requiredSchema[entry]
	if !ok {
		return nil
	}

	schema, err := b.store.Schema()
	if err != nil {
		return errors.Wrap(err, "read state schema")
	}
	if schema != want {
		return errors.Wrapf(ErrSchemaMismatch, "%s: store has %d, want %d", entry, schema, want)
	}

	return nil
}

// InitGuardianSet installs the genesis guardian set. Valid only before any
// set exists; every later change goes through governance rotation.
func (b *Bridge) InitGuardianSet(set *guardian.Set) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkSchema("init"); err != nil {
		return err
	}

	_, err := b.store.CurrentIndex()
	if err == nil {
		return ErrAlreadyInitialized
	}
	if !errors.Is(err, state.ErrNoGuardianSets) {
		return errors.Wrap(err, "read current guardian set index")
	}

	if err := b.store.ApplyRotation(state.Rotation{Next: set}); err != nil {
		return errors.Wrap(err, "store genesis guardian set")
	}

	b.logger.Info("Installed genesis guardian set",
		zap.Uint32("index", set.Index),
		zap.Int("guardians", len(set.Keys)))

	return nil
}

// ParseAndVerifyVAA parses raw message bytes and verifies quorum against
// the guardian set the message references, which may be the current set or
// any superseded set still inside its grace period.
//
// This path is read-only: it never consumes the message hash, so callers
// that only inspect messages can use it freely. Replay-sensitive callers
// use ConsumeVAA or the governance entry points instead.
func (b *Bridge) ParseAndVerifyVAA(data []byte, now uint32) (*vaa.VAA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.parseAndVerify(data, now)
}

func (b *Bridge) parseAndVerify(data []byte, now uint32) (*vaa.VAA, error) {
	v, err := vaa.Unmarshal(data)
	if err != nil {
		return nil, err
	}

	set, err := b.store.GetSet(v.GuardianSetIndex)
	if err != nil {
		return nil, err
	}
	if !set.Active(now) {
		return nil, errors.Wrapf(ErrGuardianSetExpired,
			"set %d expired at %d, now %d", set.Index, set.ExpirationTime, now)
	}

	if err := vaa.VerifyAgainst(v, set); err != nil {
		return nil, err
	}

	return v, nil
}

// ConsumeVAA verifies a message like ParseAndVerifyVAA and then records its
// hash in the replay store, enforcing at-most-once consumption. The hash is
// only recorded if verification succeeds.
func (b *Bridge) ConsumeVAA(data []byte, now uint32) (*vaa.VAA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkSchema("consume"); err != nil {
		return nil, err
	}

	v, err := b.parseAndVerify(data, now)
	if err != nil {
		return nil, err
	}

	if err := b.store.Consume(v.Digest()); err != nil {
		return nil, err
	}

	return v, nil
}

// IsConsumed reports whether a message hash has already been consumed.
func (b *Bridge) IsConsumed(hash [32]byte) (bool, error) {
	return b.store.Consumed(hash)
}

// GuardianSet returns the stored set at index.
func (b *Bridge) GuardianSet(index uint32) (*guardian.Set, error) {
	return b.store.GetSet(index)
}

// CurrentGuardianSet returns the current set and its index.
func (b *Bridge) CurrentGuardianSet() (*guardian.Set, error) {
	index, err := b.store.CurrentIndex()
	if err != nil {
		return nil, err
	}

	return b.store.GetSet(index)
}

// Config returns the deployment configuration.
func (b *Bridge) Config() Config {
	return b.cfg
}

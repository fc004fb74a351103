// Package state holds the two pieces of persistent state owned by a bridge
// deployment: the registry of historical guardian sets and the set of
// consumed message hashes. Both are available as an in-memory store for
// tests and embedding, and as a bbolt-backed store for the node CLI.
package state

import (
	"github.com/pkg/errors"

	"github.com/wormhole-demo/core/internal/guardian"
)

// SchemaVersion tags the storage layout. Sensitive entry points refuse to
// run against state written by a different layout.
const SchemaVersion uint32 = 1

var (
	// ErrAlreadyConsumed is returned when a message hash is consumed twice.
	ErrAlreadyConsumed = errors.New("message hash already consumed")

	// ErrSetNotFound is returned when no guardian set exists at an index.
	ErrSetNotFound = errors.New("guardian set not found")

	// ErrNoGuardianSets is returned before the genesis guardian set has
	// been installed.
	ErrNoGuardianSets = errors.New("no guardian sets stored")
)

// ReplayStore is an append-only set of consumed message hashes. Entries are
// never removed; a hash consumed once can never be consumed again.
type ReplayStore interface {
	// Consume records the hash, failing with ErrAlreadyConsumed if it is
	// already present. Prior state is unchanged on failure.
	Consume(hash [32]byte) error

	// Consumed reports whether the hash has been consumed.
	Consumed(hash [32]byte) (bool, error)
}

// Rotation is the atomically-applied outcome of a guardian set update.
type Rotation struct {
	// Digest is the replay hash consumed together with the rotation.
	// Nil at genesis, where no governance message is involved.
	Digest *[32]byte

	// Expired is the superseded set with its expiration stamped.
	// Nil at genesis.
	Expired *guardian.Set

	// Next becomes the current set.
	Next *guardian.Set
}

// GuardianStorage owns all historical guardian set records, keyed by index.
type GuardianStorage interface {
	// GetSet returns the set stored at index, or ErrSetNotFound.
	GetSet(index uint32) (*guardian.Set, error)

	// CurrentIndex returns the index of the current set, or
	// ErrNoGuardianSets before genesis.
	CurrentIndex() (uint32, error)

	// ApplyRotation writes the expired set, the next set, the advanced
	// current index and the consumed digest as one atomic transition.
	// Nothing is written if any part fails.
	ApplyRotation(rot Rotation) error
}

// Store is the full state surface a bridge deployment owns.
type Store interface {
	ReplayStore
	GuardianStorage

	// Schema returns the storage layout version the store was created with.
	Schema() (uint32, error)

	Close() error
}

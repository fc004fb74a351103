// Package guardian defines the versioned rosters of guardian keys that
// sign cross-chain messages.
package guardian

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/wormhole-demo/core/internal/wire"
)

// KeyLength is the size of a guardian id: an Ethereum-style address
// derived from the guardian's secp256k1 public key.
const KeyLength = common.AddressLength

var (
	// ErrEmptySet is returned when a guardian set is created without keys.
	ErrEmptySet = errors.New("guardian set has no keys")

	// ErrDuplicateKey is returned when the same guardian key appears twice.
	ErrDuplicateKey = errors.New("guardian set contains duplicate key")
)

// Set is an ordered roster of guardian keys tagged with a monotonic index.
//
// ExpirationTime is zero while the set is current. It is stamped when the
// set is superseded by a rotation, after which the set remains valid until
// the stamped time passes.
type Set struct {
	Index          uint32
	Keys           []common.Address
	ExpirationTime uint32
}

// NewSet builds a guardian set from an ordered key list. The list must be
// non-empty and free of duplicates; key order is significant because signed
// messages reference guardians by position.
func NewSet(index uint32, keys []common.Address) (*Set, error) {
	if len(keys) == 0 {
		return nil, ErrEmptySet
	}

	seen := make(map[common.Address]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			return nil, errors.Wrap(ErrDuplicateKey, k.Hex())
		}

		seen[k] = struct{}{}
	}

	return &Set{
		Index: index,
		Keys:  append([]common.Address(nil), keys...),
	}, nil
}

// Quorum returns the minimum number of signatures required for this set.
// This must match the calculation used by every other implementation of the
// bridge; for 19 guardians the quorum is 13.
func (s *Set) Quorum() int {
	return len(s.Keys)*2/3 + 1
}

// Active reports whether the set may still validate messages at the given
// unix time. A superseded set stays active until its stamped expiration.
func (s *Set) Active(now uint32) bool {
	return s.ExpirationTime == 0 || now <= s.ExpirationTime
}

// KeyIndex returns the position of addr in the set.
func (s *Set) KeyIndex(addr common.Address) (int, bool) {
	for i, k := range s.Keys {
		if k == addr {
			return i, true
		}
	}

	return 0, false
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	return &Set{
		Index:          s.Index,
		Keys:           append([]common.Address(nil), s.Keys...),
		ExpirationTime: s.ExpirationTime,
	}
}

// Marshal encodes the set for storage:
//
//	index (4) | expiration (4) | key count (1) | keys (20 each)
func (s *Set) Marshal() []byte {
	w := wire.NewWriter()
	w.PutUint32(s.Index)
	w.PutUint32(s.ExpirationTime)
	w.PutUint8(uint8(len(s.Keys)))

	for _, k := range s.Keys {
		w.PutBytes(k.Bytes())
	}

	return w.Bytes()
}

// UnmarshalSet decodes a stored guardian set record.
func UnmarshalSet(data []byte) (*Set, error) {
	r := wire.NewReader(data)

	index := r.Uint32()
	expiration := r.Uint32()
	count := int(r.Uint8())

	keys := make([]common.Address, 0, count)
	for i := 0; i < count; i++ {
		var k common.Address
		copy(k[:], r.Bytes(KeyLength))
		keys = append(keys, k)
	}

	if err := r.Finish(); err != nil {
		return nil, errors.Wrap(err, "guardian set record")
	}

	set, err := NewSet(index, keys)
	if err != nil {
		return nil, err
	}
	set.ExpirationTime = expiration

	return set, nil
}

package governance

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/wormhole-demo/core/internal/guardian"
	"github.com/wormhole-demo/core/internal/wire"
)

// GuardianSetUpdate is the decoded payload of an ActionGuardianSetUpdate
// message:
//
//	new index (4) | guardian count (1) | guardian id (20) * count
type GuardianSetUpdate struct {
	NewIndex uint32
	Keys     []common.Address
}

// DecodeGuardianSetUpdate parses a rotation payload. The payload must be
// exactly the update, with no trailing bytes.
func DecodeGuardianSetUpdate(payload []byte) (*GuardianSetUpdate, error) {
	r := wire.NewReader(payload)

	upd := &GuardianSetUpdate{NewIndex: r.Uint32()}

	count := int(r.Uint8())
	upd.Keys = make([]common.Address, 0, count)

	for i := 0; i < count; i++ {
		var k common.Address
		copy(k[:], r.Bytes(guardian.KeyLength))
		upd.Keys = append(upd.Keys, k)
	}

	if err := r.Finish(); err != nil {
		return nil, errors.Wrap(err, "guardian set update payload")
	}

	return upd, nil
}

// NewSet validates the update against the current index and builds the
// replacement guardian set. Rotations advance the index by exactly one;
// they can never be skipped or reordered.
func (u *GuardianSetUpdate) NewSet(currentIndex uint32) (*guardian.Set, error) {
	if u.NewIndex != currentIndex+1 {
		return nil, errors.Wrapf(ErrNonIncrementalGuardianSet,
			"current index %d, update index %d", currentIndex, u.NewIndex)
	}

	return guardian.NewSet(u.NewIndex, u.Keys)
}

package state

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/wormhole-demo/core/internal/guardian"
)

var (
	bucketGuardianSets = []byte("guardian-sets")
	bucketReplay       = []byte("replay")
	bucketMeta         = []byte("meta")

	keyCurrentIndex = []byte("current-index")
	keySchema       = []byte("schema")
)

// consumedMarker is the value stored for a consumed hash; only key
// presence matters.
var consumedMarker = []byte{1}

// Bolt is a bbolt-backed Store. Rotations run inside a single bbolt update
// transaction, so a crash never leaves a half-applied rotation behind.
type Bolt struct {
	db *bolt.DB
}

var _ Store = (*Bolt)(nil)

// OpenBolt opens (or creates) the state database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open state db %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketGuardianSets, bucketReplay, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "create bucket %s", name)
			}
		}

		meta := tx.Bucket(bucketMeta)
		if stored := meta.Get(keySchema); stored == nil {
			return meta.Put(keySchema, u32Key(SchemaVersion))
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{db: db}, nil
}

func u32Key(v uint32) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], v)

	return k[:]
}

func (b *Bolt) Consume(hash [32]byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		replay := tx.Bucket(bucketReplay)
		if replay.Get(hash[:]) != nil {
			return ErrAlreadyConsumed
		}

		return replay.Put(hash[:], consumedMarker)
	})
}

func (b *Bolt) Consumed(hash [32]byte) (bool, error) {
	var ok bool

	err := b.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket(bucketReplay).Get(hash[:]) != nil

		return nil
	})

	return ok, err
}

func (b *Bolt) GetSet(index uint32) (*guardian.Set, error) {
	var set *guardian.Set

	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketGuardianSets).Get(u32Key(index))
		if raw == nil {
			return errors.Wrapf(ErrSetNotFound, "index %d", index)
		}

		var err error
		set, err = guardian.UnmarshalSet(raw)

		return err
	})
	if err != nil {
		return nil, err
	}

	return set, nil
}

func (b *Bolt) CurrentIndex() (uint32, error) {
	var index uint32

	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketMeta).Get(keyCurrentIndex)
		if raw == nil {
			return ErrNoGuardianSets
		}
		index = binary.BigEndian.Uint32(raw)

		return nil
	})

	return index, err
}

func (b *Bolt) ApplyRotation(rot Rotation) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if rot.Digest != nil {
			replay := tx.Bucket(bucketReplay)
			if replay.Get(rot.Digest[:]) != nil {
				return ErrAlreadyConsumed
			}
			if err := replay.Put(rot.Digest[:], consumedMarker); err != nil {
				return err
			}
		}

		sets := tx.Bucket(bucketGuardianSets)
		if rot.Expired != nil {
			if err := sets.Put(u32Key(rot.Expired.Index), rot.Expired.Marshal()); err != nil {
				return err
			}
		}
		if err := sets.Put(u32Key(rot.Next.Index), rot.Next.Marshal()); err != nil {
			return err
		}

		return tx.Bucket(bucketMeta).Put(keyCurrentIndex, u32Key(rot.Next.Index))
	})
}

func (b *Bolt) Schema() (uint32, error) {
	var schema uint32

	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketMeta).Get(keySchema)
		if raw == nil {
			return errors.New("state db missing schema version")
		}
		schema = binary.BigEndian.Uint32(raw)

		return nil
	})

	return schema, err
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

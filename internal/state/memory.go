package state

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/wormhole-demo/core/internal/guardian"
)

// Memory is an in-process Store. It is safe for concurrent use; every
// operation is one atomic transition under the store lock.
type Memory struct {
	mu       sync.Mutex
	sets     map[uint32]*guardian.Set
	current  uint32
	hasSets  bool
	consumed map[[32]byte]struct{}
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		sets:     make(map[uint32]*guardian.Set),
		consumed: make(map[[32]byte]struct{}),
	}
}

func (m *Memory) Consume(hash [32]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.consumed[hash]; ok {
		return ErrAlreadyConsumed
	}
	m.consumed[hash] = struct{}{}

	return nil
}

func (m *Memory) Consumed(hash [32]byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.consumed[hash]

	return ok, nil
}

func (m *Memory) GetSet(index uint32) (*guardian.Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[index]
	if !ok {
		return nil, errors.Wrapf(ErrSetNotFound, "index %d", index)
	}

	return set.Clone(), nil
}

func (m *Memory) CurrentIndex() (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasSets {
		return 0, ErrNoGuardianSets
	}

	return m.current, nil
}

func (m *Memory) ApplyRotation(rot Rotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rot.Digest != nil {
		if _, ok := m.consumed[*rot.Digest]; ok {
			return ErrAlreadyConsumed
		}
	}

	if rot.Digest != nil {
		m.consumed[*rot.Digest] = struct{}{}
	}
	if rot.Expired != nil {
		m.sets[rot.Expired.Index] = rot.Expired.Clone()
	}
	m.sets[rot.Next.Index] = rot.Next.Clone()
	m.current = rot.Next.Index
	m.hasSets = true

	return nil
}

func (m *Memory) Schema() (uint32, error) {
	return SchemaVersion, nil
}

func (m *Memory) Close() error {
	return nil
}

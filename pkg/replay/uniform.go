package replay

import (
	"errors"
	"math/rand"
	"sync"
)

var ErrBufferEmpty = errors.New("replay buffer is empty")

// UniformBuffer stores up to capacity transitions in a ring and samples
// them uniformly with replacement.
type UniformBuffer struct {
	mu       sync.Mutex
	samples  []*Transition
	capacity int
	next     int
	rng      *rand.Rand
}

// NewUniformBuffer creates a buffer holding at most capacity transitions.
// A nil rng falls back to an unseeded source.
func NewUniformBuffer(capacity int, rng *rand.Rand) (*UniformBuffer, error) {
	if capacity <= 0 {
		return nil, errors.New("capacity must be greater than zero")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &UniformBuffer{
		samples:  make([]*Transition, 0, capacity),
		capacity: capacity,
		rng:      rng,
	}, nil
}

// AddSample inserts a transition, evicting the oldest one at capacity.
func (b *UniformBuffer) AddSample(t *Transition) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) < b.capacity {
		b.samples = append(b.samples, t)
	} else {
		b.samples[b.next] = t
	}
	b.next = (b.next + 1) % b.capacity
}

// Sample draws n transitions uniformly with replacement.
func (b *UniformBuffer) Sample(n int) (Batch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) == 0 {
		return nil, ErrBufferEmpty
	}
	batch := make(Batch, n)
	for i := range batch {
		batch[i] = b.samples[b.rng.Intn(len(b.samples))]
	}
	return batch, nil
}

// UpdateWeights is a no-op; uniform sampling carries no priorities.
func (b *UniformBuffer) UpdateWeights(batch Batch, losses []float64) {}

// Size returns the number of stored transitions.
func (b *UniformBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.samples)
}

package replay

import (
	"errors"
	"math"
	"math/rand"
	"sync"
)

// PrioritizedBuffer samples transitions proportionally to priorities
// derived from their last training loss. Sampled transitions get their
// Weight field set to the importance-sampling correction for the draw.
type PrioritizedBuffer struct {
	mu          sync.Mutex
	capacity    int
	alpha       float64
	beta        float64
	epsilon     float64
	samples     []*Transition
	priorities  []float64
	indexOf     map[*Transition]int
	next        int
	maxPriority float64
	rng         *rand.Rand
}

// NewPrioritizedBuffer creates a proportional prioritized buffer. Alpha
// shapes priorities, beta shapes the importance-sampling correction, and
// epsilon keeps every priority above zero. A nil rng falls back to an
// unseeded source.
func NewPrioritizedBuffer(capacity int, alpha, beta, epsilon float64, rng *rand.Rand) (*PrioritizedBuffer, error) {
	if capacity <= 0 {
		return nil, errors.New("capacity must be greater than zero")
	}
	if alpha < 0 || beta < 0 {
		return nil, errors.New("alpha and beta must not be negative")
	}
	if epsilon <= 0 {
		epsilon = 1e-6
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &PrioritizedBuffer{
		capacity:    capacity,
		alpha:       alpha,
		beta:        beta,
		epsilon:     epsilon,
		samples:     make([]*Transition, 0, capacity),
		priorities:  make([]float64, 0, capacity),
		indexOf:     make(map[*Transition]int, capacity),
		maxPriority: 1,
		rng:         rng,
	}, nil
}

// AddSample inserts a transition at the highest priority seen so far, so
// every transition is trained on at least once before its priority decays.
func (b *PrioritizedBuffer) AddSample(t *Transition) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) < b.capacity {
		b.indexOf[t] = len(b.samples)
		b.samples = append(b.samples, t)
		b.priorities = append(b.priorities, b.maxPriority)
	} else {
		delete(b.indexOf, b.samples[b.next])
		b.samples[b.next] = t
		b.priorities[b.next] = b.maxPriority
		b.indexOf[t] = b.next
	}
	b.next = (b.next + 1) % b.capacity
}

// Sample draws n transitions with probability proportional to priority and
// stamps each with its normalized importance-sampling weight.
func (b *PrioritizedBuffer) Sample(n int) (Batch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) == 0 {
		return nil, ErrBufferEmpty
	}
	total := 0.0
	for _, p := range b.priorities {
		total += p
	}

	batch := make(Batch, n)
	weights := make([]float64, n)
	maxWeight := 0.0
	for i := range batch {
		idx := b.pickLocked(total)
		batch[i] = b.samples[idx]
		prob := b.priorities[idx] / total
		weights[i] = math.Pow(float64(len(b.samples))*prob, -b.beta)
		if weights[i] > maxWeight {
			maxWeight = weights[i]
		}
	}
	for i, t := range batch {
		t.Weight = weights[i] / maxWeight
	}
	return batch, nil
}

func (b *PrioritizedBuffer) pickLocked(total float64) int {
	target := b.rng.Float64() * total
	cum := 0.0
	for i, p := range b.priorities {
		cum += p
		if target < cum {
			return i
		}
	}
	return len(b.priorities) - 1
}

// UpdateWeights refreshes the priority of every batch entry from its
// per-sample training loss. Entries evicted since sampling are skipped.
func (b *PrioritizedBuffer) UpdateWeights(batch Batch, losses []float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, t := range batch {
		if i >= len(losses) {
			break
		}
		idx, ok := b.indexOf[t]
		if !ok {
			continue
		}
		p := math.Pow(math.Abs(losses[i])+b.epsilon, b.alpha)
		b.priorities[idx] = p
		if p > b.maxPriority {
			b.maxPriority = p
		}
	}
}

// Size returns the number of stored transitions.
func (b *PrioritizedBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.samples)
}

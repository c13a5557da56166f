package replay

import (
	"math/rand"
	"testing"
)

func stubTransition(reward float64) *Transition {
	return &Transition{
		Obs:      []float64{0},
		ModelOut: ModelOut{Actions: []int{0}},
		Rewards:  []float64{reward},
		Weight:   1,
	}
}

func TestUniformBufferSampleEmpty(t *testing.T) {
	b, err := NewUniformBuffer(4, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}
	if _, err := b.Sample(2); err != ErrBufferEmpty {
		t.Fatalf("expected ErrBufferEmpty, got %v", err)
	}
}

func TestUniformBufferEvictsOldest(t *testing.T) {
	b, err := NewUniformBuffer(2, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}
	first := stubTransition(1)
	b.AddSample(first)
	b.AddSample(stubTransition(2))
	b.AddSample(stubTransition(3))

	if b.Size() != 2 {
		t.Fatalf("expected size 2 at capacity, got %d", b.Size())
	}
	batch, err := b.Sample(50)
	if err != nil {
		t.Fatalf("sample failed: %v", err)
	}
	if len(batch) != 50 {
		t.Fatalf("expected 50 sampled transitions, got %d", len(batch))
	}
	for _, tr := range batch {
		if tr == first {
			t.Fatalf("expected the oldest transition to be evicted")
		}
	}
}

func TestUniformBufferRejectsBadCapacity(t *testing.T) {
	if _, err := NewUniformBuffer(0, nil); err == nil {
		t.Fatalf("expected an error for zero capacity")
	}
}

func TestPrioritizedBufferFavorsHighLoss(t *testing.T) {
	b, err := NewPrioritizedBuffer(4, 1, 0.5, 1e-6, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}
	low := stubTransition(1)
	high := stubTransition(2)
	b.AddSample(low)
	b.AddSample(high)

	batch := Batch{low, high}
	b.UpdateWeights(batch, []float64{0.001, 100})

	counts := map[*Transition]int{}
	for i := 0; i < 200; i++ {
		sampled, err := b.Sample(1)
		if err != nil {
			t.Fatalf("sample failed: %v", err)
		}
		counts[sampled[0]]++
	}
	if counts[high] <= counts[low] {
		t.Fatalf("expected the high-loss transition to dominate sampling, got high=%d low=%d",
			counts[high], counts[low])
	}
}

func TestPrioritizedBufferStampsWeights(t *testing.T) {
	b, err := NewPrioritizedBuffer(4, 1, 1, 1e-6, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}
	a := stubTransition(1)
	c := stubTransition(2)
	b.AddSample(a)
	b.AddSample(c)
	b.UpdateWeights(Batch{a, c}, []float64{1, 9})

	batch, err := b.Sample(32)
	if err != nil {
		t.Fatalf("sample failed: %v", err)
	}
	for _, tr := range batch {
		if tr.Weight <= 0 || tr.Weight > 1 {
			t.Fatalf("expected normalized importance weight in (0, 1], got %v", tr.Weight)
		}
	}
}

func TestPrioritizedBufferSkipsEvicted(t *testing.T) {
	b, err := NewPrioritizedBuffer(1, 1, 1, 1e-6, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}
	old := stubTransition(1)
	b.AddSample(old)
	b.AddSample(stubTransition(2)) // evicts old

	// Refreshing the evicted transition must not touch live priorities.
	b.UpdateWeights(Batch{old}, []float64{1000})
	if b.Size() != 1 {
		t.Fatalf("expected size 1, got %d", b.Size())
	}
	if b.priorities[0] != b.maxPriority {
		t.Fatalf("expected the live priority to stay at insertion level")
	}
}

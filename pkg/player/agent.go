package player

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/montplusa/deepq/pkg/qnet"
	"github.com/montplusa/deepq/pkg/replay"
)

// EpsilonGreedy acts greedily on a value network's estimates except for an
// epsilon fraction of steps, where it picks a uniform random action.
// Epsilon comes from a schedule so it can anneal as training advances.
type EpsilonGreedy struct {
	net        *qnet.Network
	epsilon    Schedule
	numActions int
	rng        *rand.Rand
}

// NewEpsilonGreedy builds an agent around net. A nil schedule means pure
// greedy; a nil rng falls back to an unseeded source.
func NewEpsilonGreedy(net *qnet.Network, epsilon Schedule, rng *rand.Rand) *EpsilonGreedy {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &EpsilonGreedy{
		net:        net,
		epsilon:    epsilon,
		numActions: net.Config().NumActions,
		rng:        rng,
	}
}

func (a *EpsilonGreedy) Act(obs []float64) replay.ModelOut {
	values := a.net.Values(obs)
	action := floats.MaxIdx(values)
	if a.epsilon != nil && a.rng.Float64() < a.epsilon.Value() {
		action = a.rng.Intn(a.numActions)
	}
	return replay.ModelOut{Actions: []int{action}, Values: values}
}

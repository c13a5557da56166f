// Package deepq drives an online and a periodically synchronized target
// value network through an experience-replay Q-learning loop.
package deepq

import (
	"errors"
	"fmt"
	"math"

	"github.com/patrikeh/go-deep/training"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/montplusa/deepq/pkg/qnet"
	"github.com/montplusa/deepq/pkg/replay"
)

// DQN couples an online and a target value network into a Q-learning
// session. The online network is written only by gradient steps, the
// target network only by SyncTarget.
type DQN struct {
	online   *qnet.Network
	target   *qnet.Network
	vec      qnet.Vectorizer
	discount float64

	trainSteps  int
	targetSyncs int
}

// Stats are counters accumulated over the session.
type Stats struct {
	TrainSteps  int
	TargetSyncs int
}

// New wires the two networks and the observation vectorizer into a
// session. Both networks must share the same shape; they keep separate
// parameter storage for the whole session.
func New(online, target *qnet.Network, vec qnet.Vectorizer, discount float64) (*DQN, error) {
	if online == nil || target == nil {
		return nil, errors.New("both networks are required")
	}
	if vec == nil {
		return nil, errors.New("a vectorizer is required")
	}
	if discount < 0 || discount > 1 {
		return nil, fmt.Errorf("discount %v out of range [0, 1]", discount)
	}
	oc, tc := online.Config(), target.Config()
	if oc.InputSize != tc.InputSize || oc.NumActions != tc.NumActions ||
		!equalInts(oc.HiddenLayers, tc.HiddenLayers) {
		return nil, errors.New("online and target networks must share the same shape")
	}
	if vec.OutSize() != oc.InputSize {
		return nil, fmt.Errorf("vectorizer produces %d features, network takes %d",
			vec.OutSize(), oc.InputSize)
	}
	return &DQN{online: online, target: target, vec: vec, discount: discount}, nil
}

// Stats returns the counters accumulated so far.
func (d *DQN) Stats() Stats {
	return Stats{TrainSteps: d.trainSteps, TargetSyncs: d.targetSyncs}
}

// SyncTarget hard-copies every online parameter into the target network,
// pairing parameters positionally.
func (d *DQN) SyncTarget() {
	d.target.SyncFrom(d.online)
	d.targetSyncs++
}

// encodedBatch holds the aligned input arrays for one batch.
type encodedBatch struct {
	obses     [][]float64
	actions   []int
	rews      []float64 // discounted span returns
	newObses  [][]float64
	terminals []bool
	discounts []float64 // discount^len(rewards), the bootstrap scale
	weights   []float64
}

// encodeBatch vectorizes a batch. Terminal transitions substitute their
// own observation for the missing NewObs so the arrays stay aligned; the
// terminal flag, not that value, masks the bootstrap term in the loss.
func (d *DQN) encodeBatch(batch replay.Batch) (*encodedBatch, error) {
	if len(batch) == 0 {
		return nil, errors.New("batch is empty")
	}
	numActions := d.online.Config().NumActions
	enc := &encodedBatch{
		obses:     make([][]float64, len(batch)),
		actions:   make([]int, len(batch)),
		rews:      make([]float64, len(batch)),
		newObses:  make([][]float64, len(batch)),
		terminals: make([]bool, len(batch)),
		discounts: make([]float64, len(batch)),
		weights:   make([]float64, len(batch)),
	}
	for i, t := range batch {
		if len(t.Rewards) == 0 {
			return nil, fmt.Errorf("transition %d has no rewards", i)
		}
		if len(t.ModelOut.Actions) == 0 {
			return nil, fmt.Errorf("transition %d has no action", i)
		}
		action := t.ModelOut.Actions[0]
		if action < 0 || action >= numActions {
			return nil, fmt.Errorf("transition %d action %d out of range [0, %d)", i, action, numActions)
		}
		obs, err := d.vec.Vec(t.Obs)
		if err != nil {
			return nil, fmt.Errorf("vectorize observation %d: %w", i, err)
		}
		enc.obses[i] = obs
		enc.actions[i] = action
		enc.rews[i] = Returns(t.Rewards, d.discount)
		enc.terminals[i] = t.Terminal()
		if t.Terminal() {
			enc.newObses[i] = obs
		} else {
			newObs, err := d.vec.Vec(t.NewObs)
			if err != nil {
				return nil, fmt.Errorf("vectorize next observation %d: %w", i, err)
			}
			enc.newObses[i] = newObs
		}
		enc.discounts[i] = math.Pow(d.discount, float64(len(t.Rewards)))
		enc.weights[i] = t.Weight
	}
	return enc, nil
}

// targets computes the per-sample TD target: the observed span return plus,
// for non-terminal samples only, the discounted best target-network value
// of the next observation.
func (d *DQN) targets(enc *encodedBatch) []float64 {
	res := make([]float64, len(enc.obses))
	for i := range res {
		res[i] = enc.rews[i]
		if !enc.terminals[i] {
			res[i] += enc.discounts[i] * floats.Max(d.target.Values(enc.newObses[i]))
		}
	}
	return res
}

// Evaluate computes the weighted per-sample squared TD errors for a batch
// and their mean, the value the optimizer minimizes.
func (d *DQN) Evaluate(batch replay.Batch) (float64, []float64, error) {
	enc, err := d.encodeBatch(batch)
	if err != nil {
		return 0, nil, err
	}
	targets := d.targets(enc)
	losses := make([]float64, len(batch))
	for i := range batch {
		q := d.online.Values(enc.obses[i])[enc.actions[i]]
		delta := targets[i] - q
		losses[i] = delta * delta
	}
	floats.Mul(losses, enc.weights)
	return stat.Mean(losses, nil), losses, nil
}

// GradientStep runs one optimizer update on the batch and returns the
// weighted per-sample losses, which callers feed back to the replay buffer
// as priority refreshes. Only the taken action's output is moved; the move
// is scaled by the sample's importance weight.
func (d *DQN) GradientStep(batch replay.Batch) ([]float64, error) {
	enc, err := d.encodeBatch(batch)
	if err != nil {
		return nil, err
	}
	targets := d.targets(enc)
	examples := make(training.Examples, len(batch))
	losses := make([]float64, len(batch))
	for i := range batch {
		values := d.online.Values(enc.obses[i])
		q := values[enc.actions[i]]
		delta := targets[i] - q
		losses[i] = enc.weights[i] * delta * delta

		response := make([]float64, len(values))
		copy(response, values)
		response[enc.actions[i]] = q + enc.weights[i]*delta
		examples[i] = training.Example{Input: enc.obses[i], Response: response}
	}
	d.online.TrainBatch(examples)
	d.trainSteps++
	return losses, nil
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package qnet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	deep "github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"
	"gonum.org/v1/gonum/floats"
)

// Config describes a value network mapping observation vectors to
// per-action value estimates.
type Config struct {
	InputSize    int
	NumActions   int
	HiddenLayers []int
	LearningRate float64 // Adam learning rate, default 6.25e-5
	AdamEpsilon  float64 // Adam epsilon, default 1.5e-4
	WeightStd    float64 // initial weight standard deviation, default 0.1
}

func (c Config) withDefaults() (Config, error) {
	if c.InputSize <= 0 {
		return c, errors.New("input size must be greater than zero")
	}
	if c.NumActions <= 0 {
		return c, errors.New("action count must be greater than zero")
	}
	if c.LearningRate == 0 {
		c.LearningRate = 6.25e-5
	}
	if c.AdamEpsilon == 0 {
		c.AdamEpsilon = 1.5e-4
	}
	if c.WeightStd == 0 {
		c.WeightStd = 0.1
	}
	return c, nil
}

func (c Config) layout() []int {
	layout := make([]int, 0, len(c.HiddenLayers)+1)
	layout = append(layout, c.HiddenLayers...)
	return append(layout, c.NumActions)
}

// Network is a feedforward value estimator. Its parameters are exposed as
// an ordered weight dump; two networks built from the same Config pair
// positionally, layer by layer and neuron by neuron.
type Network struct {
	cfg     Config
	net     *deep.Neural
	trainer *training.OnlineTrainer
}

// New builds a regression network with ReLU hidden layers and one linear
// output per action, together with the Adam trainer that performs its
// gradient steps for the life of the session.
func New(cfg Config) (*Network, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	net := deep.NewNeural(&deep.Config{
		Inputs:     cfg.InputSize,
		Layout:     cfg.layout(),
		Activation: deep.ActivationReLU,
		Mode:       deep.ModeRegression,
		Weight:     deep.NewNormal(cfg.WeightStd, 0.0),
		Bias:       true,
	})
	trainer := training.NewTrainer(training.NewAdam(cfg.LearningRate, 0, 0, cfg.AdamEpsilon), 0)
	return &Network{cfg: cfg, net: net, trainer: trainer}, nil
}

// Config returns the configuration the network was built with.
func (n *Network) Config() Config {
	return n.cfg
}

// Values returns the value estimate of every action for one observation
// vector.
func (n *Network) Values(vec []float64) []float64 {
	return n.net.Predict(vec)
}

// BestAction returns the action with the highest value estimate.
func (n *Network) BestAction(vec []float64) int {
	return floats.MaxIdx(n.net.Predict(vec))
}

// Weights returns a copy of all parameters in declaration order.
func (n *Network) Weights() [][][]float64 {
	return n.net.Dump().Weights
}

// ApplyWeights overwrites all parameters positionally.
func (n *Network) ApplyWeights(weights [][][]float64) {
	n.net.ApplyWeights(weights)
}

// SyncFrom hard-copies every parameter of src into n, pairing parameters
// by position. The two networks never share parameter storage.
func (n *Network) SyncFrom(src *Network) {
	n.net.ApplyWeights(src.net.Dump().Weights)
}

// TrainBatch runs one optimizer pass over the examples.
func (n *Network) TrainBatch(examples training.Examples) {
	n.trainer.Train(n.net, examples, nil, 1)
}

// Save writes a JSON snapshot of the network parameters. The snapshot
// carries parameters only, never training counters.
func (n *Network) Save(path string) error {
	data, err := json.Marshal(n.net.Dump())
	if err != nil {
		return fmt.Errorf("marshal network snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write network snapshot: %w", err)
	}
	return nil
}

// Load applies a snapshot written by Save. The snapshot's shape must match
// the network exactly.
func (n *Network) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read network snapshot: %w", err)
	}
	var dump deep.Dump
	if err := json.Unmarshal(data, &dump); err != nil {
		return fmt.Errorf("parse network snapshot %s: %w", path, err)
	}
	if dump.Config == nil {
		return fmt.Errorf("network snapshot %s has no config", path)
	}
	if dump.Config.Inputs != n.cfg.InputSize || !equalInts(dump.Config.Layout, n.cfg.layout()) {
		return fmt.Errorf("network snapshot %s has shape inputs=%d layout=%v, want inputs=%d layout=%v",
			path, dump.Config.Inputs, dump.Config.Layout, n.cfg.InputSize, n.cfg.layout())
	}
	n.net.ApplyWeights(dump.Weights)
	return nil
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

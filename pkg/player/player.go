package player

import (
	"errors"

	"github.com/montplusa/deepq/pkg/replay"
)

// Env is a single reinforcement-learning environment.
type Env interface {
	// Reset starts a new episode and returns its first observation.
	Reset() []float64
	// Step applies an action and returns the next observation, the reward,
	// and whether the episode ended.
	Step(action int) (obs []float64, reward float64, done bool)
}

// Agent chooses actions from observations.
type Agent interface {
	Act(obs []float64) replay.ModelOut
}

// BasicPlayer steps one environment with one agent, producing a single
// one-step transition per Play call.
type BasicPlayer struct {
	// EnvID tags produced transitions with an environment slot.
	EnvID int

	env         Env
	agent       Agent
	obs         []float64
	started     bool
	episodeID   int
	episodeStep int
	totalReward float64
}

func NewBasicPlayer(env Env, agent Agent) *BasicPlayer {
	return &BasicPlayer{env: env, agent: agent}
}

// Play steps the environment once. The returned transition's NewObs is nil
// when the step ended the episode; the episode restarts on the next call.
func (p *BasicPlayer) Play() ([]*replay.Transition, error) {
	if !p.started {
		p.obs = p.env.Reset()
		p.started = true
	}
	out := p.agent.Act(p.obs)
	if len(out.Actions) == 0 {
		return nil, errors.New("agent produced no action")
	}
	newObs, reward, done := p.env.Step(out.Actions[0])
	p.totalReward += reward

	t := &replay.Transition{
		Obs:         p.obs,
		ModelOut:    out,
		Rewards:     []float64{reward},
		IsLast:      done,
		EpisodeID:   p.episodeID,
		EnvID:       p.EnvID,
		EpisodeStep: p.episodeStep,
		TotalReward: p.totalReward,
		Weight:      1,
	}
	if done {
		p.episodeID++
		p.episodeStep = 0
		p.totalReward = 0
		p.started = false
	} else {
		t.NewObs = newObs
		p.episodeStep++
		p.obs = newObs
	}
	return []*replay.Transition{t}, nil
}

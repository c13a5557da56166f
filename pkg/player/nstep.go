package player

import (
	"errors"

	"github.com/montplusa/deepq/pkg/replay"
)

// Player produces transitions by stepping one or more environments.
type Player interface {
	Play() ([]*replay.Transition, error)
}

// NStepPlayer joins consecutive one-step transitions of the wrapped player
// into n-step spans: each produced transition keeps the observation and
// action of its first step, carries up to numSteps rewards, and takes
// NewObs from the last step of the span. Every step of every episode still
// yields exactly one transition.
type NStepPlayer struct {
	player   Player
	numSteps int
	hist     map[int][]*replay.Transition
}

func NewNStepPlayer(p Player, numSteps int) (*NStepPlayer, error) {
	if numSteps < 1 {
		return nil, errors.New("step count must be at least 1")
	}
	return &NStepPlayer{
		player:   p,
		numSteps: numSteps,
		hist:     map[int][]*replay.Transition{},
	}, nil
}

// Play pulls from the wrapped player until at least one n-step transition
// is complete and returns all completed ones.
func (p *NStepPlayer) Play() ([]*replay.Transition, error) {
	for {
		raw, err := p.player.Play()
		if err != nil {
			return nil, err
		}
		for _, t := range raw {
			if len(t.Rewards) != 1 {
				return nil, errors.New("wrapped player must produce one-step transitions")
			}
			p.hist[t.EpisodeID] = append(p.hist[t.EpisodeID], t)
		}
		if out := p.flush(); len(out) > 0 {
			return out, nil
		}
	}
}

// flush pops every history head that either has numSteps future steps or
// belongs to a finished episode.
func (p *NStepPlayer) flush() []*replay.Transition {
	var res []*replay.Transition
	for id, hist := range p.hist {
		for len(hist) > 0 && (len(hist) >= p.numSteps || hist[len(hist)-1].Terminal() || hist[len(hist)-1].IsLast) {
			res = append(res, p.join(hist))
			hist = hist[1:]
		}
		if len(hist) == 0 {
			delete(p.hist, id)
		} else {
			p.hist[id] = hist
		}
	}
	return res
}

func (p *NStepPlayer) join(hist []*replay.Transition) *replay.Transition {
	num := p.numSteps
	if len(hist) < num {
		num = len(hist)
	}
	head := *hist[0]
	rews := make([]float64, num)
	for i, t := range hist[:num] {
		rews[i] = t.Rewards[0]
	}
	head.Rewards = rews
	head.NewObs = hist[num-1].NewObs
	return &head
}

// Package cartpole implements the classic cart-pole balancing task: a pole
// hinged on a cart must be kept upright by pushing the cart left or right.
package cartpole

import (
	"math"
	"math/rand"
)

const (
	gravity        = 9.81
	massCart       = 1.0
	massPole       = 0.1
	poleHalfLength = 0.5
	totalMass      = massCart + massPole
	poleMassLength = massPole * poleHalfLength
	forceMax       = 10.0
	tau            = 0.02

	xThreshold     = 2.4
	thetaThreshold = 12.0 * math.Pi / 180.0
)

// ObsSize is the number of features per observation: cart position and
// velocity, pole angle and angular velocity.
const ObsSize = 4

// NumActions is 2: push left, push right.
const NumActions = 2

// DefaultMaxSteps caps episode length.
const DefaultMaxSteps = 500

// Env is a single cart-pole environment. Every step yields reward 1; an
// episode ends when the cart leaves the track, the pole falls past the
// angle threshold, or the step cap is reached.
type Env struct {
	x, xDot, theta, thetaDot float64
	steps                    int
	maxSteps                 int
	rng                      *rand.Rand
}

// New creates an environment. A nil rng falls back to an unseeded source;
// maxSteps <= 0 uses DefaultMaxSteps.
func New(rng *rand.Rand, maxSteps int) *Env {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Env{rng: rng, maxSteps: maxSteps}
}

// Reset starts a new episode with all state uniformly in [-0.05, 0.05].
func (e *Env) Reset() []float64 {
	e.x = e.rng.Float64()*0.1 - 0.05
	e.xDot = e.rng.Float64()*0.1 - 0.05
	e.theta = e.rng.Float64()*0.1 - 0.05
	e.thetaDot = e.rng.Float64()*0.1 - 0.05
	e.steps = 0
	return e.obs()
}

// Step applies action 0 (push left) or 1 (push right) for one tick of
// Euler-integrated dynamics.
func (e *Env) Step(action int) ([]float64, float64, bool) {
	force := forceMax
	if action == 0 {
		force = -forceMax
	}

	cosTheta := math.Cos(e.theta)
	sinTheta := math.Sin(e.theta)

	temp := (force + poleMassLength*e.thetaDot*e.thetaDot*sinTheta) / totalMass
	thetaAcc := (gravity*sinTheta - cosTheta*temp) /
		(poleHalfLength * (4.0/3.0 - massPole*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thetaAcc*cosTheta/totalMass

	e.x += tau * e.xDot
	e.xDot += tau * xAcc
	e.theta += tau * e.thetaDot
	e.thetaDot += tau * thetaAcc
	e.steps++

	done := e.x < -xThreshold || e.x > xThreshold ||
		e.theta < -thetaThreshold || e.theta > thetaThreshold ||
		e.steps >= e.maxSteps
	return e.obs(), 1.0, done
}

func (e *Env) obs() []float64 {
	return []float64{e.x, e.xDot, e.theta, e.thetaDot}
}

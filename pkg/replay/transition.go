package replay

// ModelOut carries the raw model outputs recorded for one step.
// Actions may hold more than one head; index 0 is the action that was taken.
type ModelOut struct {
	Actions []int
	Values  []float64
}

// Transition records one environment step, or a span of consecutive steps
// when produced by an n-step player. Transitions are immutable after
// creation except for Weight, which a prioritized buffer refreshes after
// each training step.
type Transition struct {
	// Obs is the observation at the start of the span.
	Obs any

	// ModelOut holds the model outputs produced for Obs.
	ModelOut ModelOut

	// Rewards lists the reward of every step in the span, oldest first.
	// It is never empty.
	Rewards []float64

	// NewObs is the observation after the span. It is nil if and only if
	// the span ended in a terminal state.
	NewObs any

	// IsLast marks the final transition of an episode.
	IsLast bool

	// EpisodeID identifies the episode the span belongs to.
	EpisodeID int

	// EnvID identifies the environment slot that produced the span.
	EnvID int

	// EpisodeStep is the index of the span's first step within the episode.
	EpisodeStep int

	// TotalReward is the cumulative episode reward including this span.
	TotalReward float64

	// Weight is the importance-sampling correction for the span, 1 when
	// sampling is uniform.
	Weight float64
}

// Terminal reports whether the span ended in a terminal state.
func (t *Transition) Terminal() bool {
	return t.NewObs == nil
}

// Batch is an ordered, fixed-size sample of transitions. Entries are not
// required to be distinct.
type Batch []*Transition

// Buffer is an experience store. The training loop is its sole reader and
// writer.
type Buffer interface {
	AddSample(t *Transition)
	Sample(n int) (Batch, error)
	UpdateWeights(batch Batch, losses []float64)
	Size() int
}

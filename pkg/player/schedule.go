package player

// Schedule is a mutable counter-backed value advanced once per environment
// step by the training loop. Schedules are transient: they are never part
// of a checkpoint.
type Schedule interface {
	// AddTime advances the schedule by steps environment steps.
	AddTime(steps int)
	// Value returns the schedule's current value.
	Value() float64
}

// LinearSchedule interpolates from Start to End over Horizon steps and
// stays at End afterwards.
type LinearSchedule struct {
	start   float64
	end     float64
	horizon int
	t       int
}

func NewLinearSchedule(start, end float64, horizon int) *LinearSchedule {
	return &LinearSchedule{start: start, end: end, horizon: horizon}
}

func (s *LinearSchedule) AddTime(steps int) {
	s.t += steps
}

func (s *LinearSchedule) Value() float64 {
	if s.horizon <= 0 || s.t >= s.horizon {
		return s.end
	}
	frac := float64(s.t) / float64(s.horizon)
	return s.start + (s.end-s.start)*frac
}

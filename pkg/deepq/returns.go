package deepq

// Returns computes the discounted return of an ordered reward sequence:
// rews[0] + rews[1]*discount + rews[2]*discount^2 + ...
func Returns(rews []float64, discount float64) float64 {
	res := 0.0
	scale := 1.0
	for _, r := range rews {
		res += r * scale
		scale *= discount
	}
	return res
}

package qnet

import "fmt"

// Vectorizer turns raw observations into fixed-size input vectors.
type Vectorizer interface {
	// OutSize is the length of every vector Vec produces.
	OutSize() int
	// Vec vectorizes one observation. It fails when the observation does
	// not match the expected shape.
	Vec(obs any) ([]float64, error)
}

// SliceVectorizer passes through observations that already are []float64
// feature vectors of a fixed size.
type SliceVectorizer struct {
	Size int
}

func (v SliceVectorizer) OutSize() int {
	return v.Size
}

func (v SliceVectorizer) Vec(obs any) ([]float64, error) {
	vec, ok := obs.([]float64)
	if !ok {
		return nil, fmt.Errorf("observation is %T, want []float64", obs)
	}
	if len(vec) != v.Size {
		return nil, fmt.Errorf("observation has %d features, want %d", len(vec), v.Size)
	}
	return vec, nil
}

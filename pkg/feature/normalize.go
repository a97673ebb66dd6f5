// Package feature prepares averaged readings for the classifier.
package feature

import (
	"github.com/chewxy/math32"

	"github.com/itohio/gospectral/pkg/sample"
	"github.com/itohio/gospectral/pkg/sensor"
)

// Vector is the classifier input built from one reading.
type Vector [sensor.Channels]float32

// Magnitude returns the Euclidean length of v.
func Magnitude(v []float32) float32 {
	var sumSq float32
	for _, x := range v {
		sumSq += x * x
	}
	return math32.Sqrt(sumSq)
}

// Normalize scales v in place to unit length. A zero vector is left as is.
func Normalize(v []float32) {
	mag := Magnitude(v)
	if mag <= 0 {
		return
	}
	for i := range v {
		v[i] /= mag
	}
}

// FromReading returns the L2-normalized feature vector of r.
func FromReading(r sample.Reading) Vector {
	v := Vector(r.Floats())
	Normalize(v[:])
	return v
}

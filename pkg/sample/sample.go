package sample

import (
	"time"

	"github.com/itohio/gospectral/pkg/sensor"
)

// Reading is the noise-reduced result of one aggregation cycle.
type Reading struct {
	Timestamp time.Time
	Channels  [sensor.Channels]uint16 // Per-channel mean of the successful reads
	Successes int                     // Reads that contributed to the mean
	Failures  int                     // Reads that failed and were discarded
}

// Floats returns the channel means as a feature vector.
func (r Reading) Floats() [sensor.Channels]float32 {
	var v [sensor.Channels]float32
	for i, c := range r.Channels {
		v[i] = float32(c)
	}
	return v
}

// Accumulator sums raw readings channel by channel. The uint32 sums cannot
// overflow for fewer than 65537 readings.
type Accumulator struct {
	sum [sensor.Channels]uint32
	n   int
}

// Add adds one raw reading.
func (a *Accumulator) Add(r *sensor.RawReading) {
	for ch, v := range r {
		a.sum[ch] += uint32(v)
	}
	a.n++
}

// Count returns the number of readings added.
func (a *Accumulator) Count() int {
	return a.n
}

// Mean returns the per-channel integer mean. It returns false when nothing
// was added.
func (a *Accumulator) Mean() ([sensor.Channels]uint16, bool) {
	var mean [sensor.Channels]uint16
	if a.n == 0 {
		return mean, false
	}
	for ch, s := range a.sum {
		mean[ch] = uint16(s / uint32(a.n))
	}
	return mean, true
}

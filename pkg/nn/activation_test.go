package nn

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestReLU(t *testing.T) {
	assert.Equal(t, float32(0), ReLU(-3))
	assert.Equal(t, float32(0), ReLU(0))
	assert.Equal(t, float32(2.5), ReLU(2.5))
}

func TestSoftmax_SumsToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for range 200 {
		n := 1 + rng.Intn(MaxOutputs)
		v := make([]float32, n)
		for i := range v {
			v[i] = float32(rng.NormFloat64() * 20)
		}

		Softmax(v)

		var sum float32
		for _, p := range v {
			assert.False(t, math32.IsNaN(p))
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-4)
	}
}

func TestSoftmax_PreservesArgmax(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for range 200 {
		logits := make([]float32, 6)
		for i := range logits {
			logits[i] = float32(rng.NormFloat64() * 5)
		}
		want := Argmax(logits)

		probs := append([]float32(nil), logits...)
		Softmax(probs)

		assert.Equal(t, want, Argmax(probs))
	}
}

func TestSoftmax_ShiftInvariant(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{101, 102, 103}

	Softmax(a)
	Softmax(b)

	assert.InDeltaSlice(t, a, b, 1e-6)
}

func TestSoftmax_LargeLogits(t *testing.T) {
	v := []float32{1000, 1001}

	Softmax(v)

	assert.False(t, math32.IsNaN(v[0]))
	assert.False(t, math32.IsInf(v[1], 0))
	assert.InDelta(t, 0.26894142, v[0], 1e-6)
	assert.InDelta(t, 0.73105858, v[1], 1e-6)
}

func TestSoftmax_Empty(t *testing.T) {
	var v []float32
	Softmax(v)
	assert.Empty(t, v)
}

func TestArgmax(t *testing.T) {
	tests := []struct {
		name string
		v    []float32
		want int
	}{
		{"empty", nil, -1},
		{"single", []float32{3}, 0},
		{"last", []float32{1, 2, 3}, 2},
		{"first of tie", []float32{5, 5, 1}, 0},
		{"middle tie", []float32{1, 7, 7}, 1},
		{"negative", []float32{-3, -1, -2}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Argmax(tt.v))
		})
	}
}

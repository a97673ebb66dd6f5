package nn

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MaxHidden is the size of the hidden-layer buffer Predict keeps on the
	// stack. Topologies may declare a smaller capacity, never a larger one.
	MaxHidden = 64
	// MaxOutputs bounds the number of classes.
	MaxOutputs = 32
)

var (
	// ErrHiddenCapacity is returned when the hidden layer does not fit the buffer.
	ErrHiddenCapacity = errors.New("hidden layer exceeds buffer capacity")
	// ErrTopology is returned for non-positive or oversized layer sizes.
	ErrTopology = errors.New("invalid topology")
	// ErrWeightShape is returned when a weight table does not match the topology.
	ErrWeightShape = errors.New("weight table does not match topology")
)

// Topology is the fixed shape of the network: Inputs -> Hidden (ReLU) ->
// Outputs (softmax). Capacity is the hidden buffer size the caller commits
// to; Hidden must not exceed it.
type Topology struct {
	Inputs   int
	Hidden   int
	Outputs  int
	Capacity int
}

// Weights references the trained parameters. Layouts are row-major by
// input: Hidden[i*hidden+h] and Output[h*outputs+o].
type Weights struct {
	Hidden     []float32
	HiddenBias []float32
	Output     []float32
	OutputBias []float32
	Classes    []string
}

// Model is a two-layer feed-forward classifier. It keeps references to the
// weight slices it was built with and never modifies them.
type Model struct {
	inputs  int
	hidden  int
	outputs int

	w1 []float32
	b1 []float32
	w2 []float32
	b2 []float32

	classes []string
}

// Prediction is the result of one classification.
type Prediction struct {
	Class         int
	Name          string
	Probabilities []float32
	Latency       time.Duration
}

// Probability returns the probability of the predicted class.
func (p Prediction) Probability() float32 {
	if p.Class < 0 || p.Class >= len(p.Probabilities) {
		return 0
	}
	return p.Probabilities[p.Class]
}

// New validates the topology and weight shapes and returns the model.
func New(t Topology, w Weights) (Model, error) {
	if t.Inputs <= 0 || t.Hidden <= 0 || t.Outputs <= 0 {
		return Model{}, fmt.Errorf("%w: %d-%d-%d", ErrTopology, t.Inputs, t.Hidden, t.Outputs)
	}
	if t.Outputs > MaxOutputs {
		return Model{}, fmt.Errorf("%w: %d outputs, max %d", ErrTopology, t.Outputs, MaxOutputs)
	}
	if t.Capacity <= 0 || t.Capacity > MaxHidden {
		return Model{}, fmt.Errorf("%w: capacity %d not in [1,%d]", ErrHiddenCapacity, t.Capacity, MaxHidden)
	}
	if t.Hidden > t.Capacity {
		return Model{}, fmt.Errorf("%w: hidden %d, capacity %d", ErrHiddenCapacity, t.Hidden, t.Capacity)
	}

	shapes := []struct {
		name string
		got  int
		want int
	}{
		{"hidden weights", len(w.Hidden), t.Inputs * t.Hidden},
		{"hidden biases", len(w.HiddenBias), t.Hidden},
		{"output weights", len(w.Output), t.Hidden * t.Outputs},
		{"output biases", len(w.OutputBias), t.Outputs},
	}
	for _, s := range shapes {
		if s.got != s.want {
			return Model{}, fmt.Errorf("%w: %s has %d values, want %d", ErrWeightShape, s.name, s.got, s.want)
		}
	}
	if len(w.Classes) != 0 && len(w.Classes) != t.Outputs {
		return Model{}, fmt.Errorf("%w: %d class names for %d outputs", ErrWeightShape, len(w.Classes), t.Outputs)
	}

	return Model{
		inputs:  t.Inputs,
		hidden:  t.Hidden,
		outputs: t.Outputs,
		w1:      w.Hidden,
		b1:      w.HiddenBias,
		w2:      w.Output,
		b2:      w.OutputBias,
		classes: w.Classes,
	}, nil
}

// Inputs returns the input vector length.
func (m Model) Inputs() int { return m.inputs }

// Hidden returns the hidden layer width.
func (m Model) Hidden() int { return m.hidden }

// Outputs returns the number of classes.
func (m Model) Outputs() int { return m.outputs }

// ClassName returns the name of class i, or "class <i>" when the model
// carries no names.
func (m Model) ClassName(i int) string {
	if i >= 0 && i < len(m.classes) {
		return m.classes[i]
	}
	return fmt.Sprintf("class %d", i)
}

// Predict runs the forward pass. input must hold Inputs values and probs
// at least Outputs values; probs receives the class probabilities. It
// returns the index of the most probable class, the lowest index on ties.
func (m Model) Predict(input []float32, probs []float32) int {
	var hidden [MaxHidden]float32

	for h := 0; h < m.hidden; h++ {
		sum := m.b1[h]
		for i := 0; i < m.inputs; i++ {
			sum += input[i] * m.w1[i*m.hidden+h]
		}
		hidden[h] = ReLU(sum)
	}

	out := probs[:m.outputs]
	for o := range out {
		sum := m.b2[o]
		for h := 0; h < m.hidden; h++ {
			sum += hidden[h] * m.w2[h*m.outputs+o]
		}
		out[o] = sum
	}

	Softmax(out)
	return Argmax(out)
}

// Classify runs Predict and measures its latency.
func (m Model) Classify(input []float32) Prediction {
	probs := make([]float32, m.outputs)

	start := time.Now()
	class := m.Predict(input, probs)
	latency := time.Since(start)

	return Prediction{
		Class:         class,
		Name:          m.ClassName(class),
		Probabilities: probs,
		Latency:       latency,
	}
}

package nn

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed model.yaml
var defaultTable []byte

// Table is the on-disk form of a trained model. Weight matrices are stored
// one row per input unit, matching the flat layout Model expects.
type Table struct {
	Name          string      `yaml:"name"`
	Inputs        int         `yaml:"inputs"`
	Hidden        int         `yaml:"hidden"`
	Outputs       int         `yaml:"outputs"`
	Classes       []string    `yaml:"classes"`
	WeightsHidden [][]float32 `yaml:"weights_hidden"`
	BiasesHidden  []float32   `yaml:"biases_hidden"`
	WeightsOutput [][]float32 `yaml:"weights_output"`
	BiasesOutput  []float32   `yaml:"biases_output"`

	w1 []float32
	w2 []float32
}

// DefaultTable returns the model table built into the binary.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultTable)
}

// LoadTable reads a model table from a YAML file.
func LoadTable(filename string) (*Table, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return ParseTable(data)
}

// ParseTable decodes a YAML model table and flattens its matrices.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse model table: %w", err)
	}

	var err error
	if t.w1, err = flatten(t.WeightsHidden, t.Inputs, t.Hidden); err != nil {
		return nil, fmt.Errorf("weights_hidden: %w", err)
	}
	if t.w2, err = flatten(t.WeightsOutput, t.Hidden, t.Outputs); err != nil {
		return nil, fmt.Errorf("weights_output: %w", err)
	}

	return &t, nil
}

// Model builds a Model over the table's weights. The model references the
// table's slices, so the table must not be modified afterwards.
func (t *Table) Model(capacity int) (Model, error) {
	return New(
		Topology{Inputs: t.Inputs, Hidden: t.Hidden, Outputs: t.Outputs, Capacity: capacity},
		Weights{
			Hidden:     t.w1,
			HiddenBias: t.BiasesHidden,
			Output:     t.w2,
			OutputBias: t.BiasesOutput,
			Classes:    t.Classes,
		},
	)
}

// flatten concatenates rows×cols values row by row.
func flatten(m [][]float32, rows, cols int) ([]float32, error) {
	if len(m) != rows {
		return nil, fmt.Errorf("%w: %d rows, want %d", ErrWeightShape, len(m), rows)
	}
	flat := make([]float32, 0, rows*cols)
	for r, row := range m {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrWeightShape, r, len(row), cols)
		}
		flat = append(flat, row...)
	}
	return flat, nil
}

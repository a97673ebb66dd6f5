package report

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gospectral/pkg/nn"
	"github.com/itohio/gospectral/pkg/sensor"
)

func TestEmitReading(t *testing.T) {
	var out bytes.Buffer
	r := New(&out)

	channels := [sensor.Channels]uint16{812, 1490, 2210, 3012, 4120, 4380, 3900, 2410, 1500, 980, 760, 9120}
	require.NoError(t, r.EmitReading(channels, 12345))

	want := `{"timestamp":12345,"channels":{"410nm":812,"440nm":1490,"470nm":2210,"510nm":3012,` +
		`"550nm":4120,"580nm":4380,"610nm":3900,"680nm":2410,"730nm":1500,"810nm":980,` +
		`"860nm":760,"clear":9120}}` + "\n"
	assert.Equal(t, want, out.String())
}

func TestEmitError(t *testing.T) {
	var out bytes.Buffer
	r := New(&out)

	require.NoError(t, r.EmitError(MsgReadFailed))
	assert.Equal(t, `{"error":"Failed to read sensor"}`+"\n", out.String())
}

func TestEmitStatus(t *testing.T) {
	var out bytes.Buffer
	r := New(&out)

	require.NoError(t, r.EmitStatus("LED ON"))
	assert.Equal(t, `{"status":"LED ON"}`+"\n", out.String())
}

func TestEmitPrediction(t *testing.T) {
	var out bytes.Buffer
	r := New(&out)

	p := nn.Prediction{
		Class:         1,
		Name:          "red",
		Probabilities: []float32{0.0125, 0.9375, 0.05},
		Latency:       312 * time.Microsecond,
	}
	require.NoError(t, r.EmitPrediction(p))
	assert.Equal(t, "Prediction: red (93.8%) Time: 312 us\n", out.String())
}

func TestEmitLine(t *testing.T) {
	var out bytes.Buffer
	r := New(&out)

	require.NoError(t, r.EmitLine("Model loaded."))
	require.NoError(t, r.EmitLine("Classes: red green"))
	assert.Equal(t, "Model loaded.\nClasses: red green\n", out.String())
}

// chunkWriter records every Write call separately.
type chunkWriter struct {
	mu     sync.Mutex
	chunks []string
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chunks = append(w.chunks, string(p))
	return len(p), nil
}

func TestRecordsDoNotInterleave(t *testing.T) {
	w := &chunkWriter{}
	r := New(w)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_ = r.EmitStatus("LED ON")
			} else {
				_ = r.EmitReading([sensor.Channels]uint16{}, int64(i))
			}
		}()
	}
	wg.Wait()

	require.Len(t, w.chunks, 20)
	for _, c := range w.chunks {
		assert.Equal(t, 1, strings.Count(c, "\n"), "each write must hold exactly one record: %q", c)
		assert.True(t, strings.HasSuffix(c, "\n"))
	}
}

type failingWriter struct {
	fail bool
	out  bytes.Buffer
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.fail {
		return 0, errors.New("port gone")
	}
	return w.out.Write(p)
}

func TestWriteFailureIsReportedAndDropped(t *testing.T) {
	w := &failingWriter{fail: true}
	r := New(w)

	assert.Error(t, r.EmitError(MsgReadFailed))

	w.fail = false
	require.NoError(t, r.EmitStatus("LED OFF"))
	assert.Equal(t, `{"status":"LED OFF"}`+"\n", w.out.String())
}

type drainingWriter struct {
	bytes.Buffer
	drained int
}

func (w *drainingWriter) Drain() error {
	w.drained++
	return nil
}

func TestDrainCalledPerRecord(t *testing.T) {
	w := &drainingWriter{}
	r := New(w)

	require.NoError(t, r.EmitStatus("LED ON"))
	require.NoError(t, r.EmitLine("x"))
	assert.Equal(t, 2, w.drained)
}

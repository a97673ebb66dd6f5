// Package report writes records to the output byte stream.
//
// Every Emit call writes one newline-terminated record and flushes it
// before returning, so records from different callers never interleave.
package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/itohio/gospectral/pkg/nn"
	"github.com/itohio/gospectral/pkg/sensor"
)

// MsgReadFailed is the error record text for a failed sampling pass.
const MsgReadFailed = "Failed to read sensor"

// drainer is implemented by serial ports that can block until the
// transmit buffer is empty.
type drainer interface {
	Drain() error
}

// Reporter serializes records onto a writer.
type Reporter struct {
	mu    sync.Mutex
	out   io.Writer
	buf   *bufio.Writer
	drain func() error
}

// New creates a reporter writing to w.
func New(w io.Writer) *Reporter {
	r := &Reporter{
		out: w,
		buf: bufio.NewWriter(w),
	}
	if d, ok := w.(drainer); ok {
		r.drain = d.Drain
	}
	return r
}

// Channels is a channel vector that marshals as an object keyed by channel
// name, in sensor order.
type Channels [sensor.Channels]uint16

// MarshalJSON implements json.Marshaler.
func (c Channels) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, v := range c {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(sensor.ChannelNames[i])
		b.WriteString(`":`)
		b.WriteString(strconv.FormatUint(uint64(v), 10))
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

type readingRecord struct {
	Timestamp int64    `json:"timestamp"`
	Channels  Channels `json:"channels"`
}

type statusRecord struct {
	Status string `json:"status"`
}

type errorRecord struct {
	Error string `json:"error"`
}

// EmitReading writes {"timestamp":<ms>,"channels":{"410nm":v,...,"clear":v}}.
func (r *Reporter) EmitReading(channels [sensor.Channels]uint16, timestampMs int64) error {
	return r.emitJSON(readingRecord{Timestamp: timestampMs, Channels: channels})
}

// EmitStatus writes {"status":"<msg>"}.
func (r *Reporter) EmitStatus(msg string) error {
	return r.emitJSON(statusRecord{Status: msg})
}

// EmitError writes {"error":"<msg>"}.
func (r *Reporter) EmitError(msg string) error {
	return r.emitJSON(errorRecord{Error: msg})
}

// EmitPrediction writes "Prediction: <name> (<pct>%) Time: <us> us".
func (r *Reporter) EmitPrediction(p nn.Prediction) error {
	line := fmt.Sprintf("Prediction: %s (%.1f%%) Time: %d us",
		p.Name, p.Probability()*100, p.Latency.Microseconds())
	return r.EmitLine(line)
}

// EmitLine writes a plain text line.
func (r *Reporter) EmitLine(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf.WriteString(line)
	r.buf.WriteByte('\n')
	return r.flushLocked()
}

func (r *Reporter) emitJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf.Write(data)
	r.buf.WriteByte('\n')
	return r.flushLocked()
}

// flushLocked pushes the buffered record to the writer. A failed record is
// dropped so the next one starts clean.
func (r *Reporter) flushLocked() error {
	if err := r.buf.Flush(); err != nil {
		r.buf.Reset(r.out)
		return fmt.Errorf("failed to write record: %w", err)
	}
	if r.drain != nil {
		if err := r.drain(); err != nil {
			return fmt.Errorf("failed to drain output: %w", err)
		}
	}
	return nil
}

package command

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Command
		wantErr error
	}{
		{name: "led on", line: "1", want: Command{Kind: LEDOn}},
		{name: "led off with CR", line: "0\r", want: Command{Kind: LEDOff}},
		{name: "led on trailing spaces", line: "1  ", want: Command{Kind: LEDOn}},
		{name: "rate 0.25", line: "RATE:0.25", want: Command{Kind: SetRate, Rate: 0.25, Period: 4000 * time.Millisecond}},
		{name: "rate 0.5", line: "RATE:0.5", want: Command{Kind: SetRate, Rate: 0.5, Period: 2000 * time.Millisecond}},
		{name: "rate 1", line: "RATE:1", want: Command{Kind: SetRate, Rate: 1, Period: 1000 * time.Millisecond}},
		{name: "rate 2", line: "RATE:2", want: Command{Kind: SetRate, Rate: 2, Period: 500 * time.Millisecond}},
		{name: "rate 4", line: "RATE:4", want: Command{Kind: SetRate, Rate: 4, Period: 250 * time.Millisecond}},
		{name: "rate 8", line: "RATE:8", want: Command{Kind: SetRate, Rate: 8, Period: 125 * time.Millisecond}},
		{name: "rate 2.0", line: "RATE:2.0", want: Command{Kind: SetRate, Rate: 2, Period: 500 * time.Millisecond}},
		{name: "rate 3 rejected", line: "RATE:3", wantErr: ErrInvalidRate},
		{name: "rate garbage", line: "RATE:fast", wantErr: ErrInvalidRate},
		{name: "rate empty", line: "RATE:", wantErr: ErrInvalidRate},
		{name: "rate zero", line: "RATE:0", wantErr: ErrInvalidRate},
		{name: "mode read", line: "MODE:READ", want: Command{Kind: SetMode, Mode: ModeRead}},
		{name: "mode classify", line: "MODE:CLASSIFY", want: Command{Kind: SetMode, Mode: ModeClassify}},
		{name: "sample", line: "SAMPLE", want: Command{Kind: Sample}},
		{name: "lowercase rate", line: "rate:2", wantErr: ErrUnknown},
		{name: "empty", line: "", wantErr: ErrUnknown},
		{name: "two", line: "2", wantErr: ErrUnknown},
		{name: "leading space", line: " 1", wantErr: ErrUnknown},
		{name: "too long", line: "RATE:" + strings.Repeat("0", 40) + "1", wantErr: ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReply(t *testing.T) {
	assert.Equal(t, "LED ON", Command{Kind: LEDOn}.Reply())
	assert.Equal(t, "LED OFF", Command{Kind: LEDOff}.Reply())
	assert.Equal(t, "Rate set to 0.25 Hz", Command{Kind: SetRate, Rate: 0.25}.Reply())
	assert.Equal(t, "Rate set to 8.00 Hz", Command{Kind: SetRate, Rate: 8}.Reply())
	assert.Equal(t, "Mode set to classify", Command{Kind: SetMode, Mode: ModeClassify}.Reply())
}

func TestErrorMessage(t *testing.T) {
	_, err := Parse("RATE:3")
	assert.Equal(t, "Invalid rate. Supported: 0.25, 0.5, 1, 2, 4, 8 Hz", ErrorMessage(err))

	_, err = Parse("HELLO")
	assert.Equal(t, "Unknown command", ErrorMessage(err))
}

func TestPeriodForRate(t *testing.T) {
	p, ok := PeriodForRate(2)
	assert.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, p)

	_, ok = PeriodForRate(3)
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "rate", SetRate.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

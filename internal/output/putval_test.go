package output

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/rileyhilliard/ipmicollect/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPutval(t *testing.T) {
	tests := []struct {
		name     string
		reading  sensor.Reading
		plugin   string
		interval time.Duration
		want     string
	}{
		{
			name:     "numeric value keeps tool formatting",
			reading:  sensor.Reading{Host: "node01", Sensor: "CPU1", Value: 41, Valid: true, Raw: "41.00"},
			plugin:   DefaultPlugin,
			interval: 10 * time.Second,
			want:     `PUTVAL "node01/remote_ipmi/CPU1" interval=10 N:41.00`,
		},
		{
			name:     "unavailable value",
			reading:  sensor.Reading{Host: "10.0.0.7", Sensor: "CPU2_DIMM7"},
			plugin:   DefaultPlugin,
			interval: 10 * time.Second,
			want:     `PUTVAL "10.0.0.7/remote_ipmi/CPU2_DIMM7" interval=10 N:U`,
		},
		{
			name:     "custom plugin and fractional interval",
			reading:  sensor.Reading{Host: "bmc-3", Sensor: "FAN1", Value: 4500, Valid: true, Raw: "4500.00"},
			plugin:   "ipmi",
			interval: 2500 * time.Millisecond,
			want:     `PUTVAL "bmc-3/ipmi/FAN1" interval=2.5 N:4500.00`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPutval(tt.reading, tt.plugin, tt.interval))
		})
	}
}

func TestEmitter_Emit(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, "", 10*time.Second)

	err := e.Emit([]sensor.Reading{
		{Host: "node01", Sensor: "CPU1", Valid: true, Raw: "41.00"},
		{Host: "node01", Sensor: "CPU2", Valid: false},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `PUTVAL "node01/remote_ipmi/CPU1" interval=10 N:41.00`, lines[0])
	assert.Equal(t, `PUTVAL "node01/remote_ipmi/CPU2" interval=10 N:U`, lines[1])
	assert.Equal(t, 2, e.Lines())
}

func TestEmitter_EmptyWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, DefaultPlugin, time.Second)

	require.NoError(t, e.Emit(nil))
	assert.Empty(t, buf.String())
	assert.Equal(t, 0, e.Lines())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, stderrors.New("broken pipe") }

func TestEmitter_WriteError(t *testing.T) {
	e := NewEmitter(failingWriter{}, DefaultPlugin, time.Second)

	err := e.Emit([]sensor.Reading{{Host: "h", Sensor: "CPU1", Valid: true, Raw: "1"}})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrOutput))
	assert.Contains(t, err.Error(), "broken pipe")
}

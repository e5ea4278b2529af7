package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/rileyhilliard/ipmicollect/internal/sensor"
)

// DefaultPlugin is the plugin segment of the collectd identifier.
const DefaultPlugin = "remote_ipmi"

// FormatPutval renders one reading in the collectd exec plugin protocol:
//
//	PUTVAL "<host>/<plugin>/<sensor>" interval=<seconds> N:<value>
func FormatPutval(r sensor.Reading, plugin string, interval time.Duration) string {
	var b strings.Builder
	b.WriteString(`PUTVAL "`)
	b.WriteString(r.Host)
	b.WriteByte('/')
	b.WriteString(plugin)
	b.WriteByte('/')
	b.WriteString(r.Sensor)
	b.WriteString(`" interval=`)
	b.WriteString(FormatInterval(interval))
	b.WriteString(" N:")
	b.WriteString(r.ValueString())
	return b.String()
}

// FormatInterval renders an interval as collectd expects it: seconds,
// without a trailing fraction when the interval is whole.
func FormatInterval(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// Emitter writes PUTVAL lines to the collectd stream.
// Lines from one Emit call are written contiguously and flushed together.
type Emitter struct {
	mu       sync.Mutex
	w        *bufio.Writer
	plugin   string
	interval time.Duration
	lines    int
}

// NewEmitter creates an emitter writing to w (normally os.Stdout).
func NewEmitter(w io.Writer, plugin string, interval time.Duration) *Emitter {
	if plugin == "" {
		plugin = DefaultPlugin
	}
	return &Emitter{
		w:        bufio.NewWriter(w),
		plugin:   plugin,
		interval: interval,
	}
}

// Emit writes one line per reading and flushes.
func (e *Emitter) Emit(readings []sensor.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range readings {
		if _, err := e.w.WriteString(FormatPutval(r, e.plugin, e.interval)); err != nil {
			return e.writeErr(err)
		}
		if err := e.w.WriteByte('\n'); err != nil {
			return e.writeErr(err)
		}
		e.lines++
	}
	if err := e.w.Flush(); err != nil {
		return e.writeErr(err)
	}
	return nil
}

// Lines returns how many lines have been emitted so far.
func (e *Emitter) Lines() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lines
}

func (e *Emitter) writeErr(err error) error {
	return errors.WrapWithCode(err, errors.ErrOutput,
		"Couldn't write PUTVAL lines",
		"Check that the process reading stdout (collectd exec plugin) is still running.")
}

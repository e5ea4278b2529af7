package cli

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "dev", want: "dev"},
		{in: "", want: ""},
		{in: "1.2.0", want: "v1.2.0"},
		{in: "v1.2.0", want: "v1.2.0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, formatVersion(tt.in))
		})
	}
}

func TestPrintVersion(t *testing.T) {
	origVersion, origCommit, origDate := version, commit, date
	t.Cleanup(func() { SetVersionInfo(origVersion, origCommit, origDate) })
	SetVersionInfo("0.3.1", "abc123", "2024-05-01")

	var buf bytes.Buffer
	printVersion(&buf, false)
	out := buf.String()
	assert.Contains(t, out, "ipmicollect v0.3.1")
	assert.Contains(t, out, "commit: abc123")
	assert.Contains(t, out, "built: 2024-05-01")
	assert.Contains(t, out, "go: "+runtime.Version())

	buf.Reset()
	printVersion(&buf, true)
	assert.Equal(t, "0.3.1\n", buf.String())
}

package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/rileyhilliard/ipmicollect/internal/config"
	"github.com/rileyhilliard/ipmicollect/internal/doctor"
	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/rileyhilliard/ipmicollect/internal/ui"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDoctor(t *testing.T) {
	ui.DisableColors()
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	cfg := config.DefaultConfig()
	checks := []doctor.Check{
		&doctor.ConfigValidCheck{Cfg: cfg},
		&doctor.HostsCheck{Hosts: []string{"bmc-01"}},
	}

	var out bytes.Buffer
	require.NoError(t, runDoctor(cmd, checks, &out))
	assert.Contains(t, out.String(), "CONFIG")
	assert.Contains(t, out.String(), "1 host: bmc-01")
	assert.Contains(t, out.String(), "Everything looks good")

	out.Reset()
	err := runDoctor(cmd, append(checks, &doctor.HostsCheck{}), &out)
	code, ok := errors.GetExitCode(err)
	assert.True(t, ok)
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "No hosts configured")
	assert.Contains(t, out.String(), "1 issue found")
}

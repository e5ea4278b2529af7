package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rileyhilliard/ipmicollect/internal/config"
	"github.com/rileyhilliard/ipmicollect/internal/util"
)

// HostsCheck verifies there is something to poll and that every host can
// appear in a PUTVAL identifier.
type HostsCheck struct {
	Hosts []string
}

func (c *HostsCheck) Name() string     { return "hosts" }
func (c *HostsCheck) Category() string { return "HOSTS" }

func (c *HostsCheck) Run(ctx context.Context) CheckResult {
	hosts, repeated := util.Dedupe(c.Hosts)
	if len(hosts) == 0 {
		return CheckResult{
			Status:     StatusFail,
			Message:    "No hosts configured",
			Suggestion: "Pass hosts as arguments or list them under 'hosts' in " + config.ConfigFileName,
		}
	}
	if err := config.ValidateHosts(hosts); err != nil {
		return CheckResult{
			Status:     StatusFail,
			Message:    "Invalid host name",
			Suggestion: firstLine(err),
		}
	}
	if len(repeated) > 0 {
		return CheckResult{
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%d hosts, repeated: %s", len(hosts), strings.Join(repeated, ", ")),
			Suggestion: "Repeated hosts are polled once; remove the duplicates",
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%d %s: %s", len(hosts), util.Pluralize(len(hosts), "host", "hosts"), util.JoinOrNone(hosts)),
	}
}

func firstLine(err error) string {
	msg := strings.TrimSpace(err.Error())
	msg = strings.TrimPrefix(msg, "✗ ")
	if idx := strings.IndexByte(msg, '\n'); idx != -1 {
		msg = msg[:idx]
	}
	return msg
}

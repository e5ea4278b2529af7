package sshutil

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSSHConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolveSettings_Plain(t *testing.T) {
	t.Setenv("USER", "ops")

	s := resolveSettings("bastion.example.com", filepath.Join(t.TempDir(), "missing"))

	assert.Equal(t, "bastion.example.com", s.hostname)
	assert.Equal(t, "22", s.port)
	assert.Equal(t, "ops", s.user)
	assert.Equal(t, "bastion.example.com:22", s.address())
}

func TestResolveSettings_UserAndPort(t *testing.T) {
	s := resolveSettings("admin@10.1.0.4:2222", filepath.Join(t.TempDir(), "missing"))

	assert.Equal(t, "10.1.0.4", s.hostname)
	assert.Equal(t, "2222", s.port)
	assert.Equal(t, "admin", s.user)
}

func TestResolveSettings_FromConfig(t *testing.T) {
	path := writeSSHConfig(t, `
Host bmc-gw
    HostName 10.20.0.1
    Port 2200
    User ipmi
    IdentityFile /keys/gw_ed25519
`)

	s := resolveSettings("bmc-gw", path)

	assert.Equal(t, "10.20.0.1", s.hostname)
	assert.Equal(t, "2200", s.port)
	assert.Equal(t, "ipmi", s.user)
	assert.Equal(t, "/keys/gw_ed25519", s.identityFile)
}

func TestResolveSettings_ExplicitUserWins(t *testing.T) {
	path := writeSSHConfig(t, `
Host bmc-gw
    HostName 10.20.0.1
    User ipmi
`)

	s := resolveSettings("root@bmc-gw", path)

	assert.Equal(t, "root", s.user)
	assert.Equal(t, "10.20.0.1", s.hostname)
}

func TestResolveSettings_IgnoresMatchBlocks(t *testing.T) {
	path := writeSSHConfig(t, `
Host bmc-gw
    HostName 10.20.0.1

Match host *.corp exec "true"
    User corp
`)

	s := resolveSettings("bmc-gw", path)

	assert.Equal(t, "10.20.0.1", s.hostname)
}

func TestIsDigits(t *testing.T) {
	assert.True(t, isDigits("22"))
	assert.False(t, isDigits(""))
	assert.False(t, isDigits("2a"))
}

func TestSuggestions(t *testing.T) {
	assert.Contains(t, suggestionForDialError(stderrors.New("dial tcp: connection refused")), "SSH running")
	assert.Contains(t, suggestionForDialError(stderrors.New("i/o timeout")), "timed out")
	assert.Contains(t, suggestionForHandshakeError(stderrors.New("ssh: unable to authenticate")), "ssh-add")
	assert.Contains(t, suggestionForHandshakeError(stderrors.New("knownhosts: key mismatch for host key")), "Host key")
}

func TestClient_NilSafe(t *testing.T) {
	var c *Client
	assert.NoError(t, c.Close())
	assert.False(t, c.Alive(context.Background()))
}

func TestDial_Unreachable(t *testing.T) {
	if os.Getenv("IPMICOLLECT_TEST_SSH") == "" {
		t.Skip("set IPMICOLLECT_TEST_SSH=1 to run tests that open sockets")
	}

	// TEST-NET-1, never routed
	_, err := Dial(context.Background(), "192.0.2.1", DialOptions{Timeout: 500 * time.Millisecond})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSSH))
}

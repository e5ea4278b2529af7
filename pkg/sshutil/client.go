package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Client wraps an SSH connection to the jump host with the alias it was dialed as.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)
}

// DefaultTimeout bounds a dial when DialOptions.Timeout is not set.
const DefaultTimeout = 10 * time.Second

// AliveTimeout bounds a keepalive round trip.
const AliveTimeout = 3 * time.Second

// DialOptions controls how the jump host is reached.
type DialOptions struct {
	// Timeout bounds the TCP connect and the SSH handshake together.
	Timeout time.Duration
	// StrictHostKeys verifies the host key against ~/.ssh/known_hosts.
	StrictHostKeys bool
}

// Dial establishes an SSH connection to the specified host.
// The host can be an SSH config alias, a hostname, user@hostname, or
// hostname:port. Settings are resolved from ~/.ssh/config when available.
// The connect and handshake end when ctx is done or opts.Timeout passes,
// whichever comes first.
func Dial(ctx context.Context, host string, opts DialOptions) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	settings := resolveSettings(host, filepath.Join(homeDir(), ".ssh", "config"))

	config, err := buildClientConfig(settings, timeout, opts.StrictHostKeys)
	if err != nil {
		var ipErr *errors.Error
		if stderrors.As(err, &ipErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't set up SSH for '%s'", host),
			"Check your keys are loaded: ssh-add -l")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	address := settings.address()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach jump host '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	client, err := handshake(ctx, conn, address, config)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			suggestionForHandshakeError(err))
	}

	return &Client{
		Client:  client,
		Host:    host,
		Address: address,
	}, nil
}

// handshake runs the SSH handshake on conn. ssh.NewClientConn has no
// context, so the deadline goes on the socket and cancellation expires it
// early. conn is closed on failure.
func handshake(ctx context.Context, conn net.Conn, address string, config *ssh.ClientConfig) (*ssh.Client, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if !stop() && err == nil {
		// ctx ended as the handshake finished; the deadline may already be set.
		_ = sshConn.Close()
		err = ctx.Err()
	}
	if err != nil {
		_ = conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("handshake timeout: %w", ctxErr)
		}
		var netErr net.Error
		if stderrors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("handshake timeout: %w", context.DeadlineExceeded)
		}
		return nil, err
	}

	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// Alive reports whether the connection answers a keepalive request before
// ctx is done or AliveTimeout passes.
func (c *Client) Alive(ctx context.Context) bool {
	if c == nil || c.Client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, AliveTimeout)
	defer cancel()

	reply := make(chan error, 1)
	go func() {
		_, _, err := c.Client.SendRequest("keepalive@openssh.com", true, nil)
		reply <- err
	}()

	select {
	case err := <-reply:
		return err == nil
	case <-ctx.Done():
		return false
	}
}

// settings holds resolved SSH connection parameters.
type settings struct {
	hostname     string
	port         string
	user         string
	identityFile string
}

func (s *settings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSettings parses user@host:port and fills the gaps from the given
// ssh config file. An explicit user in the host string wins over the file.
func resolveSettings(host, configPath string) *settings {
	s := &settings{
		port: "22",
		user: currentUser(),
	}

	explicitUser := false
	if at := strings.Index(host, "@"); at != -1 {
		s.user = host[:at]
		host = host[at+1:]
		explicitUser = true
	}

	if colon := strings.LastIndex(host, ":"); colon != -1 && isDigits(host[colon+1:]) {
		s.port = host[colon+1:]
		host = host[:colon]
	}
	s.hostname = host

	content, err := readUntilMatch(configPath)
	if err != nil {
		return s
	}
	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return s
	}

	if v, _ := cfg.Get(host, "HostName"); v != "" {
		s.hostname = v
	}
	if v, _ := cfg.Get(host, "Port"); v != "" {
		s.port = v
	}
	if v, _ := cfg.Get(host, "User"); v != "" && !explicitUser {
		s.user = v
	}
	if v, _ := cfg.Get(host, "IdentityFile"); v != "" {
		s.identityFile = expandPath(v)
	}
	return s
}

// readUntilMatch returns the ssh config content before the first Match
// directive, which ssh_config cannot decode.
func readUntilMatch(configPath string) ([]byte, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			lines = lines[:i]
			break
		}
	}
	return []byte(strings.Join(lines, "\n")), nil
}

func buildClientConfig(s *settings, timeout time.Duration, strictHostKeys bool) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	if a := agentAuth(); a != nil {
		auth = append(auth, a)
	}

	keys := []string{}
	if s.identityFile != "" {
		keys = append(keys, s.identityFile)
	}
	keys = append(keys,
		filepath.Join(homeDir(), ".ssh", "id_ed25519"),
		filepath.Join(homeDir(), ".ssh", "id_rsa"),
		filepath.Join(homeDir(), ".ssh", "id_ecdsa"),
	)
	for _, k := range keys {
		if m, err := keyFileAuth(k); err == nil {
			auth = append(auth, m)
		}
	}

	if len(auth) == 0 {
		return nil, errors.New(errors.ErrSSH,
			"No SSH auth methods available for the jump host",
			"Load a key into the agent (ssh-add) or set IdentityFile in ~/.ssh/config.")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // only when strict checking is disabled
	if strictHostKeys {
		cb, err := knownhosts.New(filepath.Join(homeDir(), ".ssh", "known_hosts"))
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
		hostKeyCallback = cb
	}

	return &ssh.ClientConfig{
		User:            s.user,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

var (
	agentOnce   sync.Once
	agentClient agent.ExtendedAgent
)

func agentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}
	agentOnce.Do(func() {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return
		}
		agentClient = agent.NewClient(conn)
	})
	if agentClient == nil {
		return nil
	}
	// An empty agent placed first makes the server reject later methods.
	if signers, err := agentClient.Signers(); err != nil || len(signers) == 0 {
		return nil
	}
	return ssh.PublicKeysCallback(agentClient.Signers)
}

func keyFileAuth(path string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func suggestionForDialError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Is SSH running on the jump host? Try: ssh <host>"
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "Can't route to the jump host. Check your network connection."
	case strings.Contains(msg, "timeout"):
		return "Connection timed out. The jump host might be offline or firewalled."
	default:
		return "Make sure the jump host is reachable: ping <host>"
	}
}

func suggestionForHandshakeError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"), strings.Contains(msg, "no supported methods"):
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	case strings.Contains(msg, "handshake timeout"):
		return "The jump host accepted the connection but never finished the SSH handshake."
	case strings.Contains(msg, "host key"):
		return "Host key issue. Connect once manually to record it: ssh <host>"
	default:
		return "Something went wrong during SSH setup. Try: ssh <host>"
	}
}

package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrSSH,
		ErrExec,
		ErrOutput,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		message    string
		suggestion string
	}{
		{
			name:       "config error",
			code:       ErrConfig,
			message:    "Invalid configuration in .ipmicollect.yaml",
			suggestion: "Check your configuration file syntax",
		},
		{
			name:       "ssh error",
			code:       ErrSSH,
			message:    "Can't reach jump host 'bastion'",
			suggestion: "Check that the host is reachable: ssh bastion",
		},
		{
			name:       "exec error",
			code:       ErrExec,
			message:    "ipmi-sensors not found",
			suggestion: "Install freeipmi",
		},
		{
			name:       "output error",
			code:       ErrOutput,
			message:    "Couldn't write to stdout",
			suggestion: "Check that the collectd exec plugin is still reading",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.suggestion)

			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.suggestion, err.Suggestion)
			assert.Nil(t, err.Cause)
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name          string
		err           *Error
		expectedParts []string
		notExpected   []string
	}{
		{
			name:          "message and suggestion",
			err:           New(ErrConfig, "Invalid configuration", "Check .ipmicollect.yaml syntax"),
			expectedParts: []string{"✗", "Invalid configuration", "Check .ipmicollect.yaml syntax"},
		},
		{
			name:          "without suggestion",
			err:           New(ErrExec, "Command failed", ""),
			expectedParts: []string{"Command failed"},
			notExpected:   []string{"\n\n  \n"},
		},
		{
			name:          "with cause",
			err:           WrapWithCode(errors.New("connection refused"), ErrSSH, "Jump host unreachable", "Try again"),
			expectedParts: []string{"Jump host unreachable", "connection refused", "Try again"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := tt.err.Error()
			for _, part := range tt.expectedParts {
				assert.Contains(t, output, part)
			}
			for _, part := range tt.notExpected {
				assert.NotContains(t, output, part)
			}
		})
	}
}

func TestErrorMessageStructure(t *testing.T) {
	err := WrapWithCode(
		errors.New("dial tcp: i/o timeout"),
		ErrSSH,
		"Can't reach jump host 'bastion'",
		"Check the ssh.jump setting",
	)

	lines := strings.Split(err.Error(), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "✗ "))
	assert.Contains(t, lines[0], "Can't reach jump host")
}

func TestWrap(t *testing.T) {
	cause := errors.New("exec: not started")
	wrapped := Wrap(cause, "Command failed")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrExec, wrapped.Code, "Wrap should default to ErrExec code")
	assert.Equal(t, "Command failed", wrapped.Message)
	assert.Equal(t, cause, wrapped.Cause)
}

func TestErrorsIsAndAs(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := WrapWithCode(cause, ErrOutput, "write failed", "")

	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, cause, wrapped.Unwrap())

	outer := fmt.Errorf("emit: %w", wrapped)
	var ipErr *Error
	require.True(t, errors.As(outer, &ipErr))
	assert.Equal(t, ErrOutput, ipErr.Code)
}

func TestIsCode(t *testing.T) {
	err := New(ErrConfig, "Config error", "")

	assert.True(t, IsCode(err, ErrConfig))
	assert.False(t, IsCode(err, ErrSSH))
	assert.True(t, IsCode(fmt.Errorf("load: %w", err), ErrConfig))
	assert.False(t, IsCode(errors.New("standard error"), ErrConfig))
	assert.False(t, IsCode(nil, ErrConfig))
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOk   bool
	}{
		{name: "ExitError returns code", err: NewExitError(1), wantCode: 1, wantOk: true},
		{name: "wrapped ExitError", err: fmt.Errorf("check: %w", NewExitError(3)), wantCode: 3, wantOk: true},
		{name: "standard error", err: errors.New("boom"), wantOk: false},
		{name: "nil error", err: nil, wantOk: false},
		{name: "structured error", err: New(ErrExec, "x", ""), wantOk: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := GetExitCode(tt.err)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "exit code 137", NewExitError(137).Error())
}

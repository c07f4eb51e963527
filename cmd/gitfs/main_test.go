package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/gitfs/errors"
)

func runArgs(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr, envconfig.MapLookuper(env))
	return stdout.String() + stderr.String(), err
}

func TestRun_Usage(t *testing.T) {
	for _, args := range [][]string{nil, {"help"}, {"--help"}} {
		out, err := runArgs(t, nil, args...)
		require.NoError(t, err)
		for _, name := range []string{"cat", "ls", "stat", "mount", "serve", "--set"} {
			assert.Contains(t, out, name)
		}
	}
}

func TestRun_CommandHelp(t *testing.T) {
	out, err := runArgs(t, nil, "ls", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "gitfs ls")
	assert.Contains(t, out, "--json")
	assert.Contains(t, out, "--log-level")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
		code errors.ErrorCode
	}{
		{
			name: "unknown command",
			args: []string{"rm", "x"},
			code: errors.CodeInvalidInput,
		},
		{
			name: "unknown flag",
			args: []string{"cat", "--nope", "x"},
			code: errors.CodeInvalidInput,
		},
		{
			name: "bad log level",
			args: []string{"cat", "--log-level", "loud", "x"},
			code: errors.CodeInvalidInput,
		},
		{
			name: "malformed set",
			args: []string{"cat", "--set", "pull.lazy", "x"},
			code: errors.CodeInvalidConfig,
		},
		{
			name: "conflicting sources",
			env:  map[string]string{"GITFS_PULL_LAZY": "1s"},
			args: []string{"cat", "--set", "pull.lazy=2s", "x"},
			code: errors.CodeConfigConflict,
		},
		{
			name: "missing argument",
			args: []string{"cat"},
			code: errors.CodeInvalidInput,
		},
		{
			name: "extra argument",
			args: []string{"serve", "x"},
			code: errors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runArgs(t, tt.env, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

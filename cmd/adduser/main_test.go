package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dbFlags(t *testing.T) []string {
	t.Helper()
	return []string{"-driver", "sqlite", "-db", filepath.Join(t.TempDir(), "lending.db")}
}

func TestRun_CreatesAdmin(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	args := append([]string{"-name", "Root", "-email", "root@example.com", "-password", "super-secret", "-role", "admin"}, dbFlags(t)...)
	err := run(args, new(bytes.Buffer), stdout, stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "User root@example.com created successfully")
	assert.Contains(t, stdout.String(), "role ADMIN")
}

func TestRun_DuplicateEmail(t *testing.T) {
	db := dbFlags(t)
	args := append([]string{"-name", "Twin", "-email", "twin@example.com", "-password", "super-secret"}, db...)

	require.NoError(t, run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)), "first run should succeed")

	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRun_MissingFlags(t *testing.T) {
	stdout := new(bytes.Buffer)

	err := run([]string{"-password", "secret"}, new(bytes.Buffer), stdout, new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flags: name, email")
	assert.Contains(t, stdout.String(), "Usage:")
}

func TestRun_InteractivePassword(t *testing.T) {
	stdout := new(bytes.Buffer)
	stdin := bytes.NewBufferString("typed-password\n")

	args := append([]string{"-name", "Typist", "-email", "typist@example.com"}, dbFlags(t)...)
	err := run(args, stdin, stdout, new(bytes.Buffer))
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "Password: ")
	assert.Contains(t, stdout.String(), "created successfully")
}

func TestRun_EmptyPassword(t *testing.T) {
	args := append([]string{"-name", "Blank", "-email", "blank@example.com"}, dbFlags(t)...)
	err := run(args, bytes.NewBufferString("\n"), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password cannot be empty")
}

func TestRun_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown role", []string{"-name", "X", "-email", "x@example.com", "-password", "super-secret", "-role", "ROOT"}},
		{"short password", []string{"-name", "X", "-email", "x@example.com", "-password", "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(append(tt.args, dbFlags(t)...), new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to create user")
		})
	}
}

func TestRun_InvalidDBPath(t *testing.T) {
	args := []string{"-name", "X", "-email", "x@example.com", "-password", "super-secret", "-driver", "sqlite", "-db", t.TempDir()}
	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestRun_InvalidFlag(t *testing.T) {
	err := run([]string{"-invalid"}, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flag provided but not defined")
}

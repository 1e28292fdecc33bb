package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdugdh24/mpit2026-matching/internal/delivery/http/middleware"
)

const secret = "matchctl-test-secret-matchctl-test!!"

func setEnv(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "memory")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("JWT_ACCESS_SECRET", secret)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	setEnv(t)

	out, err := execute(t, "token", "42", "--ttl", "1h")
	require.NoError(t, err)

	profileID, err := middleware.NewAuthMiddleware(secret).VerifyToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, int64(42), profileID)
}

func TestCommandsRejectBadIDs(t *testing.T) {
	setEnv(t)

	for _, args := range [][]string{
		{"run-round", "abc"},
		{"cancel-round", "0"},
		{"list-rounds", "-3"},
		{"token", "x"},
	} {
		_, err := execute(t, args...)
		assert.Error(t, err, args)
	}
}

func TestCommandsRequireArgs(t *testing.T) {
	setEnv(t)

	_, err := execute(t, "run-round")
	assert.Error(t, err)

	_, err = execute(t, "create-round", "--name", "x")
	assert.Error(t, err, "activity flag is required")
}

func TestInvalidConfigFails(t *testing.T) {
	setEnv(t)
	t.Setenv("JWT_ACCESS_SECRET", "short")

	_, err := execute(t, "token", "1")
	assert.Error(t, err)
}

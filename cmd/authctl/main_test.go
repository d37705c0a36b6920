package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func execute(t *testing.T, env map[string]string, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(envFrom(env))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHashPasswordFromArgument(t *testing.T) {
	out, err := execute(t, nil, "", "hash-password", "--cost", "4", "admin123")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("admin123")))
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 4, cost)
}

func TestHashPasswordReadsStdinAndEnvCost(t *testing.T) {
	out, err := execute(t, map[string]string{"BCRYPT_COST": "5"}, "staff123\n", "hash-password")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("staff123")))
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 5, cost)
}

func TestIssueThenVerifyToken(t *testing.T) {
	env := map[string]string{"JWT_SECRET": "cli-secret"}
	out, err := execute(t, env, "", "issue-token", "--subject", "user-1", "--ttl", "1h")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "expires_at="))

	out, err = execute(t, env, "", "verify-token", lines[0])
	require.NoError(t, err)
	assert.Equal(t, "subject=user-1", strings.TrimSpace(out))
}

func TestVerifyTokenRejectsOtherSecret(t *testing.T) {
	out, err := execute(t, map[string]string{"JWT_SECRET": "one"}, "", "issue-token", "--subject", "user-1")
	require.NoError(t, err)
	token := strings.SplitN(out, "\n", 2)[0]

	_, err = execute(t, map[string]string{"JWT_SECRET": "two"}, "", "verify-token", token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MALFORMED_OR_FORGED")
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	_, err := execute(t, nil, "", "issue-token", "--subject", "user-1")
	require.Error(t, err)
}

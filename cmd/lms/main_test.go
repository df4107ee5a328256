package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms/cmd/identity"
)

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "hash-password"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestHashPasswordCmd(t *testing.T) {
	t.Setenv("LMS_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("LMS_ARGON2_ITERATIONS", "1")
	t.Setenv("LMS_ARGON2_PARALLELISM", "1")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader("correct horse battery\n"))
	cmd.SetArgs([]string{"hash-password"})

	require.NoError(t, cmd.Execute())

	encoded := strings.TrimSpace(out.String())
	require.True(t, strings.HasPrefix(encoded, "$argon2id$"), "got %q", encoded)

	h, err := identity.NewHasherFromEnv()
	require.NoError(t, err)
	ok, err := h.Verify("correct horse battery", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPasswordCmd_RejectsEmptyAndWeak(t *testing.T) {
	for _, in := range []string{"", "\n", "short\n"} {
		cmd := NewRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetIn(strings.NewReader(in))
		cmd.SetArgs([]string{"hash-password"})
		assert.Error(t, cmd.Execute(), "input %q", in)
	}
}

func TestMigrateCmd_Guards(t *testing.T) {
	t.Setenv("LMS_DATABASE_URL", "")

	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"migrate", "up"}, want: "LMS_DATABASE_URL is required"},
		{args: []string{"migrate", "down"}, want: "--yes"},
		{args: []string{"migrate", "down", "--yes"}, want: "LMS_DATABASE_URL is required"},
	}
	for _, tt := range tests {
		cmd := NewRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(tt.args)
		err := cmd.Execute()
		require.Error(t, err, "%v", tt.args)
		assert.Contains(t, err.Error(), tt.want)
	}
}

package cli

import (
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replication-agent/internal/app"
	"replication-agent/internal/shared"
	"replication-agent/internal/types"
)

// ---------- Command tree tests ----------

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()
	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	expected := []string{"replicate", "push", "poll", "serve", "queue"}
	for _, name := range expected {
		assert.Contains(t, names, name, "missing subcommand: %s", name)
	}
}

func TestRootCommandVersion(t *testing.T) {
	root := newRootCommand()
	assert.Equal(t, "dev", root.Version)
}

func TestRootPersistentFlags(t *testing.T) {
	root := newRootCommand()
	flags := []string{"config", "log-level", "agent", "endpoint", "property", "strategy", "redis-addr"}
	for _, name := range flags {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "missing flag: %s", name)
	}
}

func TestCommandFlags(t *testing.T) {
	agent := &agentOptions{}
	tests := []struct {
		cmd   *cobra.Command
		flags []string
	}{
		{cmd: newReplicateCommand(agent), flags: []string{"action"}},
		{cmd: newPushCommand(agent), flags: []string{"max"}},
		{cmd: newPollCommand(agent), flags: []string{"enqueue", "continuous"}},
		{cmd: newServeCommand(agent), flags: []string{"addr", "path", "poll"}},
	}
	for _, tt := range tests {
		for _, name := range tt.flags {
			assert.NotNil(t, tt.cmd.Flags().Lookup(name), "%s is missing flag: %s", tt.cmd.Name(), name)
		}
	}
}

func TestLoadAgentSpecAppliesOverrides(t *testing.T) {
	root, err := filepath.Abs(filepath.Join("..", ".."))
	require.NoError(t, err)

	opts := &agentOptions{}
	cmd := &cobra.Command{Use: "test"}
	opts.bind(cmd)
	require.NoError(t, cmd.PersistentFlags().Set("agent", filepath.Join(root, "fixtures", "agent-sample.yaml")))
	require.NoError(t, cmd.PersistentFlags().Set("endpoint", "http://override.example/replicate"))
	require.NoError(t, cmd.PersistentFlags().Set("property", "header=X-Override: yes"))
	require.NoError(t, cmd.PersistentFlags().Set("strategy", "ALL"))

	spec, err := loadAgentSpec(cmd, app.NewService(), opts)
	require.NoError(t, err)
	assert.Equal(t, "author", spec.Name)
	assert.Equal(t, []string{"http://override.example/replicate"}, spec.Transport.Endpoints)
	assert.Equal(t, []string{"header=X-Override: yes"}, spec.Transport.Properties)
	assert.Equal(t, types.EndpointStrategyAll, spec.Transport.Strategy)
}

func TestLoadAgentSpecRequiresPath(t *testing.T) {
	opts := &agentOptions{}
	cmd := &cobra.Command{Use: "test"}
	opts.bind(cmd)
	_, err := loadAgentSpec(cmd, app.NewService(), opts)
	require.Error(t, err)
	assert.Equal(t, 2, exitCodeForError(err))
}

func TestFormatQueueStatus(t *testing.T) {
	assert.Equal(t, "queue: outbox\nlength: 0\n", formatQueueStatus(app.QueueStatusResult{Name: "outbox"}))

	out := formatQueueStatus(app.QueueStatusResult{
		Name:    "outbox",
		Length:  2,
		Head:    &types.QueueItem{ID: "/p/1.rpkg", Action: types.ActionAdd, Type: "rpkg", Paths: []string{"/content/a", "/content/b"}},
		Holders: []string{"outbox"},
	})
	assert.Contains(t, out, "head: /p/1.rpkg\n")
	assert.Contains(t, out, "  paths: /content/a, /content/b\n")
	assert.Contains(t, out, "  holders: outbox\n")
}

// ---------- Helper function tests ----------

func TestResolveString(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *cobra.Command
		value    string
		expected string
	}{
		{
			name:     "nil cmd with value returns value",
			cmd:      nil,
			value:    "explicit",
			expected: "explicit",
		},
		{
			name:     "nil cmd empty value returns empty",
			cmd:      nil,
			value:    "",
			expected: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveString(tt.cmd, tt.value, "test_key", "test-flag")
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveStrings(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *cobra.Command
		values   []string
		expected []string
	}{
		{
			name:     "nil cmd with values returns values",
			cmd:      nil,
			values:   []string{"a", "b"},
			expected: []string{"a", "b"},
		},
		{
			name:     "nil cmd empty returns nil",
			cmd:      nil,
			values:   nil,
			expected: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveStrings(tt.cmd, tt.values, "test_key", "test-flag")
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveBool(t *testing.T) {
	got := resolveBool(nil, true, "test_key", "test-flag")
	assert.True(t, got)

	got = resolveBool(nil, false, "test_key", "test-flag")
	assert.False(t, got)
}

func TestResolveInt(t *testing.T) {
	got := resolveInt(nil, 42, "test_key", "test-flag")
	assert.Equal(t, 42, got)
}

func TestFlagChanged(t *testing.T) {
	assert.False(t, flagChanged(nil, "anything"), "nil cmd should return false")
	assert.False(t, flagChanged(nil, ""), "nil cmd with empty name")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("myflag", "", "test flag")
	assert.False(t, flagChanged(cmd, "myflag"), "unchanged flag")
	assert.False(t, flagChanged(cmd, "nonexistent"), "nonexistent flag")
}

func TestFlagChangedAfterSet(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("myflag", "", "test flag")
	require.NoError(t, cmd.Flags().Set("myflag", "val"))
	assert.True(t, flagChanged(cmd, "myflag"))
}

// ---------- Exit code tests ----------

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name: "invalid argument",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("bad input"),
			expected: 2,
		},
		{
			name: "already exists",
			err: errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg("dup"),
			expected: 2,
		},
		{
			name: "failed precondition",
			err: errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("agent has no transport endpoints"),
			expected: 4,
		},
		{
			name: "permission denied",
			err: errbuilder.New().
				WithCode(errbuilder.CodePermissionDenied).
				WithMsg("nope"),
			expected: 3,
		},
		{
			name: "not found",
			err: errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("agent spec file not found"),
			expected: 5,
		},
		{
			name: "wrapped permission denied",
			err: shared.PackageBuildError(errbuilder.New().
				WithCode(errbuilder.CodePermissionDenied).
				WithMsg("content login rejected")),
			expected: 3,
		},
		{
			name: "transport failure",
			err: shared.TransportError(errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("delivery failed")),
			expected: 6,
		},
		{
			name: "internal error",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("boom"),
			expected: 5,
		},
		{
			name:     "unknown error",
			err:      assert.AnError,
			expected: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exitCodeForError(tt.err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name: "errbuilder with msg",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("something broke"),
			expected: "something broke",
		},
		{
			name:     "plain error",
			err:      assert.AnError,
			expected: assert.AnError.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errorMessage(tt.err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

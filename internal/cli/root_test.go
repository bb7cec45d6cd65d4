package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "insightdash", cmd.Use)
	assert.Contains(t, cmd.Long, "analytics API")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"dashboards", "list"},
		{"dashboards", "get"},
		{"dashboards", "create"},
		{"dashboards", "update"},
		{"dashboards", "delete"},
		{"datasets", "list"},
		{"datasets", "get"},
		{"datasets", "upload"},
		{"datasets", "delete"},
		{"analyses", "create"},
		{"analyses", "get"},
		{"analyses", "watch"},
		{"history"},
		{"admin", "users", "list"},
		{"admin", "users", "create"},
		{"admin", "users", "update"},
		{"admin", "users", "delete"},
		{"admin", "audit-logs"},
		{"session", "login"},
		{"session", "logout"},
		{"session", "switch-org"},
		{"session", "show"},
		{"prefs", "show"},
		{"prefs", "set"},
		{"flags"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"base-url", "state", "state-format"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue, "%s defaults to the environment", name)
	}
}

func TestLoginCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	loginCmd, _, err := cmd.Find([]string{"session", "login"})
	require.NoError(t, err)

	require.NotNil(t, loginCmd.Flags().Lookup("token"))
	require.NotNil(t, loginCmd.Flags().Lookup("org"))
}

func TestWatchCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	watchCmd, _, err := cmd.Find([]string{"analyses", "watch"})
	require.NoError(t, err)

	intervalFlag := watchCmd.Flags().Lookup("interval")
	require.NotNil(t, intervalFlag)
	assert.Equal(t, "5s", intervalFlag.DefValue)
}

func TestDashboardUpdateFlags(t *testing.T) {
	cmd := NewRootCommand()
	updateCmd, _, err := cmd.Find([]string{"dashboards", "update"})
	require.NoError(t, err)

	for _, name := range []string{"name", "description", "tag", "public"} {
		assert.NotNil(t, updateCmd.Flags().Lookup(name), name)
	}
}

func TestCommandHelp(t *testing.T) {
	cmd := NewRootCommand()

	// Verify help text contains key elements
	assert.Contains(t, cmd.Short, "InsightDash")
	assert.Contains(t, cmd.Long, "dashboards")
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "flags"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStateFormatValidation(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--state-format", "xml", "flags"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestContentType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"sales.csv", "text/csv"},
		{"SALES.CSV", "text/csv"},
		{"clients.json", "application/json"},
		{"report.pdf", "application/pdf"},
		{"noext", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, contentType(tt.name))
		})
	}
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"", "0", "abc", "-1"} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, path := range [][]string{
		{"start"}, {"daemon"}, {"add"}, {"list"}, {"remove"}, {"check"},
		{"stats"}, {"incidents"}, {"dashboard"}, {"tray"}, {"serve-ssh"},
		{"oncall", "add-contact"}, {"oncall", "add-schedule"}, {"oncall", "list"}, {"oncall", "now"},
		{"notify", "test"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestIsKeyAllowedRejectsGarbage(t *testing.T) {
	assert.False(t, isKeyAllowed([]byte("not a key"), nil))
	assert.False(t, isKeyAllowed(nil, nil))
}

func TestCheckHelpNamesProcessScope(t *testing.T) {
	assert.Contains(t, checkCmd.Long, "runs in this process")
	assert.Contains(t, checkCmd.Long, "another upwatch process")
}

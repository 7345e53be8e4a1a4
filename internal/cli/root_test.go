package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "dquest", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"validate", "simulate", "events", "encode"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "command %s should exist", name)
			assert.Equal(t, name, sub.Name())
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
}

func TestDatabaseFlags(t *testing.T) {
	cmd := NewRootCommand()

	simulate, _, err := cmd.Find([]string{"simulate"})
	require.NoError(t, err)
	assert.Equal(t, "", simulate.Flags().Lookup("db").DefValue, "simulate defaults to an in-memory journal")

	events, _, err := cmd.Find([]string{"events"})
	require.NoError(t, err)
	require.NotNil(t, events.Flags().Lookup("db"))
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "yaml", "validate", genesisQuestDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestNewLogger(t *testing.T) {
	t.Run("json handler under json format", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewLogger(buf, &RootOptions{Format: "json"})
		logger.Warn("sink failed", "quest", "genesis")
		assert.Contains(t, buf.String(), `"msg":"sink failed"`)
		assert.Contains(t, buf.String(), `"quest":"genesis"`)
	})

	t.Run("debug only when verbose", func(t *testing.T) {
		buf := &bytes.Buffer{}
		NewLogger(buf, &RootOptions{Format: "text"}).Debug("hidden")
		assert.Empty(t, buf.String())

		NewLogger(buf, &RootOptions{Format: "text", Verbose: true}).Debug("shown")
		assert.Contains(t, buf.String(), "msg=shown")
	})
}

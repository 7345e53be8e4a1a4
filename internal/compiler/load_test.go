package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCUE(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("package quests\n"+content), 0644))
}

func TestLoadDir_MultipleFiles(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "genesis.cue", fullQuest)
	writeCUE(t, dir, "second.cue", `
quest: second: {
	owner: "0x00000000000000000000000000000000000000f0"
	formula: [{id: 1, handler: "0x1000000000000000000000000000000000000001", oracle: "0x2000000000000000000000000000000000000002", data: "0x01"}]
	outcomes: [{native: 1}]
}`)

	defs, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	ids := []string{defs[0].ID, defs[1].ID}
	assert.ElementsMatch(t, []string{"genesis", "second"}, ids)
}

func TestLoadDir_PrefixesErrorsWithQuestLabel(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "bad.cue", `
quest: broken: {
	owner: "0x00000000000000000000000000000000000000f0"
	formula: [{id: 1, handler: "0x1000000000000000000000000000000000000001", oracle: "0x2000000000000000000000000000000000000002", data: "0x01"}]
	outcomes: []
}`)

	_, err := LoadDir(dir)
	require.Error(t, err)
	var cerrs CompileErrors
	require.True(t, errors.As(err, &cerrs))
	assert.Equal(t, "broken.outcomes", cerrs[0].Field)
}

func TestLoadDir_NoQuest(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "empty.cue", `other: 1`)

	_, err := LoadDir(dir)
	require.Error(t, err)
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "no quest declared", ce.Message)
}

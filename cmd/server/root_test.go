package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "seed", "export", "normalize", "status"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestNormalizeCommand(t *testing.T) {
	out, err := run(t, "normalize", "789m", " 00012345 ")

	require.NoError(t, err)
	assert.Equal(t, "789m -> 0000789M\n 00012345  -> 00012345\n", out)
}

func TestSeedStatusExport(t *testing.T) {
	// GIVEN: A catalog file and an empty database
	t.Setenv("LOYALTY_LOG_LEVEL", "error")
	dir := t.TempDir()
	db := filepath.Join(dir, "loyalty.db")
	catalog := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(`
campaigns:
  - id: vit-c
    type: stamp_card
    name: Vitamin C card
    stamp_target: 8
    open_ended: true
  - id: paused
    type: points
    name: Paused points
    points_per_unit: 1
    redeem_threshold: 100
    active: false
`), 0o600))

	// WHEN: Seeding, then asking for status and an export
	out, err := run(t, "--db", db, "seed", catalog)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 2 campaign(s)")

	status, err := run(t, "--db", db, "status")
	require.NoError(t, err)

	exported, err := run(t, "--db", db, "export")
	require.NoError(t, err)

	// THEN: Both campaigns are listed with their status
	assert.Contains(t, status, "vit-c")
	assert.Contains(t, status, "open")
	assert.Contains(t, status, "inactive")
	assert.Contains(t, exported, "id: vit-c")
	assert.Contains(t, exported, "redeem_threshold: 100")
}

func TestSeedRequiresInput(t *testing.T) {
	_, err := run(t, "--db", filepath.Join(t.TempDir(), "x.db"), "seed")
	assert.ErrorContains(t, err, "catalog file or --scenario")
}

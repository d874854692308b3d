package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "compass dev")
}

func TestLoadReadsEnvFileAndConfig(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("COMPASS_CRON_SECRET=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("COMPASS_CRON_SECRET") })
	cfgFile := filepath.Join(dir, "compass.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("survey:\n  release_policy: uniform\n"), 0o600))

	g := &globalFlags{configPath: cfgFile, envFile: envFile}
	cfg, err := g.load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Auth.CronSecret)
	assert.Equal(t, "uniform", cfg.Survey.ReleasePolicy)
}

func TestLoadToleratesMissingFiles(t *testing.T) {
	dir := t.TempDir()
	g := &globalFlags{configPath: filepath.Join(dir, "none.yaml"), envFile: filepath.Join(dir, "none.env")}
	cfg, err := g.load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestEnsureSQLiteDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ensureSQLiteDir("sqlite3", "file:"+filepath.Join(dir, "a", "b.db")+"?_fk=1"))
	assert.DirExists(t, filepath.Join(dir, "a"))
	require.NoError(t, ensureSQLiteDir("sqlite3", ":memory:"))
	require.NoError(t, ensureSQLiteDir("postgres", "postgres://localhost/compass"))
}

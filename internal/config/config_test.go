package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.Addr)
	require.InDelta(t, 10000.0, cfg.Targets.Weekly, 0.001)
	require.InDelta(t, 40000.0, cfg.Targets.Monthly, 0.001)
	require.Equal(t, 5, cfg.Queue.MaxDailyPosts)
	require.NotEmpty(t, cfg.DataDir)
	require.NotEmpty(t, cfg.Programs)
	require.Equal(t, filepath.Join(cfg.DataDir, "tracker.db"), cfg.TrackerDBPath())
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "affkit")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	yaml := `
data_dir: ~/affkit-data
server:
  addr: ":9000"
targets:
  weekly: 5000
trends:
  feeds:
    - https://feeds.example/affiliate.xml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("AFFKIT_SERVER_ADDR", ":7777")

	cfg, err := Load()
	require.NoError(t, err)
	// Env beats YAML, YAML beats defaults.
	require.Equal(t, ":7777", cfg.Server.Addr)
	require.InDelta(t, 5000.0, cfg.Targets.Weekly, 0.001)
	require.Equal(t, filepath.Join(home, "affkit-data"), cfg.DataDir)
	require.Equal(t, []string{"https://feeds.example/affiliate.xml"}, cfg.Trends.Feeds)
}

func TestWriteConfigPreservesDataDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, WriteConfig(UserConfig{
		DataDir:      "/data/original",
		ServerAddr:   ":8080",
		WeeklyTarget: 10000,
		TrendFeeds:   []string{"https://feeds.example/a.xml"},
	}))

	// Second write with a different data dir must keep the first one.
	require.NoError(t, WriteConfig(UserConfig{DataDir: "/data/other"}))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/data/original", cfg.DataDir)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "x"), expandPath("~/x"))
	require.Equal(t, home, expandPath("~"))
	require.Equal(t, "/abs/path", expandPath("/abs/path"))
}

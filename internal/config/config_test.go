package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voccal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
document: events.yaml
year: 2024
monthly: true
output:
  dir: out
  prefix: month-
cases:
  digits: room
  ranges: false
palette: ["#112233"]
`), 0o600))

	t.Setenv("VOCCAL_OUTPUT_DIR", "/srv/calendar")
	t.Setenv("VOCCAL_YEAR", "2025")
	t.Setenv("VOCCAL_PALETTE", "#000000,#ffffff")
	t.Setenv("VOCCAL_BASICAUTH_USERNAME", "voc")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "events.yaml", cfg.Document)
	assert.Equal(t, 2025, cfg.Year)
	assert.True(t, cfg.Monthly)
	assert.Equal(t, "/srv/calendar", cfg.Output.Dir)
	assert.Equal(t, "month-", cfg.Output.Prefix)
	assert.Equal(t, ".svg", cfg.Output.Suffix, "defaults survive a partial file")
	assert.Equal(t, "room", cfg.Cases.Digits)
	assert.False(t, cfg.Cases.Ranges)
	assert.Equal(t, []string{"#000000", "#ffffff"}, cfg.Palette)
	assert.Equal(t, "voc", cfg.BasicAuth.Username)
	assert.Equal(t, "voc_events", cfg.Feed.Key)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("year: [1, 2"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	cfg := &Config{Year: -3, Cases: CasesConfig{Digits: "bogus"}}
	cfg.Normalize()
	assert.Equal(t, 0, cfg.Year)
	assert.Equal(t, "paired", cfg.Cases.Digits)
	assert.Equal(t, "calendar.svg", cfg.Output.File)
	assert.Equal(t, "voc_events", cfg.Feed.Key)
	assert.Equal(t, "*/15 * * * *", cfg.Refresh)
	assert.Empty(t, cfg.Output.Suffix, "an explicit empty suffix is kept")
}

func TestLoad_EmptySuffixFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voccal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  suffix: \"\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Output.Suffix)
	assert.Equal(t, "calendar-", cfg.Output.Prefix)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Palette = []string{"not-a-color"}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.BasicAuth.Password = "secret"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Sort = "resource"
	assert.NoError(t, cfg.Validate())
	cfg.Sort = "alphabetical"
	assert.Error(t, cfg.Validate())
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "voccal.yaml")
	cfg := DefaultConfig()
	cfg.Feed.URL = "https://example.com/events.json"
	cfg.Monthly = true
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSave_Errors(t *testing.T) {
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "x.yaml"), nil))
}

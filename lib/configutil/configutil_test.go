package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Counties []string `json:"counties" yaml:"counties"`
	Port     int      `json:"port" yaml:"port"`
	Headless bool     `json:"headless" yaml:"headless"`
}

func TestReadConfigYamlWithLocalOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
counties: [ANDREWS, ECTOR]
port: 8000
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.yaml"), []byte(`
counties: [REEVES]
headless: true
`), 0644))

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, testConfig{
		Counties: []string{"REEVES"},
		Port:     8000,
		Headless: true,
	}, cfg)
}

func TestReadConfigJson5(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
	// trailing commas and comments are fine
	counties: ["MIDLAND"],
	port: 9000,
}`), 0644))

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, []string{"MIDLAND"}, cfg.Counties)
	require.Equal(t, 9000, cfg.Port)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigUnsupported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`port = 1`), 0644))
	_, err := ReadConfig[testConfig](filepath.Join(dir, "config.toml"))
	require.Error(t, err)
}

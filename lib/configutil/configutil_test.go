package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name     string `json:"name"`
	Interval int    `json:"interval"`
}

func TestReadConfigMergesLocalOverrides(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "app.json5")
	require.NoError(t, os.WriteFile(base, []byte(`{name: "base", interval: 60}`), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "app.local.json5"),
		[]byte(`{interval: 30}`), 0o644,
	))

	config, err := ReadConfig[testConfig](base)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "base", Interval: 30}, config)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "nothing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadOptionalMissing(t *testing.T) {
	config, found, err := ReadOptional[testConfig]("definitely-not-a-real-config.json5")
	require.NoError(t, err)
	require.False(t, found)
	require.Zero(t, config)
}

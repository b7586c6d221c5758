package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAndDecode(t *testing.T) {
	path := writeConfig(t, `
[posigen]
rate = 60.0
sigma = 12.5

[frameview]
every = 10
`)
	f, err := Load(path)
	require.NoError(t, err)
	assert.True(t, f.Has("posigen"))
	assert.False(t, f.Has("recorder"))

	var cfg struct {
		Rate  float64 `toml:"rate"`
		Sigma float64 `toml:"sigma"`
	}
	require.NoError(t, f.Decode("posigen", &cfg))
	assert.Equal(t, 60.0, cfg.Rate)
	assert.Equal(t, 12.5, cfg.Sigma)
}

func TestDecodeUnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, `
[posigen]
rate = 60.0
rtae = 30.0
`)
	f, err := Load(path)
	require.NoError(t, err)

	var cfg struct {
		Rate float64 `toml:"rate"`
	}
	err = f.Decode("posigen", &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rtae")
}

func TestDecodeLooseAllowsArbitraryKeys(t *testing.T) {
	path := writeConfig(t, `
[posifilt]
north = [[0.0, 0.0], [100.0, 0.0], [100.0, 50.0], [0.0, 50.0]]
south = [[0.0, 50.0], [100.0, 50.0], [100.0, 100.0], [0.0, 100.0]]
`)
	f, err := Load(path)
	require.NoError(t, err)

	regions := make(map[string][][]float64)
	require.NoError(t, f.DecodeLoose("posifilt", &regions))
	require.Len(t, regions, 2)
	assert.Len(t, regions["north"], 4)
	assert.Equal(t, []float64{100, 50}, regions["north"][2])
}

func TestDecodeMissingTable(t *testing.T) {
	f, err := Load(writeConfig(t, `[other]`))
	require.NoError(t, err)

	var v struct{}
	require.Error(t, f.Decode("posigen", &v))
	require.Error(t, f.DecodeLoose("posigen", &v))
}

func TestLoadRejectsNonTOMLExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsInvalidTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "not = [valid"))
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

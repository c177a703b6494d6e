package userconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Missing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, &UserConfig{}, cfg)
}

func TestSaveAndLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, SetAPIURL("https://api.example.com/api"))
	require.NoError(t, SetSelectedPortfolio("01HZX"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api", cfg.APIURL)

	selected, err := GetSelectedPortfolio()
	require.NoError(t, err)
	assert.Equal(t, "01HZX", selected)

	data, err := os.ReadFile(filepath.Join(home, ".config", "pagecraft", "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "api_url: https://api.example.com/api")
	assert.Contains(t, string(data), "selected_portfolio: 01HZX")
}

func TestLoad_Invalid(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "pagecraft")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("api_url: [unterminated"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"key_2captcha": "captcha-key",
		"postfix_port_smtp": 587,
		"postfix_ssl": true,
		"log": {"level": "info"}
	}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json"), []byte(`{
		"pixabay_key": "local-key"
	}`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "captcha-key", cfg.Key2Captcha)
	require.Equal(t, 587, cfg.PostfixPortSmtp)
	require.True(t, cfg.PostfixSSL)
	require.Equal(t, "local-key", cfg.PixabayKey)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, 8, cfg.Log.TZOffset)
	require.Equal(t, New().Cache, cfg.Cache)

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := New()
	cfg.TwilioSid = "sid"
	cfg.ChromeVersion = "1000027"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestDirs(t *testing.T) {
	dirs := Dirs{Root: t.TempDir()}
	require.NoError(t, dirs.Ensure())
	for _, dir := range dirs.All() {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}
	require.Equal(t, filepath.Join("out", "debug"), Dirs{}.Debug())
}

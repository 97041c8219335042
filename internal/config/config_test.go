package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDir = "/home/user/.config/unknproject"

func TestLoad_Defaults(t *testing.T) {
	fs := afero.NewMemMapFs()

	cfg, err := LoadFs(fs, testDir)
	require.NoError(t, err)

	d := DefaultConfig()
	assert.Equal(t, d.APIEndpoint, cfg.APIEndpoint)
	assert.Equal(t, d.CDNEndpoint, cfg.CDNEndpoint)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.LowercaseHacks)
	assert.False(t, cfg.SkipInjectsDelay)
	assert.Equal(t, "unknproject.exe", cfg.HelperX86)
	assert.Equal(t, "unknproject.exe", cfg.HelperX64)
	assert.Equal(t, 2*time.Minute, cfg.FetchTimeout)
	assert.Equal(t, testDir, cfg.Dir())
	assert.Equal(t, filepath.Join(testDir, "config.json"), cfg.Path())

	exists, err := afero.DirExists(fs, testDir)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLoad_File(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(testDir, "config.json"), []byte(`{
		"skip_injects_delay": true,
		"lowercase_hacks": false,
		"cdn_endpoint": "https://cdn.example.com/",
		"log_level": "debug",
		"helper_x64": "injector64.exe",
		"fetch_timeout": "30s"
	}`), 0o644))

	cfg, err := LoadFs(fs, testDir)
	require.NoError(t, err)

	assert.True(t, cfg.SkipInjectsDelay)
	assert.False(t, cfg.LowercaseHacks)
	assert.Equal(t, "https://cdn.example.com/", cfg.CDNEndpoint)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "unknproject.exe", cfg.HelperX86)
	assert.Equal(t, "injector64.exe", cfg.HelperX64)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, DefaultConfig().APIEndpoint, cfg.APIEndpoint, "unset keys keep defaults")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("UNKN_SKIP_INJECTS_DELAY", "true")
	t.Setenv("UNKN_LISTEN_ADDR", "127.0.0.1:9999")

	cfg, err := LoadFs(afero.NewMemMapFs(), testDir)
	require.NoError(t, err)

	assert.True(t, cfg.SkipInjectsDelay)
	assert.Equal(t, "127.0.0.1:9999", cfg.ListenAddr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"level", `{"log_level": "verbose"}`, "unknown log level"},
		{"retries", `{"fetch_retries": -1}`, "fetch_retries"},
		{"cdn", `{"cdn_endpoint": " "}`, "cdn_endpoint"},
		{"syntax", `{"log_level": `, "read config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, filepath.Join(testDir, "config.json"), []byte(tt.body), 0o644))

			_, err := LoadFs(fs, testDir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSaveAndReset(t *testing.T) {
	fs := afero.NewMemMapFs()

	cfg, err := LoadFs(fs, testDir)
	require.NoError(t, err)

	cfg.SkipInjectsDelay = true
	cfg.HelperX64 = "injector64.exe"
	cfg.FetchTimeout = 45 * time.Second
	require.NoError(t, cfg.Save())

	reloaded, err := LoadFs(fs, testDir)
	require.NoError(t, err)
	assert.True(t, reloaded.SkipInjectsDelay)
	assert.Equal(t, "injector64.exe", reloaded.HelperX64)
	assert.Equal(t, 45*time.Second, reloaded.FetchTimeout)

	require.NoError(t, reloaded.Reset())
	assert.False(t, reloaded.SkipInjectsDelay)

	again, err := LoadFs(fs, testDir)
	require.NoError(t, err)
	assert.False(t, again.SkipInjectsDelay)
	assert.Equal(t, "unknproject.exe", again.HelperX64)
}

func TestReload(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.Join(testDir, "config.json")
	require.NoError(t, afero.WriteFile(fs, path, []byte(`{"skip_injects_delay": false}`), 0o644))

	cfg, err := LoadFs(fs, testDir)
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, path, []byte(`{"skip_injects_delay": true}`), 0o644))
	require.NoError(t, cfg.v.ReadInConfig())

	next, err := cfg.reload()
	require.NoError(t, err)
	assert.True(t, next.SkipInjectsDelay)
	assert.Equal(t, cfg.Dir(), next.Dir())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"trace":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	logger, closer, err := NewLogger(cfg, "unknproject")
	require.NoError(t, err)
	logger.Info("hello", "k", "v")
	require.NoError(t, closer.Close())

	data, err := afero.ReadFile(afero.NewOsFs(), filepath.Join(dir, "unknproject.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestDiff(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	assert.Empty(t, Diff(a, b))

	b.SkipInjectsDelay = true
	b.LogLevel = "debug"
	changed := Diff(a, b)
	assert.Equal(t, map[string]any{
		"skip_injects_delay": true,
		"log_level":          "debug",
	}, changed)
}

package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unknproject/loader/internal/config"
)

const catalogBody = `[{"name": "Bhop", "description": "Jumps", "author": "b", "status": "working", "file": "bhop.dll", "process": "hl2.exe", "source": "", "game": "CSS v34"}]`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, catalogBody)
	}))
	t.Cleanup(api.Close)

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	cfg.APIEndpoint = api.URL
	cfg.CDNEndpoint = api.URL + "/"
	cfg.CDNFallbackEndpoint = api.URL + "/"
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.SkipInjectsDelay = true
	return cfg
}

func TestNew_CountsLaunch(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(cfg, Options{CountLaunch: true})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	a, err = New(cfg, Options{CountLaunch: true})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	a, err = New(cfg, Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, uint64(2), a.Store().Statistics().OpenedCount)
}

func TestNew_InvalidLogLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.LogLevel = "loud"

	_, err := New(cfg, Options{})
	assert.Error(t, err)
}

func TestNew_MirrorsLogsToStderr(t *testing.T) {
	cfg := testConfig(t)
	var stderr bytes.Buffer

	a, err := New(cfg, Options{Stderr: &stderr})
	require.NoError(t, err)
	defer a.Close()

	a.Logger().Info("hello from test")
	assert.Contains(t, stderr.String(), "hello from test")
	assert.NotEmpty(t, a.Logs().Tail(1))
}

func TestRun_LoadsCatalogAndStops(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(cfg, Options{})
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return a.Catalog().List().Len() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestNew_DisabledPresence(t *testing.T) {
	cfg := testConfig(t)
	cfg.DisableRPC = true

	a, err := New(cfg, Options{})
	require.NoError(t, err)
	assert.Nil(t, a.presence)
	require.NoError(t, a.Close())
}

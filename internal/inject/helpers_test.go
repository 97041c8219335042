package inject

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unknproject/loader/internal/domain"
)

type fakeFetcher struct {
	calls []string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, remoteName, dest string) error {
	f.calls = append(f.calls, remoteName)
	if f.err != nil {
		return f.err
	}
	if _, err := os.Stat(dest); err == nil {
		return nil
	}
	return os.WriteFile(dest, []byte("helper"), 0o755)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHelpers(t *testing.T, f domain.Fetcher) *Helpers {
	t.Helper()
	return NewHelpers(t.TempDir(), map[domain.Arch]string{
		domain.ArchX86: "injector32.exe",
		domain.ArchX64: "injector64.exe",
	}, f, discardLogger())
}

func TestHelpers_SlotsAreDistinct(t *testing.T) {
	h := newTestHelpers(t, &fakeFetcher{})

	assert.NotEqual(t, h.Path(domain.ArchX86), h.Path(domain.ArchX64))
	assert.Equal(t, "", h.Path(domain.Arch("arm64")))
}

func TestHelpers_Ensure(t *testing.T) {
	f := &fakeFetcher{}
	h := newTestHelpers(t, f)

	assert.False(t, h.Present(domain.ArchX64))

	path, err := h.Ensure(context.Background(), domain.ArchX64)
	require.NoError(t, err)
	assert.Equal(t, h.Path(domain.ArchX64), path)
	assert.True(t, h.Present(domain.ArchX64))
	assert.False(t, h.Present(domain.ArchX86))
	assert.Equal(t, []string{"injector64.exe"}, f.calls)
}

func TestHelpers_EnsureFailure(t *testing.T) {
	fetchErr := &domain.FetchError{Kind: domain.FetchNetwork, File: "injector32.exe", Err: errors.New("dial tcp: refused")}
	h := newTestHelpers(t, &fakeFetcher{err: fetchErr})

	_, err := h.Ensure(context.Background(), domain.ArchX86)
	require.Error(t, err)
	assert.True(t, domain.IsInjectKind(err, domain.InjectHelperUnavailable))

	var fe *domain.FetchError
	assert.True(t, errors.As(err, &fe), "fetch cause is preserved")
	assert.Contains(t, err.Error(), "Failed to download manual map injector")
}

func TestHelpers_EnsureUnknownSlot(t *testing.T) {
	f := &fakeFetcher{}
	h := newTestHelpers(t, f)

	_, err := h.Ensure(context.Background(), domain.Arch("arm64"))
	assert.True(t, domain.IsInjectKind(err, domain.InjectHelperUnavailable))
	assert.Empty(t, f.calls)
}

func TestHelpers_Delete(t *testing.T) {
	h := newTestHelpers(t, &fakeFetcher{})
	_, err := h.Ensure(context.Background(), domain.ArchX86)
	require.NoError(t, err)
	_, err = h.Ensure(context.Background(), domain.ArchX64)
	require.NoError(t, err)

	require.NoError(t, h.Delete(domain.ArchX86))
	assert.False(t, h.Present(domain.ArchX86))
	assert.True(t, h.Present(domain.ArchX64))

	require.NoError(t, h.Delete(domain.ArchX86, domain.ArchX64), "missing files are skipped")
	assert.False(t, h.Present(domain.ArchX64))

	var archErr domain.ErrInvalidArch
	assert.True(t, errors.As(h.Delete(domain.Arch("arm")), &archErr))
}

func TestHelpers_SharedFileName(t *testing.T) {
	f := &fakeFetcher{}
	h := NewHelpers(t.TempDir(), map[domain.Arch]string{
		domain.ArchX86: "unknproject.exe",
		domain.ArchX64: "unknproject.exe",
	}, f, discardLogger())

	_, err := h.Ensure(context.Background(), domain.ArchX86)
	require.NoError(t, err)
	assert.True(t, h.Present(domain.ArchX64))
	assert.Equal(t, filepath.Base(h.Path(domain.ArchX64)), "unknproject.exe")
}

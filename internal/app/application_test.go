package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pollroom/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.HTTP.Host = "127.0.0.1"
	cfg.Archive.Path = filepath.Join(t.TempDir(), "pollroom.db")
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewApplication_RejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Poll.MinTimeLimit = 10 * time.Minute

	application, err := NewApplication(cfg, quietLogger())

	require.Error(t, err)
	require.Nil(t, application)
}

func TestNewApplication_Defaults(t *testing.T) {
	application, err := NewApplication(nil, nil)

	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8080", application.Addr())
	require.Nil(t, application.store)
}

func TestApplication_StartStop(t *testing.T) {
	req := require.New(t)

	for _, archiveEnabled := range []bool{false, true} {
		cfg := testConfig(t)
		cfg.Archive.Enabled = archiveEnabled
		application, err := NewApplication(cfg, quietLogger())
		req.NoError(err)

		application.httpServer.Addr = "127.0.0.1:0"
		req.NoError(application.Start(context.Background()))

		resp, err := http.Get("http://" + application.Addr() + "/health")
		req.NoError(err)
		_ = resp.Body.Close()
		req.Equal(http.StatusOK, resp.StatusCode)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		req.NoError(application.Stop(ctx))
		cancel()
	}
}

func TestApplication_StartFailsOnBusyPort(t *testing.T) {
	req := require.New(t)

	first, err := NewApplication(testConfig(t), quietLogger())
	req.NoError(err)
	first.httpServer.Addr = "127.0.0.1:0"
	req.NoError(first.Start(context.Background()))
	t.Cleanup(func() { _ = first.Shutdown() })

	second, err := NewApplication(testConfig(t), quietLogger())
	req.NoError(err)
	second.httpServer.Addr = first.Addr()

	req.Error(second.Start(context.Background()))
}

package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"spacetraveling/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAppServerGracefulShutdown(t *testing.T) {
	setupTestApp(t)

	// Find an available port.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	cfg, err := loadConfig()
	require.NoError(t, err)
	cfg.Server.Addr = fmt.Sprintf("127.0.0.1:%d", port)
	cfg.Server.ViewsPath = ".."

	app, err := newApp(*cfg)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunAppServer(ctx, app)
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	// served from the pages built at startup
	resp, err := http.Get(base + "/post/como-utilizar-hooks")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout):
		t.Fatal("server did not shut down")
	}
}

func TestRunAppServerAddressInUse(t *testing.T) {
	setupTestApp(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	cfg := config.Default()
	cfg.Content.Endpoint = "https://spacetraveling.cdn.prismic.io/api/v2"
	cfg.Server.Addr = listener.Addr().String()
	cfg.Server.ViewsPath = ".."
	cfg.Pages.PrerenderLimit = 0

	app, err := newApp(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	err = RunAppServer(context.Background(), app)
	assert.Error(t, err)
}

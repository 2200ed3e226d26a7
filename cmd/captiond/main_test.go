package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/alttext/pkg/captionsvc"
	appconfig "github.com/entrhq/alttext/pkg/config"
)

func initSettings(t *testing.T, content string) {
	t.Helper()
	t.Setenv(appconfig.EngineEnv, "")
	path := filepath.Join(t.TempDir(), "config.json")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
	require.NoError(t, appconfig.Initialize(path))
}

func TestNewServerFromSettings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	initSettings(t, `{"version":"1.0","sections":{"server":{
		"listen_addr":"127.0.0.1:9100",
		"denied_hosts":["*.internal"]
	}}}`)

	srv, listen, err := newServer(&CLIConfig{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", listen)
	assert.Equal(t, captionsvc.EnginePlaceholder, srv.EngineName())

	router := srv.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/caption", strings.NewReader(`{"image_url":"http://cdn.internal/a.png"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNewServerFlagsOverrideSettings(t *testing.T) {
	initSettings(t, "")

	_, listen, err := newServer(&CLIConfig{Listen: ":9200"})
	require.NoError(t, err)
	assert.Equal(t, ":9200", listen)

	_, _, err = newServer(&CLIConfig{Engine: "bogus"})
	assert.Error(t, err)
}

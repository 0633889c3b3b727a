package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MEDIA_ROOTS", "/srv/media")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"/srv/media"}, cfg.MediaRoots)
	assert.Equal(t, time.Duration(0), cfg.RescanInterval)
	assert.Equal(t, 256, cfg.RoomSendBuffer)
}

func TestLoadRequiresMediaRoots(t *testing.T) {
	t.Setenv("MEDIA_ROOTS", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MEDIA_ROOTS")
}

func TestLoadMultipleRoots(t *testing.T) {
	t.Setenv("MEDIA_ROOTS", "/srv/movies, /srv/music ,,/srv/photos")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/movies", "/srv/music", "/srv/photos"}, cfg.MediaRoots)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MEDIA_ROOTS", "/data")
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("RESCAN_INTERVAL", "15m")
	t.Setenv("ROOM_SEND_BUFFER", "64")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, 15*time.Minute, cfg.RescanInterval)
	assert.Equal(t, 64, cfg.RoomSendBuffer)
}

func TestEnvHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("ROOM_SEND_BUFFER", "not-a-number")
	t.Setenv("RESCAN_INTERVAL", "soon")
	t.Setenv("MEDIA_ROOTS", "/data")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.RoomSendBuffer)
	assert.Equal(t, time.Duration(0), cfg.RescanInterval)
}

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icsconv/internal/model"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_PartialFileNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("timezone: America/New_York\nlog_level: LOUD\nsubjects: [ROBOTIQUE]\nwatch:\n  inbox: /srv/in\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"ROBOTIQUE"}, cfg.Subjects)
	assert.Equal(t, "/srv/in", cfg.Watch.Inbox)
	assert.Equal(t, defaultOutbox, cfg.Watch.Outbox)
	assert.Equal(t, defaultWatchSchedule, cfg.Watch.Schedule)
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Nil(t, cfg.BasicAuth)
}

func TestLoad_UnknownTimezone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: Mars/Olympus\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTimezone, cfg.Timezone)

	t.Setenv("ICSCONV_TIMEZONE", "Not/AZone")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTimezone, cfg.Timezone)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ICSCONV_TIMEZONE", "Asia/Seoul")
	t.Setenv("ICSCONV_LOG_LEVEL", "debug")
	t.Setenv("ICSCONV_STRICT_VALIDATION", "true")
	t.Setenv("ICSCONV_SUBJECTS", "ROBOTIQUE, ARTS PLASTIQUES ,")
	t.Setenv("ICSCONV_WATCH_INBOX", "/tmp/in")
	t.Setenv("ICSCONV_BASIC_AUTH_USERNAME", "admin")
	t.Setenv("ICSCONV_BASIC_AUTH_PASSWORD", "secret")

	cfg := DefaultConfig()
	ApplyEnv(cfg)

	assert.Equal(t, "Asia/Seoul", cfg.Timezone)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.StrictValidation)
	assert.Equal(t, []string{"ROBOTIQUE", "ARTS PLASTIQUES"}, cfg.Subjects)
	assert.Equal(t, "/tmp/in", cfg.Watch.Inbox)
	assert.Equal(t, defaultOutbox, cfg.Watch.Outbox)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "admin", cfg.BasicAuth.Username)
	assert.Equal(t, "secret", cfg.BasicAuth.Password)
}

func TestSave_DoesNotPersistEnv(t *testing.T) {
	t.Setenv("ICSCONV_LISTEN", "0.0.0.0:9999")
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.Listen)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "9999")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("API_URL", "http://localhost:9000")
	t.Setenv("ACCESS_KEY", "test-access")
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("REGION", "us-east-1")

	target := filepath.Join(t.TempDir(), "downloads")
	path := writeConfig(t, `
ignore_pattern:
  starts_with:
    - cloudtrail-logs
  ends_with:
    - "2029"
  contains:
    - scratch
target_path: `+target+`
delete_after_download: true
workers: 4
retry:
  max_attempts: 7
  initial_backoff: 500ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.ApiURL)
	assert.Equal(t, "test-access", cfg.AccessKey)
	assert.Equal(t, "test-secret", cfg.SecretKey)
	assert.Equal(t, "us-east-1", cfg.Region)

	assert.Equal(t, []string{"cloudtrail-logs"}, cfg.Drain.IgnorePattern.StartsWith)
	assert.Equal(t, []string{"2029"}, cfg.Drain.IgnorePattern.EndsWith)
	assert.Equal(t, []string{"scratch"}, cfg.Drain.IgnorePattern.Contains)
	assert.Equal(t, target, cfg.Drain.TargetPath)
	assert.True(t, cfg.Drain.DeleteAfterDownload)
	assert.Equal(t, 4, cfg.Drain.Workers)
	assert.Equal(t, 7, cfg.Drain.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Drain.Retry.InitialBackoff)

	// The target directory is created at startup.
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoadDefaults(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out")
	path := writeConfig(t, "target_path: "+target+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Drain.DeleteAfterDownload)
	assert.Equal(t, 1, cfg.Drain.Workers)
	assert.Equal(t, 5, cfg.Drain.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Drain.Retry.InitialBackoff)
	assert.Empty(t, cfg.Drain.IgnorePattern.StartsWith)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "target_path: [broken\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadWorkerCount(t *testing.T) {
	path := writeConfig(t, "workers: 0\ntarget_path: "+filepath.Join(t.TempDir(), "out")+"\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "workers")
}

func TestLoadUnusableTargetPath(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "parent")
	require.NoError(t, os.WriteFile(blocked, []byte("a file, not a directory"), 0o644))
	// A file occupies the parent of the target, so the directory cannot
	// be created and cannot be renamed aside either.
	path := writeConfig(t, "target_path: "+filepath.Join(blocked, "child", "out")+"\n")

	_, err := Load(path)
	assert.Error(t, err)
}

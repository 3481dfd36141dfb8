package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir stands in for t.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	env := "MONGO_URI=mongodb://dotenv:27017\nPOSTGRES_CONN_STR=host=dotenv\nJWT_SECRET=dotenv-secret\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644))

	clearEnv(t, "MONGO_URI", "POSTGRES_CONN_STR", "JWT_SECRET")
	chdir(t, dir)

	cfg := Load()
	assert.Equal(t, "mongodb://dotenv:27017", cfg.MongoURI, ".env values must be visible to Load")
	assert.Equal(t, "host=dotenv", cfg.PostgresConnStr)
	assert.Equal(t, "dotenv-secret", cfg.JWTSecret)
}

func TestLoadEnvironmentWinsOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JWT_SECRET=dotenv-secret\n"), 0o644))

	t.Setenv("JWT_SECRET", "env-secret")
	chdir(t, dir)

	cfg := Load()
	assert.Equal(t, "env-secret", cfg.JWTSecret)
}

func TestLoadDefaultsWithoutDotEnv(t *testing.T) {
	chdir(t, t.TempDir())
	clearEnv(t, "PORT", "MONGO_DB_NAME", "UPLOADS_DIR")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "socius", cfg.MongoDBName)
	assert.Equal(t, "./uploads", cfg.UploadsDir)
}

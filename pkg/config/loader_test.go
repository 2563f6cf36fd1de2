package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamefrenza/AI-Legal-Agent/pkg/config"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadConfigOverlayAndSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  port: 5432
  password: ${DB_PASSWORD}
server:
  port: "8086"
`)
	writeFile(t, dir, "staging.yaml", `
db:
  host: db.staging.internal
`)
	writeFile(t, dir, "secrets.env", `
# secrets
DB_PASSWORD="hunter2"
`)

	cfg, err := config.LoadConfig("staging", dir)
	require.NoError(t, err)

	db := cfg["db"].(map[string]interface{})
	assert.Equal(t, "db.staging.internal", db["host"], "overlay wins over base")
	assert.Equal(t, 5432, db["port"], "base keys survive the overlay")
	assert.Equal(t, "hunter2", db["password"], "secrets substitute placeholders")

	server := cfg["server"].(map[string]interface{})
	assert.Equal(t, "8086", server["port"])
}

func TestLoadConfigMissingOverlayIsFine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "server:\n  port: \"8086\"\n")

	cfg, err := config.LoadConfig("production", dir)
	require.NoError(t, err)
	assert.NotNil(t, cfg["server"])
}

func TestLoadConfigRequiresBase(t *testing.T) {
	_, err := config.LoadConfig("local", t.TempDir())
	assert.Error(t, err)
}

func TestUnresolvedPlaceholderSurvives(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "jwt:\n  secret: ${JWT_SECRET}\n")
	writeFile(t, dir, "secrets.env", "OTHER=1\n")

	cfg, err := config.LoadConfig("local", dir)
	require.NoError(t, err)

	jwt := cfg["jwt"].(map[string]interface{})
	assert.Equal(t, "${JWT_SECRET}", jwt["secret"])
}

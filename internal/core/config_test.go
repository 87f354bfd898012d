package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfigYAML = `
identity:
  username: "bot@example.com"
  extension: "101"
  password: "secret"
  app_key: "key"
  app_secret: "app-secret"
messages:
  size_limit: 1000
  rate_interval: "5s"
reconnect:
  base_delay: "2s"
  max_delay: "30s"
logging:
  level: "debug"
`

func TestLoadConfig_Valid(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "bot@example.com", config.Identity.Username)
	assert.Equal(t, "101", config.Identity.Extension)
	assert.Equal(t, DefaultServer, config.Identity.Server, "server defaults when omitted")
	assert.Equal(t, 1000, config.Messages.SizeLimit)
	assert.Equal(t, 5*time.Second, config.Messages.RateIntervalDuration())
	assert.Equal(t, 2*time.Second, config.Reconnect.BaseDelayDuration())
	assert.Equal(t, 30*time.Second, config.Reconnect.MaxDelayDuration())
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, `
identity:
  username: "bot@example.com"
  password: "secret"
  app_key: "key"
  app_secret: "app-secret"
`))
	require.NoError(t, err)

	assert.Equal(t, 50000, config.Messages.SizeLimit)
	assert.Equal(t, 3*time.Second, config.Messages.RateIntervalDuration())
	assert.Equal(t, 1*time.Second, config.Reconnect.BaseDelayDuration())
	assert.Equal(t, 60*time.Second, config.Reconnect.MaxDelayDuration())
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, []string{"No new updates found."}, config.Logging.SuppressMessages,
		"the SDK's steady-state chatter is suppressed by default")
}

func TestLoadConfig_MissingRequiredFields(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
identity:
  username: "bot@example.com"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity.password")
	assert.Contains(t, err.Error(), "identity.app_key")
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("GLIPBOT_TEST_PASSWORD", "from-env")

	config, err := LoadConfig(writeConfig(t, `
identity:
  username: "bot@example.com"
  password: "${GLIPBOT_TEST_PASSWORD}"
  app_key: "key"
  app_secret: "app-secret"
`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", config.Identity.Password)
}

func TestLoadConfig_MissingEnvVariable(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
identity:
  username: "bot@example.com"
  password: "${GLIPBOT_TEST_UNSET_VAR}"
  app_key: "key"
  app_secret: "app-secret"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GLIPBOT_TEST_UNSET_VAR")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "identity: [not: valid"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadConfig_InvalidRateInterval(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
identity:
  username: "bot@example.com"
  password: "secret"
  app_key: "key"
  app_secret: "app-secret"
messages:
  rate_interval: "soon"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_interval")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestDurationHelpers_FallBackOnGarbage(t *testing.T) {
	messages := MessagesConfig{RateInterval: "garbage"}
	assert.Equal(t, 3*time.Second, messages.RateIntervalDuration())

	reconnect := ReconnectConfig{BaseDelay: "-5s", MaxDelay: ""}
	assert.Equal(t, 1*time.Second, reconnect.BaseDelayDuration())
	assert.Equal(t, 60*time.Second, reconnect.MaxDelayDuration())
}

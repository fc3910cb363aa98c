package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1", cfg.Transport.Host)
	assert.Zero(t, cfg.Transport.RegistrationPort)
	assert.Equal(t, 5*time.Second, cfg.Replication.ShutdownTimeout)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Transport.WebAdminPort = 70000
	assert.ErrorContains(t, cfg.Validate(), "web admin port")

	cfg = Default()
	cfg.Replication.PeerBuffer = -1
	assert.Error(t, cfg.Validate())
}

func TestStatic(t *testing.T) {
	t.Parallel()

	original := Default()
	original.ServerName = "static"

	loaded, err := Static(original).Load()
	require.NoError(t, err)
	assert.Equal(t, "static", loaded.ServerName)

	loaded.ServerName = "changed"
	assert.Equal(t, "static", original.ServerName)

	_, err = Static(nil).Load()
	assert.Error(t, err)

	invalid := Default()
	invalid.Transport.InterestPort = -1
	_, err = Static(invalid).Load()
	assert.Error(t, err)
}

func TestEnvSource_Defaults(t *testing.T) {
	for _, name := range []string{
		"EUREKA2_SERVER_NAME",
		"EUREKA2_TRANSPORT_HOST",
		"EUREKA2_TRANSPORT_REGISTRATION_PORT",
	} {
		unsetenv(t, name)
	}

	cfg, err := DefaultSource().Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "env:EUREKA2", DefaultSource().Name())
}

func TestEnvSource_Decode(t *testing.T) {
	t.Setenv("EUREKA2_SERVER_NAME", "from-env")
	t.Setenv("EUREKA2_TRANSPORT_REGISTRATION_PORT", "7001")
	t.Setenv("EUREKA2_REPLICATION_SHUTDOWN_TIMEOUT", "2s")

	cfg, err := DefaultSource().Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ServerName)
	assert.Equal(t, 7001, cfg.Transport.RegistrationPort)
	assert.Equal(t, 2*time.Second, cfg.Replication.ShutdownTimeout)
	assert.Equal(t, "127.0.0.1", cfg.Transport.Host)
}

func TestEnvSource_InvalidValue(t *testing.T) {
	t.Setenv("EUREKA2_TRANSPORT_REGISTRATION_PORT", "not-a-port")

	cfg, err := DefaultSource().Load()
	assert.ErrorContains(t, err, "decode environment")
	assert.Nil(t, cfg)
}

func TestEnvSource_OutOfRange(t *testing.T) {
	t.Setenv("EUREKA2_TRANSPORT_INTEREST_PORT", "99999")

	_, err := DefaultSource().Load()
	assert.ErrorContains(t, err, "interest port")
}

func TestEnvSource_DotenvFiles(t *testing.T) {
	unsetenv(t, "EUREKA2_TRANSPORT_INTEREST_PORT")
	t.Setenv("EUREKA2_SERVER_NAME", "from-env")

	file := filepath.Join(t.TempDir(), "write.env")
	content := "EUREKA2_TRANSPORT_INTEREST_PORT=7101\nEUREKA2_SERVER_NAME=from-file\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	cfg, err := DefaultSource(file).Load()
	require.NoError(t, err)
	assert.Equal(t, 7101, cfg.Transport.InterestPort)
	assert.Equal(t, "from-env", cfg.ServerName, "environment wins over dotenv files")
}

func TestEnvSource_MissingDotenvFile(t *testing.T) {
	t.Parallel()

	_, err := DefaultSource(filepath.Join(t.TempDir(), "missing.env")).Load()
	assert.Error(t, err)
}

// unsetenv removes name for the duration of the test and restores it after.
func unsetenv(t *testing.T, name string) {
	t.Helper()

	t.Setenv(name, "")
	require.NoError(t, os.Unsetenv(name))
}

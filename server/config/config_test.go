package config

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) Manager {
	cmd := &cobra.Command{}
	// the root command normally declares this flag
	cmd.PersistentFlags().String("config", "", "Path to a configuration file")
	return NewManager(cmd)
}

func TestConfigDefaults(t *testing.T) {
	man := newTestManager(t)
	cfg := man.LoadConfig()

	assert.Equal(t, "localhost:3306", cfg.Mysql.Address)
	assert.Equal(t, "tcp", cfg.Mysql.Protocol)
	assert.Equal(t, 15, cfg.Mysql.ConnectRetryAttempts)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address)
	assert.Equal(t, 1*time.Second, cfg.App.ActivePollInterval)
	assert.Equal(t, 10*time.Second, cfg.App.AdminPollInterval)
	assert.Equal(t, 50, cfg.App.CancellationPenalty)
	assert.Equal(t, 5, cfg.App.OtpVerifyBurst)
	assert.Equal(t, 10*time.Second, cfg.Worker.ProcessInterval)
	assert.Empty(t, cfg.Redis.Address)
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("MISTRI_MYSQL_ADDRESS", "db:3306")
	t.Setenv("MISTRI_APP_CANCELLATION_PENALTY", "75")
	t.Setenv("MISTRI_APP_ACTIVE_POLL_INTERVAL", "2s")

	man := newTestManager(t)
	cfg := man.LoadConfig()

	assert.Equal(t, "db:3306", cfg.Mysql.Address)
	assert.Equal(t, 75, cfg.App.CancellationPenalty)
	assert.Equal(t, 2*time.Second, cfg.App.ActivePollInterval)
}

func TestEnvNameFromConfigKey(t *testing.T) {
	require.Equal(t, "MISTRI_MYSQL_ADDRESS", envNameFromConfigKey("mysql.address"))
	require.Equal(t, "MISTRI_APP_ADMIN_POLL_INTERVAL", envNameFromConfigKey("app.admin_poll_interval"))
}

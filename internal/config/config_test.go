package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SCHEDULER_INTERVAL", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, 100, cfg.Scheduler.BatchSize)
	assert.Equal(t, "inventory:allocations", cfg.Redis.Channel)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory ok", Config{Storage: StorageConfig{Driver: DriverMemory}}, false},
		{"postgres needs url", Config{Storage: StorageConfig{Driver: DriverPostgres}}, true},
		{"postgres with url", Config{Storage: StorageConfig{Driver: DriverPostgres}, Database: DatabaseConfig{URL: "postgres://x"}}, false},
		{"unknown driver", Config{Storage: StorageConfig{Driver: "sqlite"}}, true},
		{"scheduler interval", Config{
			Storage:   StorageConfig{Driver: DriverMemory},
			Scheduler: SchedulerConfig{Enabled: true},
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

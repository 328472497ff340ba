package cacheupdater

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/cacheupdater/pkg/refresh"
	"github.com/grafana/cacheupdater/pkg/remotecache"
)

func TestNewSettingsDefaults(t *testing.T) {
	s := NewSettings()
	assert.Equal(t, "cache_updater", s.KeyPrefix)
	assert.Equal(t, "cache_index", s.IndexPrefix)
	assert.Equal(t, "cache_updated_time", s.UpdatedPrefix)
	assert.Equal(t, "cache_refresh_time", s.RefreshPrefix)
	assert.Equal(t, "US/Eastern", s.DefaultTimezone)
	assert.Equal(t, int64(3600), s.DefaultTimeoutTTL)
	assert.Nil(t, s.DefaultTimeoutRefresh)
	assert.Equal(t, refresh.All, s.DefaultRefreshStrategy)
	assert.False(t, s.Disabled)
}

func TestSettingsEnvOverride(t *testing.T) {
	t.Setenv("CACHE_UPDATER_KEY_PREFIX", "custom_prefix")
	t.Setenv("CACHE_UPDATER_DISABLED", "yes")
	t.Setenv("CACHE_UPDATER_DEFAULT_TIMEOUT_TTL", "120")

	s := NewSettings()
	assert.Equal(t, "custom_prefix", s.KeyPrefix)
	assert.True(t, s.Disabled)
	assert.Equal(t, int64(120), s.DefaultTimeoutTTL)
}

func TestSetupRequiresClient(t *testing.T) {
	s := NewSettings()
	err := s.Setup(nil)
	assert.ErrorIs(t, err, ErrMissingClient)
}

func TestSetupAppliesOptions(t *testing.T) {
	s := NewSettings()
	err := s.Setup(remotecache.NewMemoryClient(),
		WithKeyPrefix("override"),
		WithDefaultTimeoutRefresh(30*time.Second),
		WithDisabled(true),
	)
	require.NoError(t, err)
	assert.Equal(t, "override", s.KeyPrefix)
	require.NotNil(t, s.DefaultTimeoutRefresh)
	assert.Equal(t, int64(30), *s.DefaultTimeoutRefresh)
	assert.True(t, s.Disabled)
}

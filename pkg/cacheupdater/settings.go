package cacheupdater

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"

	"github.com/grafana/cacheupdater/pkg/refresh"
	"github.com/grafana/cacheupdater/pkg/remotecache"
)

const (
	oneMinute = 60
	oneHour   = 60 * oneMinute
)

// Settings holds process-wide defaults, mirroring CacheSettings in
// settings.py: compile-time defaults overridable by CACHE_UPDATER_<NAME>
// environment variables, and again at Setup time.
type Settings struct {
	KeyPrefix     string
	IndexPrefix   string
	RefreshPrefix string
	UpdatedPrefix string

	DefaultTimezone        string
	DefaultTimeoutTTL      int64 // seconds
	DefaultTimeoutRefresh  *int64
	DefaultRefreshStrategy refresh.Strategy
	Disabled               bool

	client remotecache.Client
	logger log.Logger

	registryMu       sync.Mutex
	registeredNames  map[string]bool
}

// NewSettings returns Settings populated from compile-time defaults then
// CACHE_UPDATER_<NAME> environment overrides, exactly as CacheSettings's
// constructor walks DEFAULT_SETTINGS.
func NewSettings() *Settings {
	s := &Settings{
		KeyPrefix:              "cache_updater",
		IndexPrefix:            "cache_index",
		RefreshPrefix:          "cache_refresh_time",
		UpdatedPrefix:          "cache_updated_time",
		DefaultTimezone:        "US/Eastern",
		DefaultTimeoutTTL:      oneHour,
		DefaultTimeoutRefresh:  nil,
		DefaultRefreshStrategy: refresh.All,
		registeredNames:        map[string]bool{},
	}
	s.applyEnv()
	return s
}

func (s *Settings) applyEnv() {
	if v, ok := lookupEnv("KEY_PREFIX"); ok {
		s.KeyPrefix = v
	}
	if v, ok := lookupEnv("INDEX_PREFIX"); ok {
		s.IndexPrefix = v
	}
	if v, ok := lookupEnv("REFRESH_PREFIX"); ok {
		s.RefreshPrefix = v
	}
	if v, ok := lookupEnv("UPDATED_PREFIX"); ok {
		s.UpdatedPrefix = v
	}
	if v, ok := lookupEnv("DEFAULT_TIMEZONE"); ok {
		s.DefaultTimezone = v
	}
	if v, ok := lookupEnv("DEFAULT_TIMEOUT_TTL"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.DefaultTimeoutTTL = n
		}
	}
	if v, ok := lookupEnv("DEFAULT_TIMEOUT_REFRESH"); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.DefaultTimeoutRefresh = &n
		}
	}
	if v, ok := lookupEnv("DEFAULT_REFRESH_STRATEGY"); ok {
		s.DefaultRefreshStrategy = refresh.Strategy(v)
	}
	if v, ok := lookupEnv("DISABLED"); ok {
		s.Disabled = boolValue(v)
	}
}

func lookupEnv(name string) (string, bool) {
	return os.LookupEnv("CACHE_UPDATER_" + name)
}

func boolValue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "t", "yes", "y", "1":
		return true
	default:
		return false
	}
}

// Option customizes Settings at Setup time, the Go analogue of setup_client's
// **kwargs.
type Option func(*Settings)

// WithKeyPrefix overrides KeyPrefix.
func WithKeyPrefix(prefix string) Option { return func(s *Settings) { s.KeyPrefix = prefix } }

// WithIndexPrefix overrides IndexPrefix.
func WithIndexPrefix(prefix string) Option { return func(s *Settings) { s.IndexPrefix = prefix } }

// WithDefaultTimezone overrides DefaultTimezone.
func WithDefaultTimezone(tz string) Option { return func(s *Settings) { s.DefaultTimezone = tz } }

// WithDefaultTimeoutTTL overrides DefaultTimeoutTTL.
func WithDefaultTimeoutTTL(d time.Duration) Option {
	return func(s *Settings) { s.DefaultTimeoutTTL = int64(d.Seconds()) }
}

// WithDefaultTimeoutRefresh overrides DefaultTimeoutRefresh.
func WithDefaultTimeoutRefresh(d time.Duration) Option {
	return func(s *Settings) {
		secs := int64(d.Seconds())
		s.DefaultTimeoutRefresh = &secs
	}
}

// WithDefaultRefreshStrategy overrides DefaultRefreshStrategy.
func WithDefaultRefreshStrategy(strategy refresh.Strategy) Option {
	return func(s *Settings) { s.DefaultRefreshStrategy = strategy }
}

// WithDisabled overrides Disabled: when true, Registration.Call bypasses
// the cache entirely and always computes (§6, resolving the source's
// otherwise-inert DISABLED flag per DESIGN.md). GetTimeseries,
// GetLatestTimeseries and ClearCache do not consult Disabled and still use
// the store.
func WithDisabled(disabled bool) Option { return func(s *Settings) { s.Disabled = disabled } }

// WithLogger overrides the logger used by registrations and the task
// runner.
func WithLogger(l log.Logger) Option { return func(s *Settings) { s.logger = l } }

// Setup installs client as the store used by every subsequent Register call
// and applies opts, mirroring CacheSettings.setup.
func (s *Settings) Setup(client remotecache.Client, opts ...Option) error {
	if client == nil {
		return ErrMissingClient
	}
	s.client = client
	for _, opt := range opts {
		opt(s)
	}
	return nil
}

package cacheupdater

import (
	"context"
	"time"

	"github.com/grafana/cacheupdater/pkg/bucket"
	"github.com/grafana/cacheupdater/pkg/refresh"
)

// Args is the bound argument mapping passed to a registered computation,
// the Go analogue of the source's dynamic **kwargs call_args. Using a
// map[string]any rather than generated per-function structs keeps
// registration a single runtime call (Register(settings, opts, fn)) like
// the source's decorator, instead of requiring a generated type per
// computation; the explicit Options.ArgNames schema below replaces the
// source's inspect.getfullargspec introspection that a static language
// cannot perform at runtime.
type Args map[string]any

// Func is a registered computation: it receives the bound arguments
// (timestamp/timezone already normalized when a bucket is configured) and
// returns a cacheable value.
type Func func(ctx context.Context, args Args) (any, error)

// TZLookupFunc resolves a timezone from a subset of the call's arguments,
// the analogue of the source's tz_lookup. May be synchronous or return
// immediately; the engine dispatches it without blocking the caller
// differently either way since Go has no implicit async/sync distinction.
type TZLookupFunc func(args Args) (*time.Location, error)

// DefaultTimestampFunc produces "now" for the purposes of default timestamp
// resolution and the `latest` refresh strategy's current-bucket check.
type DefaultTimestampFunc func() time.Time

// Options configures one registration (C8), the struct form of the
// source's async_cache_updater(**kwargs) decorator arguments.
type Options struct {
	// ArgNames is the ordered parameter schema for Func's Args, replacing
	// the source's argument introspection (spec.md §9 Design Notes).
	ArgNames []string

	// LookupName is the computation's name used in the cache key; it is
	// required and must match ^[-.\w]+$. Register does not derive a name
	// from Func.
	LookupName string
	// ModuleName is the logical module/namespace the computation belongs
	// to; combined with LookupName in the cache key.
	ModuleName string

	// BucketRule selects time-bucketing; nil disables bucketing (pure
	// memoization).
	BucketRule *bucket.Rule
	// TimestampArgName/TimezoneArgName name the Args entries carrying the
	// timestamp/timezone; required in ArgNames when BucketRule is set.
	TimestampArgName string
	TimezoneArgName  string

	// DefaultTimestamp resolves "now" when the timestamp argument is absent
	// or nil. Defaults to time.Now if unset.
	DefaultTimestamp DefaultTimestampFunc
	// DefaultTimezone resolves the fallback zone name when the timezone
	// argument is absent and TZLookup is nil. Defaults to
	// Settings.DefaultTimezone.
	DefaultTimezone string
	// TZLookup resolves a timezone dynamically from a subset of Args.
	TZLookup TZLookupFunc
	// TZLookupArgNames names the Args entries TZLookup needs; each must
	// also appear in ArgNames.
	TZLookupArgNames []string

	// IgnoreArgs lists additional Args entries excluded from the cache-key
	// argument join, beyond the timestamp/timezone names (the `ignore_args`
	// extension noted in spec.md §9 and SPEC_FULL.md §4).
	IgnoreArgs []string

	RefreshStrategy refresh.Strategy
	TimeoutTTL      *time.Duration
	TimeoutRefresh  *time.Duration
}

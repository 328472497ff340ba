package cacheupdater

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/grafana/cacheupdater/pkg/bucket"
	"github.com/grafana/cacheupdater/pkg/keycodec"
	"github.com/grafana/cacheupdater/pkg/refresh"
	"github.com/grafana/cacheupdater/pkg/remotecache"
)

var lookupNameRe = regexp.MustCompile(`^[-.\w]+$`)

// CallOptions are the per-call control keywords (spec.md §6): force_cache,
// force_refresh, cache_ttl.
type CallOptions struct {
	ForceCache   bool
	ForceRefresh bool
	CacheTTL     *time.Duration
}

// TimeseriesPoint pairs a bucket's start instant with its (possibly
// freshly computed) value.
type TimeseriesPoint struct {
	BucketStart time.Time
	Value       any
}

// Registration is the wrapped computation returned by Register (C8): a
// struct exposing Call/GetTimeseries/GetLatestTimeseries/ClearCache,
// replacing the source's attribute-laden decorated callable per spec.md §9.
type Registration struct {
	settings *Settings
	opts     Options
	fn       Func
	adapter  *remotecache.Adapter
	runner   *TaskRunner

	module string
	name   string
}

// Register validates opts against fn and wraps it into a Registration
// (C8), mirroring check_valid_func's validation and async_cache_updater's
// closures. Validation failures are ErrInvalidRegistration; Settings
// without a client yields ErrMissingClient.
func Register(settings *Settings, opts Options, fn Func) (*Registration, error) {
	if settings == nil {
		return nil, errors.Wrap(ErrInvalidRegistration, "settings must not be nil")
	}
	if settings.client == nil {
		return nil, ErrMissingClient
	}
	if fn == nil {
		return nil, errors.Wrap(ErrInvalidRegistration, "fn must not be nil")
	}

	if opts.LookupName != "" && !lookupNameRe.MatchString(opts.LookupName) {
		return nil, errors.Wrapf(ErrInvalidRegistration, "lookup_name %q contains invalid characters", opts.LookupName)
	}

	name := opts.LookupName
	if name == "" {
		return nil, errors.Wrap(ErrInvalidRegistration, "lookup_name is required")
	}
	module := opts.ModuleName

	if opts.BucketRule != nil {
		if !contains(opts.ArgNames, opts.TimestampArgName) || opts.TimestampArgName == "" {
			return nil, errors.Wrapf(ErrInvalidRegistration, "bucketed computation requires timestamp argument %q in ArgNames", opts.TimestampArgName)
		}
		if !contains(opts.ArgNames, opts.TimezoneArgName) || opts.TimezoneArgName == "" {
			return nil, errors.Wrapf(ErrInvalidRegistration, "bucketed computation requires timezone argument %q in ArgNames", opts.TimezoneArgName)
		}
		for _, arg := range opts.TZLookupArgNames {
			if !contains(opts.ArgNames, arg) {
				return nil, errors.Wrapf(ErrInvalidRegistration, "tz_lookup requires argument %q present in ArgNames", arg)
			}
		}
	}

	regKey := module + ":" + name
	settings.registryMu.Lock()
	if settings.registeredNames[regKey] {
		settings.registryMu.Unlock()
		return nil, errors.Wrapf(ErrInvalidRegistration, "computation %q is already registered", regKey)
	}
	settings.registeredNames[regKey] = true
	settings.registryMu.Unlock()

	if opts.DefaultTimestamp == nil {
		opts.DefaultTimestamp = func() time.Time { return time.Now() }
	}
	if opts.DefaultTimezone == "" {
		opts.DefaultTimezone = settings.DefaultTimezone
	}
	if opts.RefreshStrategy == "" {
		opts.RefreshStrategy = settings.DefaultRefreshStrategy
	}
	if opts.TimeoutTTL == nil {
		d := time.Duration(settings.DefaultTimeoutTTL) * time.Second
		opts.TimeoutTTL = &d
	}
	if opts.TimeoutRefresh == nil && settings.DefaultTimeoutRefresh != nil {
		d := time.Duration(*settings.DefaultTimeoutRefresh) * time.Second
		opts.TimeoutRefresh = &d
	}

	logger := settings.logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &Registration{
		settings: settings,
		opts:     opts,
		fn:       fn,
		adapter:  remotecache.NewAdapter(settings.client, logger, nil),
		runner:   NewTaskRunner(logger),
		module:   module,
		name:     name,
	}, nil
}

// wrapBucketErr translates a pkg/bucket sentinel error into this package's
// own sentinel (spec.md §7's error kinds), so callers checking with
// errors.Is only ever need to know about the cacheupdater package.
func wrapBucketErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bucket.ErrBucketNotDetected):
		return errors.Wrap(ErrBucketNotDetected, err.Error())
	case errors.Is(err, bucket.ErrInvalidDelta):
		return errors.Wrap(ErrInvalidDelta, err.Error())
	case errors.Is(err, bucket.ErrInvalidTimestamp):
		return errors.Wrap(ErrInvalidTimestamp, err.Error())
	default:
		return err
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func (r *Registration) prefixes() keycodec.Prefixes {
	return keycodec.Prefixes{
		Key:     r.settings.KeyPrefix,
		Index:   r.settings.IndexPrefix,
		Updated: r.settings.UpdatedPrefix,
		Refresh: r.settings.RefreshPrefix,
	}
}

func (r *Registration) indexKey() string {
	return keycodec.IndexKey(r.prefixes(), r.module, r.name)
}

// normalize returns a copy of args with the timestamp/timezone entries
// resolved (call_args normalization from decorators.py's get_call_args),
// dropping any Args entries not named in ArgNames; args itself is not
// modified.
func (r *Registration) normalize(args Args) (Args, *time.Location, time.Time, error) {
	normalized := make(Args, len(r.opts.ArgNames))
	for _, name := range r.opts.ArgNames {
		if v, ok := args[name]; ok {
			normalized[name] = v
		}
	}

	if r.opts.BucketRule == nil {
		return normalized, nil, time.Time{}, nil
	}

	tz, err := r.resolveTimezone(normalized)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	normalized[r.opts.TimezoneArgName] = tz

	rawTS := normalized[r.opts.TimestampArgName]
	if rawTS == nil {
		rawTS = r.opts.DefaultTimestamp()
	}
	if fn, ok := rawTS.(func() time.Time); ok {
		rawTS = fn()
	}
	ts, err := bucket.ParseTimestamp(rawTS, tz)
	if err != nil {
		return nil, nil, time.Time{}, errors.Wrapf(ErrInvalidTimestamp, "%v", err)
	}
	normalized[r.opts.TimestampArgName] = ts

	return normalized, tz, ts, nil
}

func (r *Registration) resolveTimezone(args Args) (*time.Location, error) {
	raw := args[r.opts.TimezoneArgName]
	if raw == nil {
		name := r.opts.DefaultTimezone
		if r.opts.TZLookup != nil {
			lookupArgs := make(Args, len(r.opts.TZLookupArgNames))
			for _, a := range r.opts.TZLookupArgNames {
				lookupArgs[a] = args[a]
			}
			loc, err := r.opts.TZLookup(lookupArgs)
			if err != nil {
				return nil, err
			}
			return loc, nil
		}
		return time.LoadLocation(name)
	}
	switch tz := raw.(type) {
	case *time.Location:
		return tz, nil
	case string:
		return time.LoadLocation(tz)
	default:
		return nil, errors.Wrapf(ErrInvalidTimestamp, "unsupported timezone argument type %T", raw)
	}
}

func (r *Registration) cacheKey(args Args, ts time.Time, tz *time.Location) string {
	argList := make([]string, 0, len(r.opts.ArgNames))
	for _, name := range r.opts.ArgNames {
		if name == r.opts.TimestampArgName || name == r.opts.TimezoneArgName || contains(r.opts.IgnoreArgs, name) {
			continue
		}
		argList = append(argList, fmt.Sprint(args[name]))
	}

	bucketLabel := ""
	if r.opts.BucketRule != nil {
		bucketLabel = r.opts.BucketRule.Label(ts, tz)
	}
	return keycodec.CacheKey(r.prefixes(), r.module, r.name, argList, bucketLabel)
}

// Call executes the single-call path (C6): serve from cache when present
// (scheduling a background refresh if the policy calls for it), else
// compute synchronously and write through.
func (r *Registration) Call(ctx context.Context, args Args, callOpts CallOptions) (any, error) {
	if r.settings.Disabled {
		return r.fn(ctx, args)
	}

	normalized, tz, ts, err := r.normalize(args)
	if err != nil {
		return nil, err
	}

	cacheKey := r.cacheKey(normalized, ts, tz)
	ttl := r.ttlFor(callOpts.CacheTTL)

	if !callOpts.ForceCache {
		value, found, err := remotecache.Get[any](ctx, r.adapter, cacheKey)
		if err != nil {
			return nil, errors.Wrap(ErrStoreRead, err.Error())
		}
		if found {
			shouldRefresh, err := r.shouldRefresh(ctx, normalized, cacheKey, tz, ts, nil, nil)
			if err != nil {
				return nil, err
			}
			if callOpts.ForceRefresh || shouldRefresh {
				r.scheduleRefresh(normalized, cacheKey, ttl)
			}
			return value, nil
		}
	}

	return r.runAndCache(ctx, normalized, cacheKey, ttl)
}

func (r *Registration) ttlFor(override *time.Duration) time.Duration {
	if override != nil {
		return *override
	}
	return *r.opts.TimeoutTTL
}

func (r *Registration) runAndCache(ctx context.Context, args Args, cacheKey string, ttl time.Duration) (any, error) {
	output, err := r.fn(ctx, args)
	if err != nil {
		return nil, err
	}
	r.saveToCache(ctx, output, cacheKey, ttl)
	return output, nil
}

// saveToCache writes {value, updated, refresh} together (the lifecycle
// spec.md §3 calls out) and updates the index. Store write failures are
// logged and swallowed (§7); they never fail the foreground call.
func (r *Registration) saveToCache(ctx context.Context, output any, cacheKey string, ttl time.Duration) {
	now := time.Now()
	values := map[string]any{cacheKey: output}
	values[keycodec.UpdatedKey(r.prefixes(), cacheKey)] = now

	if r.opts.TimeoutRefresh != nil {
		refreshAt := now.Add(*r.opts.TimeoutRefresh).Unix()
		values[keycodec.RefreshKey(r.prefixes(), cacheKey)] = refreshAt
	}

	r.adapter.SetMany(ctx, values, int64(ttl.Seconds()))
	r.adapter.UpdateIndex(ctx, cacheKey, r.indexKey(), int64(ttl.Seconds()), float64(now.Unix()))
	level.Info(r.loggerOrNop()).Log("msg", "saved to cache", "cache_key", cacheKey)
}

func (r *Registration) loggerOrNop() log.Logger {
	if r.settings.logger == nil {
		return log.NewNopLogger()
	}
	return r.settings.logger
}

func (r *Registration) scheduleRefresh(args Args, cacheKey string, ttl time.Duration) {
	level.Info(r.loggerOrNop()).Log("msg", "scheduling background refresh", "cache_key", cacheKey)
	r.runner.Spawn(cacheKey, func(ctx context.Context) error {
		_, err := r.runAndCache(ctx, args, cacheKey, ttl)
		return err
	})
}

func (r *Registration) shouldRefresh(ctx context.Context, args Args, cacheKey string, tz *time.Location, ts time.Time, knownRefreshAt *int64, knownUpdatedAt *time.Time) (bool, error) {
	if r.opts.TimeoutRefresh == nil {
		return false, nil
	}

	in := refresh.Input{
		TimeoutRefresh:   r.opts.TimeoutRefresh,
		Strategy:         r.opts.RefreshStrategy,
		Rule:             r.opts.BucketRule,
		DT:               ts,
		TZ:               tz,
		DefaultTimestamp: r.opts.DefaultTimestamp,
		FetchRefreshAt: func() (*int64, error) {
			v, found, err := remotecache.Get[int64](ctx, r.adapter, keycodec.RefreshKey(r.prefixes(), cacheKey))
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, nil
			}
			return &v, nil
		},
		FetchUpdatedAt: func() (*time.Time, error) {
			v, found, err := remotecache.Get[time.Time](ctx, r.adapter, keycodec.UpdatedKey(r.prefixes(), cacheKey))
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, nil
			}
			return &v, nil
		},
	}
	if knownRefreshAt != nil {
		in.RefreshAtKnown = true
		in.RefreshAt = knownRefreshAt
	}
	if knownUpdatedAt != nil {
		in.UpdatedAtKnown = true
		in.UpdatedAt = knownUpdatedAt
	}
	if r.opts.BucketRule == nil {
		in.Strategy = refresh.All
	}
	should, err := refresh.ShouldRefresh(in)
	if err != nil {
		return false, wrapBucketErr(err)
	}
	return should, nil
}

// GetTimeseries enumerates every bucket in [start, end] and runs the bulk
// retrieval protocol (spec.md §4.6).
func (r *Registration) GetTimeseries(ctx context.Context, start, end time.Time, args Args) ([]TimeseriesPoint, error) {
	normalized, tz, _, err := r.normalize(args)
	if err != nil {
		return nil, err
	}
	ranges, err := bucket.FindBucketRanges(r.opts.BucketRule, start, end, tz)
	if err != nil {
		return nil, wrapBucketErr(err)
	}
	starts := make([]time.Time, len(ranges))
	for i, rg := range ranges {
		starts[i] = rg.Start
	}
	return r.retrieveManyBuckets(ctx, normalized, tz, starts)
}

// GetLatestTimeseries enumerates the numBuckets most recent buckets ending
// at the call's resolved timestamp and runs the bulk retrieval protocol.
func (r *Registration) GetLatestTimeseries(ctx context.Context, numBuckets int, args Args) ([]TimeseriesPoint, error) {
	normalized, tz, ts, err := r.normalize(args)
	if err != nil {
		return nil, err
	}
	ranges, err := bucket.LatestBucketRanges(r.opts.BucketRule, ts, tz, numBuckets)
	if err != nil {
		return nil, wrapBucketErr(err)
	}
	starts := make([]time.Time, len(ranges))
	for i, rg := range ranges {
		starts[i] = rg.Start
	}
	return r.retrieveManyBuckets(ctx, normalized, tz, starts)
}

func (r *Registration) retrieveManyBuckets(ctx context.Context, args Args, tz *time.Location, starts []time.Time) ([]TimeseriesPoint, error) {
	series := make([]string, len(starts))
	byKey := make(map[string]time.Time, len(starts))
	for i, start := range starts {
		key := r.cacheKey(args, start, tz)
		series[i] = key
		byKey[key] = start
	}

	found, err := r.adapter.GetMany(ctx, series)
	if err != nil {
		return nil, errors.Wrap(ErrStoreRead, err.Error())
	}

	values := make(map[string]any, len(series))
	var missing []string
	for _, key := range series {
		if _, ok := found[key]; ok {
			continue
		}
		missing = append(missing, key)
	}

	ttl := *r.opts.TimeoutTTL
	for _, key := range missing {
		bucketArgs := cloneArgs(args)
		bucketArgs[r.opts.TimestampArgName] = byKey[key]
		value, err := r.runAndCache(ctx, bucketArgs, key, ttl)
		if err != nil {
			return nil, err
		}
		values[key] = value
	}
	for key, raw := range found {
		var v any
		if err := remotecache.Decode(raw, &v); err != nil {
			return nil, err
		}
		values[key] = v
	}

	if err := r.refreshFoundBuckets(ctx, args, tz, byKey, series, found, ttl); err != nil {
		return nil, err
	}

	points := make([]TimeseriesPoint, len(series))
	for i, key := range series {
		points[i] = TimeseriesPoint{BucketStart: byKey[key], Value: values[key]}
	}
	return points, nil
}

// refreshFoundBuckets resolves refresh-key and updated-key for every
// present bucket in one MGET (concatenated then split, per spec.md §4.6
// step 4) and schedules background refreshes where the policy calls for it.
func (r *Registration) refreshFoundBuckets(ctx context.Context, args Args, tz *time.Location, byKey map[string]time.Time, series []string, found map[string][]byte, ttl time.Duration) error {
	var presentKeys []string
	for _, key := range series {
		if _, ok := found[key]; ok {
			presentKeys = append(presentKeys, key)
		}
	}
	if len(presentKeys) == 0 {
		return nil
	}

	refreshKeys := make([]string, len(presentKeys))
	updatedKeys := make([]string, len(presentKeys))
	for i, key := range presentKeys {
		refreshKeys[i] = keycodec.RefreshKey(r.prefixes(), key)
		updatedKeys[i] = keycodec.UpdatedKey(r.prefixes(), key)
	}
	combined := append(append([]string{}, refreshKeys...), updatedKeys...)
	results, err := r.adapter.GetMany(ctx, combined)
	if err != nil {
		return errors.Wrap(ErrStoreRead, err.Error())
	}

	for i, cacheKey := range presentKeys {
		var refreshAt *int64
		if raw, ok := results[refreshKeys[i]]; ok {
			var v int64
			if err := remotecache.Decode(raw, &v); err != nil {
				return err
			}
			refreshAt = &v
		}
		var updatedAt *time.Time
		if raw, ok := results[updatedKeys[i]]; ok {
			var v time.Time
			if err := remotecache.Decode(raw, &v); err != nil {
				return err
			}
			updatedAt = &v
		}

		bucketArgs := cloneArgs(args)
		ts := byKey[cacheKey]
		bucketArgs[r.opts.TimestampArgName] = ts

		should, err := r.shouldRefresh(ctx, bucketArgs, cacheKey, tz, ts, refreshAt, updatedAt)
		if err != nil {
			return err
		}
		if should {
			r.scheduleRefresh(bucketArgs, cacheKey, ttl)
		}
	}
	return nil
}

func cloneArgs(args Args) Args {
	out := make(Args, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}

// ClearCache deletes every cache key in [after, before] (in unix-seconds
// write-score terms) via the per-computation index, and removes those
// index entries.
func (r *Registration) ClearCache(ctx context.Context, before, after float64) error {
	return r.adapter.ClearIndex(ctx, r.indexKey(), before, after)
}

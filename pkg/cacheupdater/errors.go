package cacheupdater

import "github.com/pkg/errors"

// Sentinel error kinds (spec §7). Wrap with errors.Wrapf for context and
// unwrap with errors.Is.
var (
	// ErrMissingClient is returned when the store is used before Setup.
	// spec.md §7 also lists InvalidClient (a supplied client failing to
	// satisfy the store contract); that check has no runtime analogue
	// here because Setup's client parameter is typed remotecache.Client,
	// so an unsatisfying client is a compile error rather than a value
	// this package could ever observe.
	ErrMissingClient = errors.New("cacheupdater: no client configured; call Setup first")
	// ErrInvalidRegistration is returned by Register for bad options.
	ErrInvalidRegistration = errors.New("cacheupdater: invalid registration")
	// ErrInvalidTimestamp is returned when a timestamp argument cannot be
	// parsed or coerced.
	ErrInvalidTimestamp = errors.New("cacheupdater: invalid timestamp argument")
	// ErrInvalidDelta is returned when a bucket delta mixes calendar and
	// sub-day components.
	ErrInvalidDelta = errors.New("cacheupdater: invalid bucket delta")
	// ErrBucketNotDetected is returned when a custom bucket rule never
	// exhibits a label change within the probe bounds.
	ErrBucketNotDetected = errors.New("cacheupdater: could not detect bucket boundaries")
	// ErrStoreRead is returned when a read from the store fails; it
	// propagates to the caller, unlike write errors.
	ErrStoreRead = errors.New("cacheupdater: store read failed")
)

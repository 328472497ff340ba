package bucket

import (
	"fmt"
	"time"
)

// Registry resolves named bucket rules ("hourly", "daily", "weekly",
// "monthly") plus any custom rules registered at runtime, mirroring the
// source's BUCKET_LOOKUPS table and get_bucket() passthrough for callables.
type Registry struct {
	named map[string]*Rule
}

// NewRegistry returns a Registry pre-populated with the four named rules.
func NewRegistry() *Registry {
	r := &Registry{named: make(map[string]*Rule, 4)}
	for _, rule := range []*Rule{Hourly, Daily, Weekly, Monthly} {
		r.named[rule.Name] = rule
	}
	return r
}

// Register adds (or replaces) a named rule, making it resolvable by Lookup.
func (r *Registry) Register(name string, rule *Rule) {
	r.named[name] = rule
}

// Lookup resolves a bucket name to its Rule. An empty name means "no
// bucket" (pure memoization) and returns (nil, nil).
func (r *Registry) Lookup(name string) (*Rule, error) {
	if name == "" {
		return nil, nil
	}
	rule, ok := r.named[name]
	if !ok {
		return nil, fmt.Errorf("bucket: unknown bucket rule %q", name)
	}
	return rule, nil
}

// Range is a convenience wrapper around GetBucketRange for callers that
// already hold a Registry-resolved Rule.
func (r *Registry) Range(rule *Rule, dt time.Time, tz *time.Location) (Range, error) {
	return GetBucketRange(rule, dt, tz)
}

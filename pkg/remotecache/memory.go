package remotecache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryClient is an in-process Client implementation for tests; it has no
// relation to any production store and exists purely as a fake to stand in
// for a real Redis server, the same role testify's table-driven fixtures
// play elsewhere in the retrieval pack.
type MemoryClient struct {
	mu      sync.Mutex
	values  map[string][]byte
	expiry  map[string]time.Time
	sorted  map[string]map[string]float64
}

// NewMemoryClient returns an empty MemoryClient.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		values: map[string][]byte{},
		expiry: map[string]time.Time{},
		sorted: map[string]map[string]float64{},
	}
}

func (m *MemoryClient) expired(key string) bool {
	exp, ok := m.expiry[key]
	return ok && time.Now().After(exp)
}

func (m *MemoryClient) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expired(key) {
		delete(m.values, key)
		delete(m.expiry, key)
		return nil, false, nil
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryClient) Set(_ context.Context, key string, value []byte, ttl int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	if ttl > 0 {
		m.expiry[key] = time.Now().Add(time.Duration(ttl) * time.Second)
	} else {
		delete(m.expiry, key)
	}
	return nil
}

func (m *MemoryClient) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
		delete(m.expiry, k)
	}
	return nil
}

func (m *MemoryClient) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if m.expired(k) {
			delete(m.values, k)
			delete(m.expiry, k)
			continue
		}
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryClient) MSet(_ context.Context, values map[string][]byte, ttl int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
		if ttl > 0 {
			m.expiry[k] = time.Now().Add(time.Duration(ttl) * time.Second)
		} else {
			delete(m.expiry, k)
		}
	}
	return nil
}

func (m *MemoryClient) ZAdd(_ context.Context, key string, members map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sorted[key]
	if !ok {
		set = map[string]float64{}
		m.sorted[key] = set
	}
	for member, score := range members {
		set[member] = score
	}
	return nil
}

func (m *MemoryClient) ZRangeByScore(_ context.Context, key string, min, max float64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.sorted[key]
	members := make([]string, 0, len(set))
	for member, score := range set {
		if score >= min && score <= max {
			members = append(members, member)
		}
	}
	sort.Slice(members, func(i, j int) bool { return set[members[i]] < set[members[j]] })
	return members, nil
}

func (m *MemoryClient) ZRemRangeByScore(_ context.Context, key string, min, max float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.sorted[key]
	for member, score := range set {
		if score >= min && score <= max {
			delete(set, member)
		}
	}
	return nil
}

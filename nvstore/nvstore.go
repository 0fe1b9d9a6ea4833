// Package nvstore is the router's non-volatile key/value store, with
// buckets named for the Broadcast Distribution Table, learned
// destination-network routes, per-object Priority_Array command state
// and device configuration. The router writes only its identity
// (EnsureRouterID) to it; the BDT, routes and Priority_Array state are
// not persisted across a restart.
package nvstore

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Store is the persistence contract every backend (BoltDB-backed or
// in-memory) satisfies: namespaced key/value storage of JSON-encoded
// records, grouped into buckets by concern.
type Store interface {
	// Put writes value under key in bucket, creating the bucket if it
	// does not already exist.
	Put(bucket, key string, value []byte) error
	// Get reads the value stored under key in bucket. ok is false if
	// no such key exists.
	Get(bucket, key string) (value []byte, ok bool, err error)
	// Delete removes key from bucket. It is not an error if the key
	// does not exist.
	Delete(bucket, key string) error
	// ForEach calls fn once per key/value pair currently in bucket, in
	// an unspecified order. fn's return error aborts the iteration.
	ForEach(bucket string, fn func(key string, value []byte) error) error
	// Close releases any resources the store holds open.
	Close() error
}

// PutJSON marshals v and writes it under key in bucket.
func PutJSON(s Store, bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", bucket, key, err)
	}
	return s.Put(bucket, key, data)
}

// GetJSON reads the value under key in bucket and unmarshals it into
// v. ok is false if no such key exists.
func GetJSON(s Store, bucket, key string, v any) (ok bool, err error) {
	data, ok, err := s.Get(bucket, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

const (
	// BucketBDT holds Broadcast Distribution Table entries, keyed by
	// peer IP:port.
	BucketBDT = "bdt"
	// BucketRoutes holds learned destination-network routes, keyed by
	// the decimal DNET.
	BucketRoutes = "routes"
	// BucketPriorityArray holds per-object command-priority state,
	// keyed by "<object-type>:<instance>:<property>".
	BucketPriorityArray = "priority_array"
	// BucketDeviceConfig holds the local device's persisted
	// configuration; the only key written to it is the router identity
	// stored by EnsureRouterID.
	BucketDeviceConfig = "device_config"
)

const routerIDKey = "router_id"

// EnsureRouterID returns this router's persisted identity, a random
// UUID generated and stored on first run and read back on every
// subsequent one. It has no protocol meaning; it exists so log lines
// and metrics from the same router instance can be correlated across
// restarts without relying on an IP address that may change.
func EnsureRouterID(s Store) (string, error) {
	if v, ok, err := s.Get(BucketDeviceConfig, routerIDKey); err != nil {
		return "", fmt.Errorf("read router id: %w", err)
	} else if ok {
		return string(v), nil
	}
	id := uuid.NewString()
	if err := s.Put(BucketDeviceConfig, routerIDKey, []byte(id)); err != nil {
		return "", fmt.Errorf("persist router id: %w", err)
	}
	return id, nil
}

// MemStore is an in-memory Store, used in tests and for a router run
// with persistence disabled.
type MemStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{buckets: make(map[string]map[string][]byte)}
}

func (m *MemStore) Put(bucket, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[bucket]
	if !ok {
		b = make(map[string][]byte)
		m.buckets[bucket] = b
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	b[key] = cp
	return nil
}

func (m *MemStore) Get(bucket, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buckets[bucket]
	if !ok {
		return nil, false, nil
	}
	v, ok := b[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (m *MemStore) Delete(bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.buckets[bucket]; ok {
		delete(b, key)
	}
	return nil
}

func (m *MemStore) ForEach(bucket string, fn func(key string, value []byte) error) error {
	m.mu.RLock()
	b := m.buckets[bucket]
	snapshot := make(map[string][]byte, len(b))
	for k, v := range b {
		snapshot[k] = v
	}
	m.mu.RUnlock()

	for k, v := range snapshot {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemStore) Close() error { return nil }

package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"zenstay/internal/infra/persistence/memory"
	"zenstay/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// Store embeds the memory store and writes dirtied buckets to a KVStore.
type Store struct {
	*memory.Store
	kv     KVStore
	mu     sync.Mutex
	issues []memory.LoadIssue
}

// NewStore hydrates a store from kv. Missing or undecodable keys fall back to
// their seed values.
func NewStore(ctx context.Context, kv KVStore, engine *domain.RulesEngine) (*Store, error) {
	payloads := make(map[domain.Bucket][]byte)
	for _, bucket := range domain.Buckets() {
		data, err := kv.Get(ctx, string(bucket))
		if errors.Is(err, ErrKeyMissing) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", bucket, err)
		}
		payloads[bucket] = data
	}
	state, issues := memory.DecodeState(payloads)
	return &Store{Store: memory.NewStoreWithState(engine, state), kv: kv, issues: issues}, nil
}

// RunInTransaction applies fn, then writes the dirtied buckets in one atomic
// KV call. A write failure is reported as domain.PersistError.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, dirty, err := s.Store.RunTracked(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(ctx, dirty); err != nil {
		return res, domain.PersistError{Buckets: dirty, Err: err}
	}
	return res, nil
}

// Replace swaps the whole state and writes every bucket.
func (s *Store) Replace(ctx context.Context, state domain.State) error {
	s.ImportState(state)
	return s.persist(ctx, domain.Buckets())
}

// LoadIssues lists the buckets that fell back to seed values on open.
func (s *Store) LoadIssues() []memory.LoadIssue { return s.issues }

// Close closes the underlying KV client.
func (s *Store) Close() error { return s.kv.Close() }

func (s *Store) persist(ctx context.Context, buckets []domain.Bucket) error {
	if len(buckets) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	values := make(map[string][]byte, len(buckets))
	for _, bucket := range buckets {
		data, err := memory.EncodeBucket(snapshot, bucket)
		if err != nil {
			return err
		}
		values[string(bucket)] = data
	}
	if err := s.kv.SetAll(ctx, values); err != nil {
		return fmt.Errorf("set buckets: %w", err)
	}
	return nil
}

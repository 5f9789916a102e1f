// Package archive keeps point-in-time copies of the three persisted buckets
// in a blob store, one directory per snapshot.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"zenstay/internal/blob"
	"zenstay/internal/infra/persistence/memory"
	"zenstay/pkg/domain"
)

const (
	rootPrefix   = "archives/"
	manifestName = "manifest.json"
	idLayout     = "20060102T150405Z"
	contentType  = "application/json"
)

// ErrUnknownArchive is returned by Load for an id without a manifest.
var ErrUnknownArchive = errors.New("unknown archive")

// Manifest describes one archived snapshot.
type Manifest struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"createdAt"`
	Buckets   []domain.Bucket   `json:"buckets"`
	Digests   map[string]string `json:"digests"`
	Rooms     int               `json:"rooms"`
	Beds      int               `json:"beds"`
	Guests    int               `json:"guests"`
	Occupied  int               `json:"occupied"`
}

// Archiver writes and reads snapshots.
type Archiver struct {
	store blob.Store
	now   func() time.Time
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithClock overrides the time source used to name archives.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) {
		if now != nil {
			a.now = now
		}
	}
}

// New returns an Archiver writing to store.
func New(store blob.Store, opts ...Option) *Archiver {
	a := &Archiver{store: store, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func bucketKey(id string, bucket domain.Bucket) string {
	return rootPrefix + id + "/" + string(bucket) + ".json"
}

func manifestKey(id string) string { return rootPrefix + id + "/" + manifestName }

// Archive writes every bucket of state, then the manifest. The manifest is
// written last, so an interrupted archive is never listed.
func (a *Archiver) Archive(ctx context.Context, state domain.State) (Manifest, error) {
	created := a.now().UTC()
	m := Manifest{
		ID:        created.Format(idLayout),
		CreatedAt: created,
		Buckets:   domain.Buckets(),
		Digests:   make(map[string]string, len(domain.Buckets())),
		Rooms:     len(state.Rooms),
		Guests:    len(state.Guests),
	}
	for _, bed := range state.AllBeds() {
		m.Beds++
		if bed.Occupied() {
			m.Occupied++
		}
	}
	if _, err := a.store.Head(ctx, manifestKey(m.ID)); err == nil {
		return Manifest{}, fmt.Errorf("archive %s: %w", m.ID, blob.ErrExists)
	}
	payloads, err := memory.EncodeState(state)
	if err != nil {
		return Manifest{}, err
	}
	for _, bucket := range m.Buckets {
		info, err := a.store.Put(ctx, bucketKey(m.ID, bucket), bytes.NewReader(payloads[bucket]), blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"archive": m.ID, "bucket": string(bucket)},
		})
		if err != nil {
			return Manifest{}, fmt.Errorf("archive %s: put %s: %w", m.ID, bucket, err)
		}
		m.Digests[string(bucket)] = info.ETag
	}
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, err
	}
	if _, err := a.store.Put(ctx, manifestKey(m.ID), bytes.NewReader(raw), blob.PutOptions{ContentType: contentType}); err != nil {
		return Manifest{}, fmt.Errorf("archive %s: put manifest: %w", m.ID, err)
	}
	return m, nil
}

// List returns the archived manifests, newest first.
func (a *Archiver) List(ctx context.Context) ([]Manifest, error) {
	infos, err := a.store.List(ctx, rootPrefix)
	if err != nil {
		return nil, err
	}
	var out []Manifest
	for _, info := range infos {
		if !strings.HasSuffix(info.Key, "/"+manifestName) {
			continue
		}
		m, err := a.readManifest(ctx, info.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Latest returns the newest manifest, or false when nothing was archived.
func (a *Archiver) Latest(ctx context.Context) (Manifest, bool, error) {
	list, err := a.List(ctx)
	if err != nil || len(list) == 0 {
		return Manifest{}, false, err
	}
	return list[0], true, nil
}

// Load returns the state archived under id. Buckets that are missing or do
// not decode fall back to their seed values and are reported as issues.
func (a *Archiver) Load(ctx context.Context, id string) (domain.State, []memory.LoadIssue, error) {
	m, err := a.readManifest(ctx, manifestKey(id))
	if errors.Is(err, blob.ErrNotFound) {
		return domain.State{}, nil, fmt.Errorf("%w: %s", ErrUnknownArchive, id)
	}
	if err != nil {
		return domain.State{}, nil, err
	}
	payloads := make(map[domain.Bucket][]byte, len(m.Buckets))
	for _, bucket := range m.Buckets {
		data, err := a.read(ctx, bucketKey(id, bucket))
		if errors.Is(err, blob.ErrNotFound) {
			continue
		}
		if err != nil {
			return domain.State{}, nil, err
		}
		payloads[bucket] = data
	}
	state, issues := memory.DecodeState(payloads)
	return state, issues, nil
}

// Prune deletes all but the newest keep archives and returns how many it removed.
func (a *Archiver) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("prune must keep at least one archive, got %d", keep)
	}
	list, err := a.List(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, m := range list[min(keep, len(list)):] {
		// Manifest first, so a partial delete is no longer listed.
		if _, err := a.store.Delete(ctx, manifestKey(m.ID)); err != nil {
			return removed, err
		}
		for _, bucket := range m.Buckets {
			if _, err := a.store.Delete(ctx, bucketKey(m.ID, bucket)); err != nil {
				return removed, err
			}
		}
		removed++
	}
	return removed, nil
}

func (a *Archiver) readManifest(ctx context.Context, key string) (Manifest, error) {
	raw, err := a.read(ctx, key)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return m, nil
}

func (a *Archiver) read(ctx context.Context, key string) ([]byte, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

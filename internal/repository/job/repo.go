// Package job persists sync job snapshots as Redis hashes with a TTL.
package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kailas-cloud/hoteldex/internal/db"
	"github.com/kailas-cloud/hoteldex/internal/domain"
	domjob "github.com/kailas-cloud/hoteldex/internal/domain/job"
)

// Index names start with [a-z0-9], so the underscore keeps job keys clear of
// document keys under the same prefix.
const (
	jobSegment    = "_job:"
	latestSegment = "_job_latest:"
	lockSegment   = "_job_lock:"
)

// Hash fields.
const (
	fieldID     = "id"
	fieldSource = "source"
	fieldIndex  = "index"
	fieldStatus = "status"
	fieldData   = "data"
)

// store is the consumer interface for job persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	DeleteIfEqual(ctx context.Context, key string, value []byte) (bool, error)
}

// Repo implements usecase/sync.JobStore and usecase/sync.SlotLock.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a job repository. Snapshots expire ttl after their last save.
func New(s store, prefix string, ttl time.Duration) *Repo {
	return &Repo{store: s, prefix: prefix, ttl: ttl}
}

// Save writes the snapshot and refreshes its TTL and the latest pointer of
// its (source, index) pair.
func (r *Repo) Save(ctx context.Context, snap domjob.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", snap.ID, err)
	}

	key := r.jobKey(snap.ID)
	fields := map[string]string{
		fieldID:     snap.ID,
		fieldSource: snap.Spec.Source,
		fieldIndex:  snap.Spec.Index,
		fieldStatus: string(snap.Status),
		fieldData:   string(data),
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}

	latest := r.latestKey(snap.Spec.Key())
	if r.ttl <= 0 {
		if err := r.store.Set(ctx, latest, []byte(snap.ID)); err != nil {
			return fmt.Errorf("set %s: %w", latest, err)
		}
		return nil
	}
	if err := r.store.Expire(ctx, key, r.ttl, false); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	if err := r.store.SetWithTTL(ctx, latest, []byte(snap.ID), r.ttl); err != nil {
		return fmt.Errorf("set %s: %w", latest, err)
	}
	return nil
}

// Get loads one snapshot.
func (r *Repo) Get(ctx context.Context, id string) (domjob.Snapshot, error) {
	key := r.jobKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domjob.Snapshot{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domjob.Snapshot{}, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	return parseSnapshot(m)
}

// Latest loads the most recently saved job of a (source, index) pair.
func (r *Repo) Latest(ctx context.Context, spec domjob.Spec) (domjob.Snapshot, error) {
	id, err := r.store.Get(ctx, r.latestKey(spec.Key()))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domjob.Snapshot{}, fmt.Errorf("latest job %s: %w", spec.Key(), domain.ErrNotFound)
		}
		return domjob.Snapshot{}, fmt.Errorf("get latest %s: %w", spec.Key(), err)
	}
	return r.Get(ctx, string(id))
}

// List returns up to limit snapshots, newest first. limit <= 0 returns all.
// Hashes that expired between SCAN and HGETALL, or that do not decode, are skipped.
func (r *Repo) List(ctx context.Context, limit int) ([]domjob.Snapshot, error) {
	keys, err := r.store.Scan(ctx, r.prefix+jobSegment+"*")
	if err != nil {
		return nil, fmt.Errorf("scan jobs: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}

	snaps := make([]domjob.Snapshot, 0, len(maps))
	for _, m := range maps {
		if len(m) == 0 {
			continue
		}
		s, err := parseSnapshot(m)
		if err != nil {
			continue
		}
		snaps = append(snaps, s)
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return snaps, nil
}

// Acquire claims the slot of a (source, index) pair for owner until ttl
// passes. It reports false when another owner holds the slot.
func (r *Repo) Acquire(ctx context.Context, specKey, owner string, ttl time.Duration) (bool, error) {
	key := r.lockKey(specKey)
	ok, err := r.store.SetNX(ctx, key, []byte(owner), ttl)
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", key, err)
	}
	return ok, nil
}

// Release frees the slot if owner still holds it. An expired or foreign slot
// is left alone.
func (r *Repo) Release(ctx context.Context, specKey, owner string) error {
	key := r.lockKey(specKey)
	if _, err := r.store.DeleteIfEqual(ctx, key, []byte(owner)); err != nil {
		return fmt.Errorf("unlock %s: %w", key, err)
	}
	return nil
}

func (r *Repo) jobKey(id string) string { return r.prefix + jobSegment + id }

func (r *Repo) latestKey(specKey string) string { return r.prefix + latestSegment + specKey }

func (r *Repo) lockKey(specKey string) string { return r.prefix + lockSegment + specKey }

func parseSnapshot(m map[string]string) (domjob.Snapshot, error) {
	var s domjob.Snapshot
	if err := json.Unmarshal([]byte(m[fieldData]), &s); err != nil {
		return domjob.Snapshot{}, fmt.Errorf("decode job %s: %w", m[fieldID], err)
	}
	if s.ID == "" {
		s.ID = m[fieldID]
	}
	return s, nil
}

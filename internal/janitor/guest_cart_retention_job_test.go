package janitor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/groupcart-backend/pkg/logger"
	"github.com/angelmondragon/groupcart-backend/pkg/metrics"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeIdleStore struct {
	batches [][]string
	cutoffs []time.Time
	limits  []int
	err     error
}

func (f *fakeIdleStore) DeleteIdleGuestCarts(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]string, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	next := f.batches[0]
	f.batches = f.batches[1:]
	return next, nil
}

type recordingEvicter struct {
	evicted []string
}

func (r *recordingEvicter) Delete(ctx context.Context, cartIDs ...string) {
	r.evicted = append(r.evicted, cartIDs...)
}

func newRetentionJob(t *testing.T, store idleCartStore, cache cartEvicter, m *metrics.JanitorMetrics, batch int) *guestCartRetentionJob {
	t.Helper()
	job, err := NewGuestCartRetentionJob(GuestCartRetentionJobParams{
		Logger:    logger.Nop(),
		DB:        passthroughTx{},
		Store:     store,
		Cache:     cache,
		Metrics:   m,
		Retention: 48 * time.Hour,
		BatchSize: batch,
	})
	if err != nil {
		t.Fatalf("NewGuestCartRetentionJob: %v", err)
	}
	typed, ok := job.(*guestCartRetentionJob)
	if !ok {
		t.Fatalf("unexpected job type %T", job)
	}
	return typed
}

func TestGuestCartRetentionDrainsBatchesAndEvicts(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	store := &fakeIdleStore{batches: [][]string{
		{"guest:a", "guest:b"},
		{"guest:c"},
	}}
	cache := &recordingEvicter{}
	reg := prometheus.NewRegistry()
	m := metrics.NewJanitorMetrics(reg)
	job := newRetentionJob(t, store, cache, m, 2)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(store.cutoffs) != 2 {
		t.Fatalf("expected two batches, got %d", len(store.cutoffs))
	}
	if want := now.Add(-48 * time.Hour); !store.cutoffs[0].Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, store.cutoffs[0])
	}
	if store.limits[0] != 2 {
		t.Fatalf("expected batch limit 2, got %d", store.limits[0])
	}
	if fmt.Sprint(cache.evicted) != "[guest:a guest:b guest:c]" {
		t.Fatalf("unexpected evictions %v", cache.evicted)
	}

	if got := counterValue(t, reg, "cart_janitor_guest_carts_purged_total"); got != 3 {
		t.Fatalf("expected 3 purged, got %f", got)
	}
}

func TestGuestCartRetentionNothingToPurge(t *testing.T) {
	store := &fakeIdleStore{}
	cache := &recordingEvicter{}
	job := newRetentionJob(t, store, cache, nil, 10)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.cutoffs) != 1 || len(cache.evicted) != 0 {
		t.Fatalf("expected a single empty batch, got %d calls and %v", len(store.cutoffs), cache.evicted)
	}
}

func TestGuestCartRetentionPropagatesStoreError(t *testing.T) {
	store := &fakeIdleStore{err: errors.New("db down")}
	job := newRetentionJob(t, store, nil, nil, 10)

	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGuestCartRetentionRegistersWithService(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewJanitorMetrics(reg)
	job := newRetentionJob(t, &fakeIdleStore{batches: [][]string{{"guest:x"}}}, nil, m, 10)
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: NewRegistry(job), Lock: &fakeLock{}, Metrics: m})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if got := counterValue(t, reg, "cart_janitor_job_success_total"); got != 1 {
		t.Fatalf("expected one successful run, got %f", got)
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not exported", name)
	return 0
}

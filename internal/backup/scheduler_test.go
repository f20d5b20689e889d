package backup

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dmarinho/gestor-demandas/internal/models"
)

func TestSchedulerTakesAutoSnapshots(t *testing.T) {
	svc, repo := setupService(t)
	seedDemanda(t, repo, "Agendada")

	sched := NewScheduler(svc, SchedulerConfig{
		SnapshotInterval: 20 * time.Millisecond,
		PurgeInterval:    time.Hour,
	}, zap.NewNop())
	sched.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for {
		list, err := svc.List()
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) > 0 {
			if list[0].Tipo != models.BackupAuto {
				t.Fatalf("tipo = %q, want auto", list[0].Tipo)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("no scheduled snapshot within the deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}
	sched.Stop()
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	svc, _ := setupService(t)

	ctx, cancel := context.WithCancel(context.Background())
	sched := NewScheduler(svc, SchedulerConfig{
		SnapshotInterval: 10 * time.Millisecond,
		PurgeInterval:    time.Hour,
	}, zap.NewNop())
	sched.Start(ctx)
	cancel()

	// After cancellation the loop exits; snapshot activity settles.
	time.Sleep(50 * time.Millisecond)
	before, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	after, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(after) != len(before) {
		t.Errorf("snapshots kept arriving after cancel: %d -> %d", len(before), len(after))
	}
}

func TestSchedulerDefaultsIntervals(t *testing.T) {
	svc, _ := setupService(t)
	sched := NewScheduler(svc, SchedulerConfig{}, zap.NewNop())
	if sched.config.SnapshotInterval != 6*time.Hour {
		t.Errorf("snapshot interval = %v", sched.config.SnapshotInterval)
	}
	if sched.config.PurgeInterval != 24*time.Hour {
		t.Errorf("purge interval = %v", sched.config.PurgeInterval)
	}
}

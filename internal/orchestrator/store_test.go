package orchestrator

import (
	"context"
	"testing"
	"time"

	"mediaforge/internal/domain"
)

func storeTask(id string, createdAt time.Time) *domain.GenerationTask {
	return &domain.GenerationTask{
		ID:        id,
		Status:    domain.TaskStatusQueued,
		Spec:      domain.CreativeSpec{Prompt: "prompt " + id},
		Cost:      100,
		Funding:   domain.FundingCredits,
		CreatedAt: createdAt,
	}
}

func TestStoreOrderNewestFirst(t *testing.T) {
	s := NewStore()
	now := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		s.Add(storeTask(id, now.Add(time.Duration(i)*time.Minute)), func() {})
	}

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i, want := range []string{"c", "b", "a"} {
		if list[i].ID != want {
			t.Fatalf("list[%d] = %s, want %s", i, list[i].ID, want)
		}
	}

	// Completing an older task must not reorder anything.
	s.Observe("a", func(task *domain.GenerationTask) {
		task.Status = domain.TaskStatusCompleted
	})
	list = s.List()
	if list[2].ID != "a" || list[2].Status != domain.TaskStatusCompleted {
		t.Fatalf("expected a completed in place, got %+v", list[2])
	}
}

func TestStoreObserveIgnoresTerminal(t *testing.T) {
	s := NewStore()
	s.Add(storeTask("a", time.Now()), func() {})
	s.Observe("a", func(task *domain.GenerationTask) {
		task.Status = domain.TaskStatusCompleted
		task.ResultURL = "https://cdn.example.com/a.mp4"
	})

	if s.Observe("a", func(task *domain.GenerationTask) {
		task.Status = domain.TaskStatusFailed
	}) {
		t.Fatalf("late observation applied to terminal task")
	}
	task, _ := s.Get("a")
	if task.Status != domain.TaskStatusCompleted || task.ResultURL == "" {
		t.Fatalf("terminal task mutated: %+v", task)
	}
}

func TestStoreDeleteCancelsPolling(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	s.Add(storeTask("a", time.Now()), cancel)

	if !s.Delete("a") {
		t.Fatalf("delete returned false")
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatalf("delete did not cancel the polling context")
	}
	if _, ok := s.Get("a"); ok {
		t.Fatalf("task still present after delete")
	}
	if s.Observe("a", func(*domain.GenerationTask) {}) {
		t.Fatalf("observation applied to deleted task")
	}
	if s.Delete("a") {
		t.Fatalf("second delete should report missing")
	}
}

func TestStoreGroupByDay(t *testing.T) {
	s := NewStore()
	day1 := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	s.Add(storeTask("old-1", day1), func() {})
	s.Add(storeTask("old-2", day1.Add(time.Hour)), func() {})
	s.Add(storeTask("new-1", day2), func() {})

	groups := s.GroupByDay()
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[0].Date != "2026-08-31" || len(groups[0].Tasks) != 1 {
		t.Fatalf("newest group = %+v", groups[0])
	}
	if groups[1].Date != "2026-08-30" || len(groups[1].Tasks) != 2 {
		t.Fatalf("older group = %+v", groups[1])
	}
	if groups[1].Tasks[0].ID != "old-2" {
		t.Fatalf("within-day order = %s, want old-2 first", groups[1].Tasks[0].ID)
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := NewStore()
	task := storeTask("a", time.Now())
	task.Spec.References = []domain.AssetRef{{URL: "https://cdn.example.com/1.png"}}
	s.Add(task, func() {})

	snapshot, _ := s.Get("a")
	snapshot.Spec.References[0].URL = "mutated"
	snapshot.Status = domain.TaskStatusFailed

	fresh, _ := s.Get("a")
	if fresh.Spec.References[0].URL != "https://cdn.example.com/1.png" {
		t.Fatalf("reference slice aliased: %+v", fresh.Spec.References)
	}
	if fresh.Status != domain.TaskStatusQueued {
		t.Fatalf("status mutated through snapshot")
	}
}

package orchestrator

import (
	"context"
	"sync"

	"mediaforge/internal/domain"
)

// Store is the in-memory collection of generation tasks, ordered newest
// created first. Order is fixed at creation and never changes as tasks
// complete. Each task owns a cancel func for its polling loop; deleting a
// task fires it so no orphaned poll can mutate the id afterwards.
type Store struct {
	mu      sync.Mutex
	order   []string
	tasks   map[string]*domain.GenerationTask
	cancels map[string]context.CancelFunc
}

// DayGroup buckets tasks sharing a creation day, newest day first.
type DayGroup struct {
	Date  string                  `json:"date"`
	Tasks []domain.GenerationTask `json:"tasks"`
}

func NewStore() *Store {
	return &Store{
		tasks:   make(map[string]*domain.GenerationTask),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Add prepends a task and registers the cancel func guarding its polling.
func (s *Store) Add(task *domain.GenerationTask, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append([]string{task.ID}, s.order...)
	s.tasks[task.ID] = task
	s.cancels[task.ID] = cancel
}

// Get returns a copy of the task, if present.
func (s *Store) Get(id string) (domain.GenerationTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return domain.GenerationTask{}, false
	}
	return cloneTask(task), true
}

// List returns copies of every task, newest created first.
func (s *Store) List() []domain.GenerationTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.GenerationTask, 0, len(s.order))
	for _, id := range s.order {
		if task, ok := s.tasks[id]; ok {
			out = append(out, cloneTask(task))
		}
	}
	return out
}

// GroupByDay buckets tasks by creation day, preserving newest-first order
// both across groups and within each group.
func (s *Store) GroupByDay() []DayGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	var groups []DayGroup
	index := make(map[string]int)
	for _, id := range s.order {
		task, ok := s.tasks[id]
		if !ok {
			continue
		}
		key := task.DateKey()
		i, seen := index[key]
		if !seen {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Date: key})
		}
		groups[i].Tasks = append(groups[i].Tasks, cloneTask(task))
	}
	return groups
}

// Apply mutates a task regardless of its state. Reserved for submission-time
// transitions and user actions like retry; poll observations go through
// Observe instead.
func (s *Store) Apply(id string, mutate func(*domain.GenerationTask)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return false
	}
	mutate(task)
	return true
}

// Observe applies a poll observation. It is a no-op once the task is deleted
// or terminal, so a late or duplicate response can never re-open a finished
// task.
func (s *Store) Observe(id string, mutate func(*domain.GenerationTask)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.Status.Terminal() {
		return false
	}
	mutate(task)
	return true
}

// Delete removes the task and cancels any in-flight polling for it.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	if cancel, ok := s.cancels[id]; ok && cancel != nil {
		cancel()
	}
	delete(s.tasks, id)
	delete(s.cancels, id)
	for i, ordered := range s.order {
		if ordered == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// ReplaceCancel swaps in a fresh cancel func when a task is resubmitted. The
// previous one is fired first in case an old loop is still parked on a timer.
func (s *Store) ReplaceCancel(id string, cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	if prev, ok := s.cancels[id]; ok && prev != nil {
		prev()
	}
	s.cancels[id] = cancel
	return true
}

// CancelAll fires every registered cancel func. Tasks stay in the store;
// used on shutdown.
func (s *Store) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.cancels {
		if cancel != nil {
			cancel()
		}
	}
}

func cloneTask(task *domain.GenerationTask) domain.GenerationTask {
	out := *task
	out.Spec.References = append([]domain.AssetRef(nil), task.Spec.References...)
	return out
}

package runlog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// DefaultMemoryCapacity is the number of runs Memory keeps.
const DefaultMemoryCapacity = 200

// Memory is an in-process Recorder keeping the most recent runs.
type Memory struct {
	mu       sync.RWMutex
	capacity int
	runs     []Run // oldest first
}

// NewMemory creates a recorder keeping at most capacity runs.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &Memory{capacity: capacity}
}

func (m *Memory) Start(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = append(m.runs, cloneRun(*run))
	if over := len(m.runs) - m.capacity; over > 0 {
		m.runs = append([]Run(nil), m.runs[over:]...)
	}
	return nil
}

func (m *Memory) Finish(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.runs {
		if m.runs[i].ID == run.ID {
			m.runs[i] = cloneRun(*run)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.runs {
		if m.runs[i].ID == id {
			r := cloneRun(m.runs[i])
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) List(_ context.Context, limit int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.runs)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Run, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, cloneRun(m.runs[i]))
	}
	return out, nil
}

func cloneRun(r Run) Run {
	r.Args = append([]string(nil), r.Args...)
	r.Outputs = append([]string(nil), r.Outputs...)
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		r.FinishedAt = &t
	}
	return r
}

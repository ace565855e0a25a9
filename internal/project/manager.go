// Package project tracks editing sessions of top-level paths and runs the
// reconciliation engine for them, keeping each project's last flattened
// output so salvage has something to match against.
package project

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pedro-visualizer/backend/internal/engine"
	"github.com/pedro-visualizer/backend/internal/models"
)

// MaxProjects limits concurrently held projects.
const MaxProjects = 32

// KeepAliveWindow is how long a recently accessed project is exempt from
// cleanup.
const KeepAliveWindow = 5 * time.Minute

// State holds one project and its latest reconciled output.
type State struct {
	Project      *models.Project
	Input        models.PathData
	Last         *engine.Result
	LastAccessed time.Time
}

// Manager handles active projects.
type Manager struct {
	mu         sync.RWMutex
	projects   map[string]*State
	reconciler *engine.Reconciler
}

// NewManager creates a project manager around rec.
func NewManager(rec *engine.Reconciler) *Manager {
	return &Manager{
		projects:   make(map[string]*State),
		reconciler: rec,
	}
}

// Create registers a new project.
func (m *Manager) Create(name string) *models.Project {
	m.cleanupIfAtCapacity()

	now := time.Now()
	p := &models.Project{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.projects[p.ID] = &State{Project: p, LastAccessed: now}
	m.mu.Unlock()

	return p
}

// Get returns a project by id, refreshing its keep-alive window.
func (m *Manager) Get(id string) (*models.Project, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.projects[id]
	if !ok {
		return nil, false
	}
	state.LastAccessed = time.Now()
	return state.Project, true
}

// Delete removes a project.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return false
	}
	delete(m.projects, id)
	return true
}

// Reconcile runs the engine on the project's current input. The call is
// synchronous: reconciliation is cheap enough to run on every edit. On a
// recursive macro the previous output is left untouched.
func (m *Manager) Reconcile(id string, input models.PathData, lib engine.Library) (*engine.Result, error) {
	m.mu.Lock()
	state, ok := m.projects[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("project not found: %s", id)
	}
	m.mu.Unlock()

	result, err := m.reconciler.Reconcile(input.StartPoint, input.Lines, input.EnsureSequence(), lib)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	state.Input = input
	state.Last = result
	state.Project.UpdatedAt = time.Now()
	state.LastAccessed = time.Now()
	return result, nil
}

// LastResult returns the project's most recent reconciled output.
func (m *Manager) LastResult(id string) (*engine.Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.projects[id]
	if !ok || state.Last == nil {
		return nil, false
	}
	return state.Last, true
}

// CleanupOld removes projects idle for longer than maxAge, keeping those
// accessed within the keep-alive window.
func (m *Manager) CleanupOld(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAlive := time.Now().Add(-KeepAliveWindow)

	for id, state := range m.projects {
		if state.LastAccessed.After(keepAlive) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			delete(m.projects, id)
			fmt.Printf("[Projects] cleaned up idle project %s\n", shortID(id))
		}
	}
}

func (m *Manager) cleanupIfAtCapacity() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.projects) < MaxProjects {
		return
	}

	// Evict the least recently accessed project.
	var oldestID string
	var oldest time.Time
	for id, state := range m.projects {
		if oldestID == "" || state.LastAccessed.Before(oldest) {
			oldestID = id
			oldest = state.LastAccessed
		}
	}
	if oldestID != "" {
		delete(m.projects, oldestID)
		fmt.Printf("[Projects] evicted project %s to stay under capacity\n", shortID(oldestID))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

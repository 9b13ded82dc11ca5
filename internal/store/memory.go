package store

import (
	"context"
	"sort"
	"sync"

	"github.com/hookmill/hookmill/internal/model"
)

var _ Repository = (*Memory)(nil)

// Memory is the fallback backend when SQLite is unavailable. Contents are
// lost on restart; semantics match the SQLite store exactly.
type Memory struct {
	mu        sync.RWMutex
	artifacts map[string]model.Artifact
	settings  *model.Settings
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{artifacts: make(map[string]model.Artifact)}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Put(_ context.Context, a model.Artifact) error {
	a.ContentHash = model.HashOutput(a.Output)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts[a.ID] = a
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (model.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.artifacts[id]
	if !ok {
		return model.Artifact{}, model.ErrNotFound
	}
	return a, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.artifacts, id)
	return nil
}

func (m *Memory) List(_ context.Context) ([]model.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedLocked(func(model.Artifact) bool { return true }), nil
}

func (m *Memory) FindByHash(_ context.Context, hash string) ([]model.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedLocked(func(a model.Artifact) bool { return a.ContentHash == hash }), nil
}

func (m *Memory) Filter(_ context.Context, f model.Filter) ([]model.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedLocked(f.Match), nil
}

func (m *Memory) ClearAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts = make(map[string]model.Artifact)
	m.settings = nil
	return nil
}

func (m *Memory) LoadSettings(context.Context) (model.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return model.DefaultSettings(), nil
	}
	return *m.settings, nil
}

func (m *Memory) SaveSettings(_ context.Context, s model.Settings) error {
	s = s.Normalize()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = &s
	return nil
}

// sortedLocked returns matching artifacts newest-first. Caller holds at
// least a read lock.
func (m *Memory) sortedLocked(match func(model.Artifact) bool) []model.Artifact {
	out := make([]model.Artifact, 0, len(m.artifacts))
	for _, a := range m.artifacts {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out
}

package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hookmill/hookmill/internal/model"
)

// fakeLibrary implements ArtifactSaver and ArtifactUpdater in memory.
type fakeLibrary struct {
	mu        sync.Mutex
	artifacts map[string]model.Artifact
	order     []string
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{artifacts: make(map[string]model.Artifact)}
}

func (f *fakeLibrary) Put(_ context.Context, a model.Artifact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.artifacts[a.ID]; !ok {
		f.order = append(f.order, a.ID)
	}
	f.artifacts[a.ID] = a
	return nil
}

func (f *fakeLibrary) Get(_ context.Context, id string) (model.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.artifacts[id]
	if !ok {
		return model.Artifact{}, model.ErrNotFound
	}
	return a, nil
}

func (f *fakeLibrary) FindByHash(_ context.Context, hash string) ([]model.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Artifact
	for _, id := range f.order {
		if f.artifacts[id].ContentHash == hash {
			out = append(out, f.artifacts[id])
		}
	}
	return out, nil
}

func (f *fakeLibrary) all() []model.Artifact {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Artifact, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.artifacts[id])
	}
	return out
}

type fakeSettings struct {
	s model.Settings
}

func (f *fakeSettings) LoadSettings(context.Context) (model.Settings, error) {
	return f.s, nil
}

func hookSettings() *fakeSettings {
	s := model.DefaultSettings()
	s.APIKey = "sk-test"
	s.Stop = nil // canned chunks carry no stop tokens
	return &fakeSettings{s: s}
}

func TestOrchestratorRun_SavesBatch(t *testing.T) {
	lib := newFakeLibrary()
	client := &StubStreamClient{Chunks: []string{"[Hook] ", "steal that ", "pizza pie ", "[Chant] raccoon run"}}
	o := NewOrchestrator(client, lib, hookSettings(), &StreamSlot{})

	if err := o.Run(context.Background(), "  raccoon steals pizza  ", 3); err != nil {
		t.Fatalf("Run: %v", err)
	}

	saved := lib.all()
	if len(saved) != 3 {
		t.Fatalf("saved %d artifacts, want 3", len(saved))
	}
	first := saved[0]
	if first.Output != "[Hook] steal that pizza pie [Chant] raccoon run" {
		t.Errorf("output = %q", first.Output)
	}
	if first.Preset != PresetHook || first.Lens != LensNone {
		t.Errorf("provenance preset/lens = %s/%s", first.Preset, first.Lens)
	}
	if first.UserPrompt != "raccoon steals pizza" {
		t.Errorf("seed should be trimmed, got %q", first.UserPrompt)
	}
	if first.SystemPrompt == "" || !strings.Contains(first.SystemPrompt, "[Hook]") {
		t.Errorf("system prompt not captured")
	}
	if first.ContentHash != model.HashOutput(first.Output) {
		t.Errorf("content hash mismatch")
	}
	if first.ID == "" || first.CreatedAt == "" {
		t.Errorf("id/createdAt must be set")
	}
	if len(first.Refinements) != 0 {
		t.Errorf("fresh artifact should have no refinements")
	}
}

func TestOrchestratorRun_EmptySeed(t *testing.T) {
	lib := newFakeLibrary()
	o := NewOrchestrator(&StubStreamClient{}, lib, hookSettings(), &StreamSlot{})

	err := o.Run(context.Background(), "   ", 1)
	if !errors.Is(err, model.ErrEmptySeed) {
		t.Fatalf("err = %v, want ErrEmptySeed", err)
	}
	if len(lib.all()) != 0 {
		t.Errorf("empty seed must not touch the library")
	}
}

func TestOrchestratorRun_MissingAPIKey(t *testing.T) {
	settings := hookSettings()
	settings.s.APIKey = ""
	o := NewOrchestrator(&StubStreamClient{}, newFakeLibrary(), settings, &StreamSlot{})

	if err := o.Run(context.Background(), "seed", 1); !errors.Is(err, model.ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestOrchestratorRun_DuplicateNoticedButSaved(t *testing.T) {
	lib := newFakeLibrary()
	o := NewOrchestrator(&StubStreamClient{}, lib, hookSettings(), &StreamSlot{})

	if err := o.Run(context.Background(), "same seed", 2); err != nil {
		t.Fatalf("Run: %v", err)
	}

	saved := lib.all()
	if len(saved) != 2 {
		t.Fatalf("saved %d artifacts, want 2 (duplicates still saved)", len(saved))
	}
	if saved[0].ID == saved[1].ID {
		t.Errorf("duplicates must get distinct ids")
	}
	if saved[0].ContentHash != saved[1].ContentHash {
		t.Errorf("identical output should share a hash")
	}

	status := o.Status()
	found := false
	for _, n := range status.Notices {
		if strings.Contains(n, "duplicate of "+saved[0].ID) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected duplicate notice naming the first artifact, got %v", status.Notices)
	}
}

func TestOrchestratorRun_RejectsConcurrentRun(t *testing.T) {
	started := make(chan struct{})
	blocked := make(chan struct{})
	client := streamFunc(func(ctx context.Context, req StreamRequest, onText func(string)) (string, error) {
		close(started)
		select {
		case <-blocked:
		case <-ctx.Done():
		}
		return "done", nil
	})

	o := NewOrchestrator(client, newFakeLibrary(), hookSettings(), &StreamSlot{})
	errCh := make(chan error, 1)
	go func() { errCh <- o.Run(context.Background(), "seed", 1) }()

	<-started
	if err := o.Run(context.Background(), "seed", 1); !errors.Is(err, ErrRunActive) {
		t.Errorf("err = %v, want ErrRunActive", err)
	}
	close(blocked)
	if err := <-errCh; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestOrchestratorStart_ReservesBeforeReturn(t *testing.T) {
	blocked := make(chan struct{})
	client := streamFunc(func(ctx context.Context, req StreamRequest, onText func(string)) (string, error) {
		select {
		case <-blocked:
		case <-ctx.Done():
		}
		return "done", nil
	})
	o := NewOrchestrator(client, newFakeLibrary(), hookSettings(), &StreamSlot{})

	if err := o.Start("   ", 1); !errors.Is(err, model.ErrEmptySeed) {
		t.Fatalf("err = %v, want ErrEmptySeed", err)
	}
	if err := o.Start("seed", 1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// The run is claimed before Start returns, so the loser needs no
	// scheduling luck to see the conflict.
	if err := o.Start("seed", 1); !errors.Is(err, ErrRunActive) {
		t.Errorf("err = %v, want ErrRunActive", err)
	}

	close(blocked)
	deadline := time.Now().Add(2 * time.Second)
	for o.Status().Running {
		if time.Now().After(deadline) {
			t.Fatal("run never finished")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestOrchestratorStop_EndsBatch(t *testing.T) {
	lib := newFakeLibrary()
	var iterations int
	var o *Orchestrator
	client := streamFunc(func(ctx context.Context, req StreamRequest, onText func(string)) (string, error) {
		iterations++
		if iterations == 1 {
			o.Stop()
			return "first", nil
		}
		return "later", nil
	})
	o = NewOrchestrator(client, lib, hookSettings(), &StreamSlot{})

	if err := o.Run(context.Background(), "seed", 5); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if iterations != 1 {
		t.Errorf("iterations = %d, stop should end the batch before the next one", iterations)
	}
	// The completed first iteration is still saved.
	if len(lib.all()) != 1 {
		t.Errorf("saved %d artifacts, want 1", len(lib.all()))
	}
}

func TestOrchestratorRun_TransportErrorContinuesBatch(t *testing.T) {
	lib := newFakeLibrary()
	var calls int
	client := streamFunc(func(ctx context.Context, req StreamRequest, onText func(string)) (string, error) {
		calls++
		if calls == 1 {
			return "", &TransportError{Status: 500, Body: "boom"}
		}
		return "recovered", nil
	})
	o := NewOrchestrator(client, lib, hookSettings(), &StreamSlot{})

	if err := o.Run(context.Background(), "seed", 2); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, a transport failure should not end the batch", calls)
	}
	if len(lib.all()) != 1 {
		t.Errorf("saved %d artifacts, want the surviving iteration only", len(lib.all()))
	}
	status := o.Status()
	if len(status.Notices) == 0 || !strings.Contains(status.Notices[0], "boom") {
		t.Errorf("expected a failure notice, got %v", status.Notices)
	}
}

func TestOrchestratorStatus_TracksLiveOutput(t *testing.T) {
	var o *Orchestrator
	client := streamFunc(func(ctx context.Context, req StreamRequest, onText func(string)) (string, error) {
		onText("partial text")
		st := o.Status()
		if !st.Running || st.Output != "partial text" || st.Iteration != 1 {
			return "", errors.New("status mid-stream: " + st.Output)
		}
		return "partial text done", nil
	})
	o = NewOrchestrator(client, newFakeLibrary(), hookSettings(), &StreamSlot{})

	if err := o.Run(context.Background(), "seed", 1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	st := o.Status()
	if st.Running {
		t.Errorf("status should report finished")
	}
	if len(st.SavedIDs) != 1 {
		t.Errorf("SavedIDs = %v, want one id", st.SavedIDs)
	}
	if st.ElapsedMS < 0 {
		t.Errorf("elapsed must be non-negative")
	}
}

// streamFunc adapts a function to StreamClient.
type streamFunc func(ctx context.Context, req StreamRequest, onText func(string)) (string, error)

func (f streamFunc) Stream(ctx context.Context, req StreamRequest, onText func(string)) (string, error) {
	return f(ctx, req, onText)
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hookmill/hookmill/internal/model"
)

var ErrRunActive = errors.New("a generation run is already active")

// ArtifactSaver is the slice of the library the orchestrator needs.
type ArtifactSaver interface {
	Put(ctx context.Context, a model.Artifact) error
	FindByHash(ctx context.Context, hash string) ([]model.Artifact, error)
}

// SettingsLoader supplies the persisted settings document.
type SettingsLoader interface {
	LoadSettings(ctx context.Context) (model.Settings, error)
}

// RunStatus is a snapshot of the current (or last) generation run.
type RunStatus struct {
	Running   bool     `json:"running"`
	Iteration int      `json:"iteration"`
	Batch     int      `json:"batch"`
	Output    string   `json:"output"`
	ElapsedMS int64    `json:"elapsed_ms"`
	Notices   []string `json:"notices,omitempty"`
	SavedIDs  []string `json:"saved_ids,omitempty"`
}

// Orchestrator drives batch generation: one system+user prompt pair built
// up front, then strictly sequential streamed completions, each saved to
// the library as it finishes.
type Orchestrator struct {
	client   StreamClient
	saver    ArtifactSaver
	settings SettingsLoader
	slot     *StreamSlot

	mu      sync.Mutex
	running bool
	stop    bool
	status  RunStatus
	started time.Time
}

// NewOrchestrator creates an orchestrator sharing the given stream slot
// with the refine workflow.
func NewOrchestrator(client StreamClient, saver ArtifactSaver, settings SettingsLoader, slot *StreamSlot) *Orchestrator {
	return &Orchestrator{client: client, saver: saver, settings: settings, slot: slot}
}

// Start reserves the run and executes it on its own goroutine, so a
// caller holding a 202 knows the reservation happened before it replied.
// ErrEmptySeed and ErrRunActive are returned synchronously; later failures
// surface through Status notices and the log.
func (o *Orchestrator) Start(seed string, batch int) error {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return model.ErrEmptySeed
	}
	if batch < 1 {
		batch = 1
	}
	if err := o.reserve(batch); err != nil {
		return err
	}
	go func() {
		if err := o.run(context.Background(), seed, batch); err != nil {
			slog.Error("generation run failed", "error", err)
		}
	}()
	return nil
}

// Run executes a batch of generations for one seed. It blocks until the
// batch finishes. Only one run may be active at a time.
func (o *Orchestrator) Run(ctx context.Context, seed string, batch int) error {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return model.ErrEmptySeed
	}
	if batch < 1 {
		batch = 1
	}
	if err := o.reserve(batch); err != nil {
		return err
	}
	return o.run(ctx, seed, batch)
}

// reserve claims the one allowed run or reports the active one.
func (o *Orchestrator) reserve(batch int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return ErrRunActive
	}
	o.running = true
	o.stop = false
	o.started = time.Now()
	o.status = RunStatus{Running: true, Batch: batch}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, seed string, batch int) error {
	defer func() {
		o.mu.Lock()
		o.running = false
		o.status.Running = false
		o.status.ElapsedMS = time.Since(o.started).Milliseconds()
		o.mu.Unlock()
	}()

	settings, err := o.settings.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	settings = settings.Normalize()
	if settings.APIKey == "" {
		return model.ErrMissingAPIKey
	}

	system, err := BuildSystemPrompt(settings.Preset, settings.Lens)
	if err != nil {
		return err
	}
	user := EnforceCap(seed, settings.Preset, settings.CapEnabled)
	req := StreamRequest{
		APIKey: settings.APIKey,
		Model:  settings.Model,
		System: system,
		User:   user,
		Params: settings.Params(),
		Cap: func(s string) string {
			return EnforceCap(s, settings.Preset, settings.CapEnabled)
		},
	}

	for i := 1; i <= batch; i++ {
		if o.stopRequested() {
			break
		}
		o.beginIteration(i)

		runCtx, release := o.slot.Acquire(ctx)
		text, err := o.client.Stream(runCtx, req, o.setLiveOutput)
		release()

		if err != nil {
			if errors.Is(err, context.Canceled) {
				slog.Info("generation stopped", "iteration", i)
				o.addNotice("stopped")
				break
			}
			slog.Error("generation failed", "iteration", i, "error", err)
			o.addNotice(fmt.Sprintf("iteration %d: %v", i, err))
			continue
		}

		if id, saveErr := o.save(ctx, settings, system, user, text); saveErr != nil {
			slog.Error("save failed", "iteration", i, "error", saveErr)
			o.addNotice(fmt.Sprintf("save failed: %v", saveErr))
		} else if id != "" {
			o.recordSaved(id)
		}
	}
	return nil
}

// Stop requests an end to the active batch and aborts the in-flight
// stream. Safe to call when nothing is running.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.stop = true
	o.mu.Unlock()
	o.slot.Abort()
}

// Status returns a snapshot of the run state.
func (o *Orchestrator) Status() RunStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.status
	if o.running {
		s.ElapsedMS = time.Since(o.started).Milliseconds()
	}
	s.Notices = append([]string(nil), o.status.Notices...)
	s.SavedIDs = append([]string(nil), o.status.SavedIDs...)
	return s
}

// save stores one finished generation with full provenance. A duplicate
// hash is a warning, not an error; the artifact is saved under a new id
// either way.
func (o *Orchestrator) save(ctx context.Context, settings model.Settings, system, user, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	hash := model.HashOutput(text)
	if same, err := o.saver.FindByHash(ctx, hash); err != nil {
		slog.Warn("dedup lookup failed", "error", err)
	} else if len(same) > 0 {
		o.addNotice("duplicate of " + same[0].ID)
	}

	a := model.Artifact{
		ID:           uuid.Must(uuid.NewV7()).String(),
		CreatedAt:    model.Timestamp(time.Now()),
		Model:        settings.Model,
		Preset:       settings.Preset,
		Lens:         settings.Lens,
		SystemPrompt: system,
		UserPrompt:   user,
		Params:       settings.Params(),
		Output:       text,
		ContentHash:  hash,
		Tags:         AutoTags(text),
		Refinements:  []model.Refinement{},
	}
	if err := o.saver.Put(ctx, a); err != nil {
		return "", err
	}
	slog.Info("artifact saved", "artifact_id", a.ID, "preset", a.Preset, "tags", a.Tags)
	return a.ID, nil
}

func (o *Orchestrator) stopRequested() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stop
}

func (o *Orchestrator) beginIteration(i int) {
	o.mu.Lock()
	o.status.Iteration = i
	o.status.Output = ""
	o.mu.Unlock()
}

func (o *Orchestrator) setLiveOutput(text string) {
	o.mu.Lock()
	o.status.Output = text
	o.mu.Unlock()
}

func (o *Orchestrator) addNotice(msg string) {
	o.mu.Lock()
	o.status.Notices = append(o.status.Notices, msg)
	o.mu.Unlock()
}

func (o *Orchestrator) recordSaved(id string) {
	o.mu.Lock()
	o.status.SavedIDs = append(o.status.SavedIDs, id)
	o.mu.Unlock()
}

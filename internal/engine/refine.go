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

var ErrRefineNotReady = errors.New("no refinement awaiting accept")

// Refine states.
const (
	RefineIdle      = "idle"
	RefineStreaming = "streaming"
	RefineAwaiting  = "awaiting_accept"
	RefineFailed    = "failed"
)

var refineLabels = map[RefineKind]string{
	RefinePolish:  "Refine",
	RefineShorten: "Refine — Shorter & Louder",
	RefineVerse:   "Add Verse",
	RefineBridge:  "Add Bridge",
}

// ArtifactUpdater is the slice of the library the refine workflow needs.
type ArtifactUpdater interface {
	Get(ctx context.Context, id string) (model.Artifact, error)
	Put(ctx context.Context, a model.Artifact) error
}

// RefineStatus is a snapshot of the refine session.
type RefineStatus struct {
	State      string `json:"state"`
	Kind       string `json:"kind,omitempty"`
	ArtifactID string `json:"artifact_id,omitempty"`
	Text       string `json:"text"`
	Error      string `json:"error,omitempty"`
}

// RefineSession runs one refinement or expansion at a time against a
// library artifact. The candidate text streams into the session's own
// sink and only touches the artifact when accepted.
type RefineSession struct {
	client   StreamClient
	lib      ArtifactUpdater
	settings SettingsLoader
	slot     *StreamSlot

	mu         sync.Mutex
	seq        uint64
	state      string
	kind       RefineKind
	artifactID string
	system     string
	modelName  string
	text       string
	errMsg     string
	release    context.CancelFunc
}

// NewRefineSession creates a refine session sharing the stream slot with
// the generation orchestrator.
func NewRefineSession(client StreamClient, lib ArtifactUpdater, settings SettingsLoader, slot *StreamSlot) *RefineSession {
	return &RefineSession{client: client, lib: lib, settings: settings, slot: slot, state: RefineIdle}
}

// Start begins streaming a refinement candidate for the artifact. Any
// in-flight stream (generation or a previous refinement) is aborted by
// taking the slot. Start returns once the stream is launched; callers
// poll Status for progress.
func (r *RefineSession) Start(ctx context.Context, artifactID string, kind RefineKind) error {
	system, ok := refineSystems[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	artifact, err := r.lib.Get(ctx, artifactID)
	if err != nil {
		return err
	}
	settings, err := r.settings.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	settings = settings.Normalize()
	if settings.APIKey == "" {
		return model.ErrMissingAPIKey
	}

	streamCtx, release := r.slot.Acquire(context.Background())

	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.state = RefineStreaming
	r.kind = kind
	r.artifactID = artifact.ID
	r.system = system
	r.modelName = settings.Model
	r.text = ""
	r.errMsg = ""
	r.release = release
	r.mu.Unlock()

	req := StreamRequest{
		APIKey: settings.APIKey,
		Model:  settings.Model,
		System: system,
		User:   artifact.Output,
		Params: settings.Params(),
	}

	go func() {
		defer release()
		text, err := r.client.Stream(streamCtx, req, func(s string) { r.setText(seq, s) })

		r.mu.Lock()
		defer r.mu.Unlock()
		// A Discard or a newer Start may have moved the session on.
		if r.seq != seq || r.state != RefineStreaming {
			return
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				r.state = RefineIdle
				return
			}
			slog.Error("refine stream failed", "artifact_id", artifact.ID, "error", err)
			r.state = RefineFailed
			r.errMsg = err.Error()
			return
		}
		r.text = text
		r.state = RefineAwaiting
	}()
	return nil
}

// Accept applies the streamed candidate: re-fetches the artifact, appends
// a refinement record, and for expand kinds also appends the new section
// to the artifact's output. Returns the updated artifact.
func (r *RefineSession) Accept(ctx context.Context) (model.Artifact, error) {
	r.mu.Lock()
	if r.state != RefineAwaiting {
		r.mu.Unlock()
		return model.Artifact{}, ErrRefineNotReady
	}
	kind := r.kind
	artifactID := r.artifactID
	system := r.system
	modelName := r.modelName
	text := r.text
	r.mu.Unlock()

	fresh, err := r.lib.Get(ctx, artifactID)
	if err != nil {
		return model.Artifact{}, err
	}

	fresh.Refinements = append(fresh.Refinements, model.Refinement{
		ID:           uuid.Must(uuid.NewV7()).String(),
		CreatedAt:    model.Timestamp(time.Now()),
		Model:        modelName,
		SystemPrompt: system,
		Output:       text,
		Label:        refineLabels[kind],
	})
	if kind.Expands() {
		fresh.Output = mergeExpansion(fresh.Output, text)
	}
	if err := r.lib.Put(ctx, fresh); err != nil {
		return model.Artifact{}, err
	}

	r.mu.Lock()
	r.reset()
	r.mu.Unlock()
	return fresh, nil
}

// Discard drops the candidate and cancels the stream if still running.
func (r *RefineSession) Discard() {
	r.mu.Lock()
	release := r.release
	r.reset()
	r.mu.Unlock()
	if release != nil {
		release()
	}
}

// Status returns a snapshot of the session.
func (r *RefineSession) Status() RefineStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := RefineStatus{State: r.state, ArtifactID: r.artifactID, Text: r.text, Error: r.errMsg}
	if r.state != RefineIdle {
		s.Kind = string(r.kind)
	}
	return s
}

func (r *RefineSession) setText(seq uint64, text string) {
	r.mu.Lock()
	if r.seq == seq {
		r.text = text
	}
	r.mu.Unlock()
}

// reset returns the session to idle. Caller holds the lock.
func (r *RefineSession) reset() {
	r.state = RefineIdle
	r.kind = ""
	r.artifactID = ""
	r.system = ""
	r.modelName = ""
	r.text = ""
	r.errMsg = ""
	r.release = nil
}

// mergeExpansion appends a new section to existing output, inserting a
// blank line when the addition opens with a bracketed section header.
func mergeExpansion(existing, added string) string {
	sep := "\n"
	if strings.HasPrefix(added, "[") {
		sep = "\n\n"
	}
	return strings.TrimSpace(strings.TrimSpace(existing) + sep + added)
}

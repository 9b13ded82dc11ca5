package engine

import (
	"context"
	"errors"

	"github.com/hookmill/hookmill/internal/model"
)

var (
	ErrUnknownPreset = errors.New("unknown preset")
	ErrUnknownLens   = errors.New("unknown lens")
	ErrUnknownKind   = errors.New("unknown refine kind")
)

// RefineKind selects the instruction used for a refinement pass.
type RefineKind string

const (
	RefinePolish  RefineKind = "polish"
	RefineShorten RefineKind = "shorten"
	RefineVerse   RefineKind = "verse"
	RefineBridge  RefineKind = "bridge"
)

// Expands reports whether the kind appends new material to the artifact
// instead of replacing its output.
func (k RefineKind) Expands() bool {
	return k == RefineVerse || k == RefineBridge
}

// StreamRequest carries everything one streamed completion needs. Cap is
// applied to the accumulated text after every delta; a nil Cap means no
// limiting.
type StreamRequest struct {
	APIKey string
	Model  string
	System string
	User   string
	Params model.Params
	Cap    func(string) string
}

// StreamClient consumes a streamed chat completion. onText is called with
// the full accumulated (capped) text after every delta; the final text is
// returned even when the stream ends early (stop token, cancellation).
type StreamClient interface {
	Stream(ctx context.Context, req StreamRequest, onText func(text string)) (string, error)
}

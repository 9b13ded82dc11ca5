package engine

import (
	"context"
	"strings"

	"github.com/hookmill/hookmill/internal/model"
)

// StubStreamClient emits canned deltas (for development/testing). It walks
// the same append, cap, notify, stop-check cycle as the real client so
// orchestrator behavior is identical under the stub.
type StubStreamClient struct {
	// Chunks overrides the default canned deltas.
	Chunks []string
}

var defaultStubChunks = []string{
	"[Hook] ",
	"my wifi went out ",
	"so I yelled at the router ",
	"[Chant] reboot, reboot",
}

func (s *StubStreamClient) Stream(ctx context.Context, req StreamRequest, onText func(text string)) (string, error) {
	if req.APIKey == "" {
		return "", model.ErrMissingAPIKey
	}

	chunks := s.Chunks
	if len(chunks) == 0 {
		chunks = defaultStubChunks
	}

	var out string
	for _, delta := range chunks {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}

		out += delta
		if req.Cap != nil {
			out = req.Cap(out)
		}
		if onText != nil {
			onText(out)
		}
		for _, tok := range req.Params.Stop {
			if tok != "" && strings.Contains(out, tok) {
				return out, nil
			}
		}
	}
	return out, nil
}

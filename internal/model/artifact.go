package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Artifact is one generated lyric together with the full provenance of the
// run that produced it and the user's curation state.
type Artifact struct {
	ID           string       `json:"id"`
	CreatedAt    string       `json:"created_at"`
	Model        string       `json:"model"`
	Preset       string       `json:"preset"`
	Lens         string       `json:"lens"`
	SystemPrompt string       `json:"system_prompt"`
	UserPrompt   string       `json:"user_prompt"`
	Params       Params       `json:"params"`
	Output       string       `json:"output"`
	ContentHash  string       `json:"content_hash"`
	Tags         []string     `json:"tags"`
	Starred      bool         `json:"starred"`
	Notes        string       `json:"notes"`
	Refinements  []Refinement `json:"refinements"`
}

// Refinement is one accepted refine/expand pass recorded against an Artifact.
// The log is append-only; entries are never edited or removed.
type Refinement struct {
	ID           string `json:"id"`
	CreatedAt    string `json:"created_at"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt"`
	Output       string `json:"output"`
	Label        string `json:"label"`
}

// Params is the sampling configuration snapshot captured at generation time.
// It is a copy of the settings in effect, not a live reference.
type Params struct {
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	MaxTokens   int      `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// HashOutput returns the hex SHA-256 digest of output. Two artifacts may
// share a hash; the store treats a match as a duplicate signal, not a
// uniqueness violation.
func HashOutput(output string) string {
	sum := sha256.Sum256([]byte(output))
	return hex.EncodeToString(sum[:])
}

// Timestamp formats t the way all persisted timestamps are stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

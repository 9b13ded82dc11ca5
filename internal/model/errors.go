package model

import "errors"

var (
	// ErrNotFound is returned by store lookups for unknown artifact ids.
	ErrNotFound = errors.New("artifact not found")

	// ErrMissingAPIKey means no credential is configured. Generation fails
	// with it before any network call is made.
	ErrMissingAPIKey = errors.New("missing OpenRouter API key")

	// ErrEmptySeed rejects generation requests whose seed is blank after
	// trimming.
	ErrEmptySeed = errors.New("seed is empty")
)

package store

import (
	"context"

	"github.com/hookmill/hookmill/internal/model"
)

// Library provides artifact persistence.
type Library interface {
	Put(ctx context.Context, a model.Artifact) error
	Get(ctx context.Context, id string) (model.Artifact, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.Artifact, error)
	FindByHash(ctx context.Context, hash string) ([]model.Artifact, error)
	Filter(ctx context.Context, f model.Filter) ([]model.Artifact, error)
	ClearAll(ctx context.Context) error
}

// SettingsStore persists the settings document.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) error
}

// Repository combines all persistence operations for the API layer.
type Repository interface {
	Library
	SettingsStore
	Close() error
}

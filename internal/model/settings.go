package model

// Settings is the runtime configuration document: credential, model and
// sampling parameters, and the compose defaults. It is persisted by the
// store as one JSON value, loaded at startup and written on explicit save.
type Settings struct {
	APIKey      string   `json:"api_key"`
	Model       string   `json:"model"`
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	MaxTokens   int      `json:"max_tokens"`
	Stop        []string `json:"stop"`
	Preset      string   `json:"preset"`
	Lens        string   `json:"lens"`
	BatchSize   int      `json:"batch_size"`
	CapEnabled  bool     `json:"cap_enabled"`
}

// DefaultSettings returns the out-of-the-box configuration.
func DefaultSettings() Settings {
	return Settings{
		Model:       "deepseek/deepseek-chat-v3.1:free",
		Temperature: 0.9,
		TopP:        0.95,
		MaxTokens:   220,
		Stop:        []string{"\\n\\n", "[END]"},
		Preset:      "HOOK",
		Lens:        "NONE",
		BatchSize:   5,
		CapEnabled:  true,
	}
}

// Normalize fills blank identity fields from the defaults and clamps the
// batch size to the allowed 1..10 range.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.Model == "" {
		s.Model = def.Model
	}
	if s.Preset == "" {
		s.Preset = def.Preset
	}
	if s.Lens == "" {
		s.Lens = def.Lens
	}
	if s.BatchSize < 1 {
		s.BatchSize = 1
	}
	if s.BatchSize > 10 {
		s.BatchSize = 10
	}
	return s
}

// Params snapshots the sampling configuration for one generation run.
func (s Settings) Params() Params {
	stop := make([]string, len(s.Stop))
	copy(stop, s.Stop)
	return Params{
		Temperature: s.Temperature,
		TopP:        s.TopP,
		MaxTokens:   s.MaxTokens,
		Stop:        stop,
	}
}

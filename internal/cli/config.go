package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/dendro/pkg/pipeline"
)

// Config holds the on-disk defaults for label policy, matching, and the
// layout frame. Command-line flags override any value set here.
type Config struct {
	Separator      string  `toml:"separator"`
	TrimNames      bool    `toml:"trim_names"`
	KeepStructure  bool    `toml:"keep_structure"`
	KeepDuplicates bool    `toml:"keep_duplicates"`
	MinLeaves      int     `toml:"min_leaves"`
	Mode           string  `toml:"mode"`
	Width          float64 `toml:"width"`
	Height         float64 `toml:"height"`
	LabelReserve   float64 `toml:"label_reserve"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() Config {
	return Config{
		Separator:      pipeline.DefaultSeparator,
		TrimNames:      true,
		KeepStructure:  true,
		KeepDuplicates: true,
		MinLeaves:      pipeline.DefaultMinLeaves,
		Mode:           string(pipeline.DefaultMode),
		Width:          pipeline.DefaultWidth,
		Height:         pipeline.DefaultHeight,
		LabelReserve:   pipeline.DefaultLabelReserve,
	}
}

// LoadConfig reads a TOML config file, layering its values over the
// defaults so a partial file is valid.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// pipelineOptions seeds pipeline options from the configuration.
func (cfg Config) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Separator:      cfg.Separator,
		TrimNames:      cfg.TrimNames,
		KeepStructure:  cfg.KeepStructure,
		KeepDuplicates: cfg.KeepDuplicates,
		MinLeaves:      cfg.MinLeaves,
		Mode:           cfg.Mode,
		Width:          cfg.Width,
		Height:         cfg.Height,
		LabelReserve:   cfg.LabelReserve,
	}
}

// Package config loads the optional engine-config file spec.md §7
// describes as the immutable sampling/cap context
// {unique_cap, topk, include_top_values, sample_cap, loop_limit,
// nesting_depth_cap, char_width_cap}. Grounded on
// database/database.go's ParseGeneratorConfig/parseGeneratorConfigFromBytes:
// same "decode YAML with strict unknown-field rejection, log.Fatal-free zero
// value when no file is given, merge with override precedence" shape.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sans-lang/sans/internal/evidence"
)

// EngineConfig is the full sampling/cap context. Zero value matches
// evidence.DefaultConfig()'s defaults plus the engine's built-in loop and
// depth limits.
type EngineConfig struct {
	UniqueCap        int  `yaml:"unique_cap"`
	TopK             int  `yaml:"topk"`
	IncludeTopValues bool `yaml:"include_top_values"`
	SampleCap        int  `yaml:"sample_cap"`
	LoopLimit        int  `yaml:"loop_limit"`
	NestingDepthCap  int  `yaml:"nesting_depth_cap"`
	CharWidthCap     int  `yaml:"char_width_cap"`
}

// Default returns the engine's built-in defaults: evidence.DefaultConfig()'s
// values plus the loop/depth/char-width caps spec.md §7 names.
func Default() EngineConfig {
	ev := evidence.DefaultConfig()
	return EngineConfig{
		UniqueCap:        ev.UniqueCap,
		TopK:             ev.TopK,
		IncludeTopValues: ev.IncludeTopValues,
		SampleCap:        ev.SampleCap,
		LoopLimit:        1000000,
		NestingDepthCap:  50,
		CharWidthCap:     200,
	}
}

// Load reads and strictly decodes path, an optional YAML config file. An
// empty path returns Default() unchanged, matching
// ParseGeneratorConfig("")'s "no file given" shortcut.
func Load(path string) (EngineConfig, error) {
	if path == "" {
		return Default(), nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("config: %w", err)
	}
	return Parse(buf)
}

// Parse strictly decodes raw YAML bytes into an EngineConfig layered over
// Default(), rejecting any field the schema doesn't name.
func Parse(raw []byte) (EngineConfig, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Evidence projects the sampling-relevant fields into an evidence.Config.
func (c EngineConfig) Evidence() evidence.Config {
	return evidence.Config{
		UniqueCap:        c.UniqueCap,
		TopK:             c.TopK,
		IncludeTopValues: c.IncludeTopValues,
		SampleCap:        c.SampleCap,
	}
}

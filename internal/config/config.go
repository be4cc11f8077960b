// Package config handles baker configuration loading and management.
package config

import (
	"github.com/Faultbox/densitybaker/pkg/field"
	"github.com/Faultbox/densitybaker/pkg/volume"
)

// Config holds all baker settings.
type Config struct {
	Bake     BakeConfig     `yaml:"bake"`
	Noise    NoiseConfig    `yaml:"noise"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Source is the file the settings were read from, empty for defaults.
	Source string `yaml:"-"`
}

// BakeConfig selects the grid and the shape to bake.
type BakeConfig struct {
	Resolution  int     `yaml:"resolution"`
	Shape       string  `yaml:"shape"`    // sphere | cylinder | torus | noise
	FallOff     float32 `yaml:"fall_off"` // around 10-15 gives a soft edge
	Radius      float32 `yaml:"radius"`   // sphere and cylinder
	MajorRadius float32 `yaml:"major_radius"`
	MinorRadius float32 `yaml:"minor_radius"`
}

// NoiseConfig holds the noise term settings.
type NoiseConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Density   float32 `yaml:"density"`
	Intensity float32 `yaml:"intensity"`
}

// PipelineConfig controls how the bake is executed.
type PipelineConfig struct {
	Mode    string `yaml:"mode"`    // sliced | direct
	Backend string `yaml:"backend"` // cpu | gl
	Workers int    `yaml:"workers"` // 0 = one per CPU
}

// ExportConfig controls where the packed grid goes after a bake.
type ExportConfig struct {
	Name       string `yaml:"name"`
	Dir        string `yaml:"dir"`
	Encoding   string `yaml:"encoding"` // alpha8 | half | float
	Compress   bool   `yaml:"compress"`
	SaveToDisk bool   `yaml:"save_to_disk"`
	Catalog    string `yaml:"catalog"` // sqlite file, empty disables
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	Format  string `yaml:"format"`
}

// VolumeName names the baked volume when no export name is configured.
const VolumeName = "DensityVolume"

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Bake: BakeConfig{
			Resolution:  volume.DefaultResolution,
			Shape:       "sphere",
			FallOff:     10,
			Radius:      field.DefaultRadius,
			MajorRadius: field.DefaultTorusMajor,
			MinorRadius: field.DefaultTorusMinor,
		},
		Noise: NoiseConfig{
			Enabled:   false,
			Density:   5,
			Intensity: 5,
		},
		Pipeline: PipelineConfig{
			Mode:    "sliced",
			Backend: "cpu",
			Workers: 0,
		},
		Export: ExportConfig{
			Name:       "densityMaskTexture",
			Dir:        "assets",
			Encoding:   "alpha8",
			Compress:   true,
			SaveToDisk: false,
			Catalog:    "",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
			Format:  "console",
		},
	}
}

// BakeParams converts the bake and noise sections into evaluator
// parameters, failing with a configuration error on an unknown shape.
func (c *Config) BakeParams() (field.Params, error) {
	kind, err := field.ParseShapeKind(c.Bake.Shape)
	if err != nil {
		return field.Params{}, err
	}
	shape, err := field.NewShape(kind, c.Bake.Radius, c.Bake.MajorRadius, c.Bake.MinorRadius)
	if err != nil {
		return field.Params{}, err
	}
	p := field.Params{
		Shape:   shape,
		FallOff: c.Bake.FallOff,
		Noise: field.Noise{
			Enabled:   c.Noise.Enabled,
			Density:   c.Noise.Density,
			Intensity: c.Noise.Intensity,
		},
	}
	if err := p.Validate(); err != nil {
		return field.Params{}, err
	}
	return p, nil
}

// ExportName returns the configured asset name, falling back to one derived
// from the volume name.
func (c *Config) ExportName() string {
	if c.Export.Name != "" {
		return c.Export.Name
	}
	return VolumeName + "_densityTex"
}

// Validate checks the enumerated settings that the bake itself does not
// interpret. Shape and numeric ranges are checked by BakeParams.
func (c *Config) Validate() error {
	switch c.Pipeline.Mode {
	case "sliced", "direct":
	default:
		return volume.ConfigError("pipeline mode", "unknown mode %q", c.Pipeline.Mode)
	}
	switch c.Pipeline.Backend {
	case "cpu", "gl":
	default:
		return volume.ConfigError("pipeline backend", "unknown backend %q", c.Pipeline.Backend)
	}
	if c.Pipeline.Workers < 0 {
		return volume.ConfigError("pipeline workers", "must not be negative, got %d", c.Pipeline.Workers)
	}
	switch c.Export.Encoding {
	case "alpha8", "half", "float":
	default:
		return volume.ConfigError("export encoding", "unknown encoding %q", c.Export.Encoding)
	}
	return volume.ValidateResolution(c.Bake.Resolution)
}

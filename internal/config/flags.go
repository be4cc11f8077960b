package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagResolution = flag.Int("resolution", 0, "Grid edge length")
	flagShape      = flag.String("shape", "", "Shape: sphere, cylinder, torus or noise")
	flagFallOff    = flag.Float64("falloff", 0, "Falloff steepness")
	flagNoise      = flag.Bool("noise", false, "Enable noise modulation")
	flagMode       = flag.String("mode", "", "Pipeline mode: sliced or direct")
	flagBackend    = flag.String("backend", "", "Compute backend: cpu or gl")
	flagOut        = flag.String("out", "", "Asset output directory")
	flagName       = flag.String("name", "", "Asset name")
	flagSave       = flag.Bool("save", false, "Save the baked asset to disk")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments after ParseFlags.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagResolution > 0 {
		cfg.Bake.Resolution = *flagResolution
	}
	if *flagShape != "" {
		cfg.Bake.Shape = *flagShape
	}
	if *flagFallOff > 0 {
		cfg.Bake.FallOff = float32(*flagFallOff)
	}
	if *flagNoise {
		cfg.Noise.Enabled = true
	}
	if *flagMode != "" {
		cfg.Pipeline.Mode = *flagMode
	}
	if *flagBackend != "" {
		cfg.Pipeline.Backend = *flagBackend
	}
	if *flagOut != "" {
		cfg.Export.Dir = *flagOut
	}
	if *flagName != "" {
		cfg.Export.Name = *flagName
	}
	if *flagSave {
		cfg.Export.SaveToDisk = true
	}
}

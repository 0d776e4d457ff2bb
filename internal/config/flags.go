package config

import "flag"

var (
	flagConfig = flag.String("config", "", "Path to config file (.yaml or .toml)")
	flagScene  = flag.String("scene", "", "Scene description to expand (overrides filename)")
	flagObject = flag.String("objectpath", "", "Restrict expansion to this object path")
	flagFrame  = flag.Float64("frame", 0, "Render frame")
	flagFPS    = flag.Float64("fps", 0, "Frames per second")
	flagDebug  = flag.Bool("debug", false, "Enable debug logging")
	flagSingle = flag.Bool("single", false, "Ignore transforms, visibility and instances (single shape mode)")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagScene != "" {
		cfg.Filename = *flagScene
	}
	if *flagObject != "" {
		cfg.ObjectPath = *flagObject
	}
	if isFlagSet("frame") {
		cfg.Time.Frame = *flagFrame
	}
	if *flagFPS > 0 {
		cfg.Time.FPS = *flagFPS
	}
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Verbose = true
	}
	if *flagSingle {
		cfg.Filters.IgnoreTransforms = true
		cfg.Filters.IgnoreVisibility = true
		cfg.Filters.IgnoreInstances = true
	}
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

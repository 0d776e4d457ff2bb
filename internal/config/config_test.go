package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/multierr"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Time.FPS != 24 {
		t.Errorf("expected fps 24, got %f", cfg.Time.FPS)
	}
	if cfg.Time.Cycle != CycleHold {
		t.Errorf("expected cycle hold, got %s", cfg.Time.Cycle)
	}
	if cfg.Time.Speed != 1 {
		t.Errorf("expected speed 1, got %f", cfg.Time.Speed)
	}
	if cfg.FrameRange().Valid() {
		t.Error("expected frame range to be unset by default")
	}
	if cfg.Shape.RadiusMax != 1000000 || cfg.Shape.RadiusScale != 1 {
		t.Errorf("unexpected radius defaults %+v", cfg.Shape)
	}
	if cfg.Shape.NurbsSampleRate != 5 {
		t.Errorf("expected nurbs sample rate 5, got %d", cfg.Shape.NurbsSampleRate)
	}
	if !cfg.Shape.ReverseWinding {
		t.Error("expected reverse winding by default")
	}
	if cfg.Ref.PositionName != "Pref" || cfg.Ref.NormalName != "Nref" {
		t.Errorf("unexpected reference names %q %q", cfg.Ref.PositionName, cfg.Ref.NormalName)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "abcproc.yaml")

	yamlContent := `
filename: /cache/shot.abc
objectpath: /world/chars
nameprefix: shotA_

time:
  frame: 12
  fps: 25
  cycle: loop
  start_frame: 1
  end_frame: 48

motion:
  motion_samples: 3
  shutter_open: -0.25
  shutter_close: 0.25

attributes:
  read_point_attributes: true
  attribute_prefices_to_remove: [abc_, abc_user_]
  demote_to_object_attribute: [Cd]

logging:
  level: "debug"
  log_file: "abcproc.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Filename != "/cache/shot.abc" {
		t.Errorf("expected filename /cache/shot.abc, got %s", cfg.Filename)
	}
	if cfg.Time.Frame != 12 || cfg.Time.FPS != 25 {
		t.Errorf("expected frame 12 at 25fps, got %f at %f", cfg.Time.Frame, cfg.Time.FPS)
	}
	if cfg.Time.Cycle != CycleLoop {
		t.Errorf("expected cycle loop, got %s", cfg.Time.Cycle)
	}
	if r := cfg.FrameRange(); r.Start != 1 || r.End != 48 {
		t.Errorf("expected range 1-48, got %v", r)
	}
	if cfg.Motion.MotionSamples != 3 {
		t.Errorf("expected 3 motion samples, got %d", cfg.Motion.MotionSamples)
	}
	if !cfg.Attribs.ReadPoint || cfg.Attribs.ReadVertex {
		t.Errorf("unexpected attribute switches %+v", cfg.Attribs)
	}
	// untouched sections keep their defaults
	if cfg.Time.Speed != 1 {
		t.Errorf("expected default speed to survive, got %f", cfg.Time.Speed)
	}
	if cfg.Logging.LogFile != "abcproc.log" {
		t.Errorf("expected log file 'abcproc.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadTOML(t *testing.T) {
	tomlContent := `
filename = "/cache/shot.abc"

[time]
frame = 3.0
cycle = "bounce"

[shape]
radius_scale = 0.5
step_size = 0.1
`
	cfg, err := LoadBytes([]byte(tomlContent), FormatTOML)
	if err != nil {
		t.Fatalf("failed to load toml: %v", err)
	}
	if cfg.Time.Cycle != CycleBounce {
		t.Errorf("expected bounce, got %s", cfg.Time.Cycle)
	}
	if cfg.Shape.RadiusScale != 0.5 || cfg.Shape.StepSize != 0.1 {
		t.Errorf("unexpected shape config %+v", cfg.Shape)
	}
	if cfg.Time.FPS != 24 {
		t.Errorf("expected default fps, got %f", cfg.Time.FPS)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
time:
  fps: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadUnknownField(t *testing.T) {
	if _, err := LoadBytes([]byte("frmae: 3\n"), FormatYAML); err == nil {
		t.Error("expected unknown field to be rejected")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/abcproc.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidateAggregates(t *testing.T) {
	cfg := Default()
	cfg.Time.FPS = 0
	cfg.Time.Cycle = "pingpong"
	cfg.Shape.RadiusMin = 2
	cfg.Shape.RadiusMax = 1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if n := len(multierr.Errors(err)); n != 3 {
		t.Errorf("expected 3 aggregated errors, got %d: %v", n, err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Error("expected errors to wrap ErrInvalid")
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	start, end := 1.0, 10.0

	cfg := Default()
	cfg.Filename = "scene.yaml"
	cfg.Time.StartFrame = &start
	cfg.Time.EndFrame = &end
	cfg.Attribs.Ignore = []string{"rest"}

	for _, name := range []string{"out.yaml", "out.toml"} {
		path := filepath.Join(tmpDir, "nested", name)
		if err := cfg.SaveTo(path); err != nil {
			t.Fatalf("SaveTo(%s): %v", name, err)
		}
		loaded, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile(%s): %v", name, err)
		}
		o := DefaultNodeOverrides()
		if loaded.ShapeKey("/a", o) != cfg.ShapeKey("/a", o) {
			t.Errorf("%s: reloaded config differs:\n%s\n%s", name, loaded.ShapeKey("/a", o), cfg.ShapeKey("/a", o))
		}
	}
}

func TestShapeKey(t *testing.T) {
	base := Default()
	base.Filename = "scene.yaml"
	baseKey := base.ShapeKey("/a", DefaultNodeOverrides())

	frame := 3.0
	tests := []struct {
		name   string
		config func(c *Config)
		node   func(o *NodeOverrides)
	}{
		{"subdiv type", nil, func(o *NodeOverrides) { o.SubdivType = SubdivCatclark }},
		{"subdiv iterations", nil, func(o *NodeOverrides) { o.SubdivIterations = 2 }},
		{"smoothing", nil, func(o *NodeOverrides) { o.Smoothing = false }},
		{"disp map", nil, func(o *NodeOverrides) { o.DispMap = "disp" }},
		{"velocity scale", func(c *Config) { c.Velocity.Scale = 2 }, nil},
		{"velocity name", func(c *Config) { c.Velocity.VelocityName = "vel" }, nil},
		{"acceleration name", func(c *Config) { c.Velocity.AccelerationName = "acc" }, nil},
		{"force velocity blur", func(c *Config) { c.Velocity.ForceVelocityBlur = true }, nil},
		{"reference position name", func(c *Config) { c.Ref.PositionName = "rest" }, nil},
		{"reference normal name", func(c *Config) { c.Ref.NormalName = "rnml" }, nil},
		{"reference frame", func(c *Config) { c.Ref.Frame = &frame }, nil},
		{"radius name", func(c *Config) { c.Shape.RadiusName = "pscale" }, nil},
		{"bounds padding", func(c *Config) { c.Shape.BoundsPadding = 0.5 }, nil},
		{"ignore nurbs", func(c *Config) { c.Filters.IgnoreNurbs = true }, nil},
		{"path", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := base.Clone()
			if err != nil {
				t.Fatalf("Clone: %v", err)
			}
			o := DefaultNodeOverrides()
			if tt.config != nil {
				tt.config(cfg)
			}
			if tt.node != nil {
				tt.node(&o)
			}
			path := "/a"
			if tt.config == nil && tt.node == nil {
				path = "/b"
			}
			if got := cfg.ShapeKey(path, o); got == baseKey {
				t.Errorf("key does not change: %s", got)
			}
		})
	}

	same, err := base.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	same.NamePrefix = "p_"
	if got := same.ShapeKey("/a", DefaultNodeOverrides()); got != baseKey {
		t.Errorf("name prefix changed the key:\n%s\n%s", got, baseKey)
	}
}

func TestCloneIsDeep(t *testing.T) {
	start, end := 1.0, 10.0
	cfg := Default()
	cfg.Time.StartFrame = &start
	cfg.Time.EndFrame = &end
	cfg.Attribs.Ignore = []string{"a"}

	clone, err := cfg.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	clone.Attribs.Ignore[0] = "b"
	*clone.Time.StartFrame = 5

	if cfg.Attribs.Ignore[0] != "a" {
		t.Error("clone shares the ignore list")
	}
	if *cfg.Time.StartFrame != 1 {
		t.Error("clone shares the start frame")
	}
}

func TestForShape(t *testing.T) {
	cfg := Default()
	cfg.NamePrefix = "p_"
	cfg.OverrideAttributes = []string{"matte"}

	shape, err := cfg.ForShape("/a/b")
	if err != nil {
		t.Fatalf("ForShape: %v", err)
	}
	if shape.ObjectPath != "/a/b" || shape.NamePrefix != "" || len(shape.OverrideAttributes) != 0 {
		t.Errorf("unexpected shape config %+v", shape)
	}
	if !shape.Filters.IgnoreTransforms || !shape.Filters.IgnoreVisibility || !shape.Filters.IgnoreInstances {
		t.Error("expected filters to be disabled for a shape procedural")
	}
	if cfg.Filters.IgnoreTransforms {
		t.Error("ForShape modified the parent config")
	}
}

func TestComputeTime(t *testing.T) {
	rng := FrameRange{Start: 0, End: 24}

	tests := []struct {
		name  string
		cycle CycleType
		frame float64
		want  float64
	}{
		{"hold inside", CycleHold, 12, 0.5},
		{"hold after", CycleHold, 30, 1},
		{"hold before", CycleHold, -6, 0},
		{"loop after", CycleLoop, 30, 0.25},
		{"loop inside", CycleLoop, 6, 0.25},
		{"reverse inside", CycleReverse, 6, 0.75},
		{"reverse before", CycleReverse, -6, 1},
		{"reverse after", CycleReverse, 30, 0},
		{"bounce first cycle back", CycleBounce, 30, 0.75},
		{"bounce second cycle forward", CycleBounce, 54, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Time.Cycle = tt.cycle
			got := cfg.ComputeTime(tt.frame, rng)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ComputeTime(%v) = %v, want %v", tt.frame, got, tt.want)
			}
		})
	}
}

func TestComputeTimeSpeedOffset(t *testing.T) {
	cfg := Default()
	cfg.Time.Speed = 2
	cfg.Time.Offset = 6

	got := cfg.ComputeTime(18, UnsetRange())
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("expected t=1, got %v", got)
	}

	cfg.Time.PreserveStartFrame = true
	// extra offset = 12 * (2-1)/2 = 6
	got = cfg.ComputeTime(24, FrameRange{Start: 12, End: 100})
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("expected t=1 with preserved start frame, got %v", got)
	}
}

func TestMotionTimes(t *testing.T) {
	cfg := Default()
	cfg.Time.Frame = 24
	cfg.Motion.MotionSamples = 3
	cfg.Motion.ShutterOpen = -0.24
	cfg.Motion.ShutterClose = 0.24

	times := cfg.MotionTimes(UnsetRange())
	want := []float64{0.99, 1, 1.01}
	if len(times) != len(want) {
		t.Fatalf("expected %d times, got %v", len(want), times)
	}
	for i := range want {
		if math.Abs(times[i]-want[i]) > 1e-9 {
			t.Errorf("time %d = %v, want %v", i, times[i], want[i])
		}
	}

	cfg.Motion.ExpandSamplesIterations = 1
	if n := len(cfg.MotionTimes(UnsetRange())); n != 5 {
		t.Errorf("expected 5 times after one expansion, got %d", n)
	}
}

func TestMotionTimesRelativeAndOptimized(t *testing.T) {
	cfg := Default()
	cfg.Time.Frame = 24
	cfg.Motion.Samples = []float64{0.5, -0.5, 0, 0.0001}
	cfg.Motion.RelativeSamples = true
	cfg.Motion.OptimizeSamples = true

	times := cfg.MotionTimes(UnsetRange())
	if len(times) != 3 {
		t.Fatalf("expected the near duplicate to be dropped, got %v", times)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			t.Errorf("times not increasing: %v", times)
		}
	}
}

func TestAttributesTime(t *testing.T) {
	cfg := Default()
	motion := []float64{0.9, 1, 1.2}

	cases := map[AttributesFrame]float64{
		AttributesFrameRender:       1,
		AttributesFrameShutterOpen:  0.9,
		AttributesFrameShutterClose: 1.2,
		AttributesFrameShutter:      1.05,
	}
	for frame, want := range cases {
		cfg.Attribs.Frame = frame
		if got := cfg.AttributesTime(1, motion); math.Abs(got-want) > 1e-9 {
			t.Errorf("%s: got %v, want %v", frame, got, want)
		}
	}
}

func TestCleanAttribName(t *testing.T) {
	cfg := Default()
	cfg.Attribs.PrefixesToRemove = []string{"abc_", "abc_user_"}

	tests := map[string]string{
		"abc_user_color": "color",
		"abc_color":      "color",
		"abc_":           "abc_",
		"color":          "color",
	}
	for in, want := range tests {
		if got := cfg.CleanAttribName(in); got != want {
			t.Errorf("CleanAttribName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAdjustRadius(t *testing.T) {
	cfg := Default()
	cfg.Shape.RadiusScale = 2
	cfg.Shape.RadiusMin = 0.1
	cfg.Shape.RadiusMax = 1

	if got := cfg.AdjustRadius(0.25); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
	if got := cfg.AdjustRadius(0.01); math.Abs(float64(got)-0.1) > 1e-6 {
		t.Errorf("expected clamp to 0.1, got %v", got)
	}
	if got := cfg.AdjustRadius(3); got != 1 {
		t.Errorf("expected clamp to 1, got %v", got)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" || !cfg.Verbose {
					t.Errorf("expected debug logging and verbose, got %s %t", cfg.Logging.Level, cfg.Verbose)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "single flag",
			setup: func() { *flagSingle = true },
			verify: func(cfg *Config) {
				if !cfg.Filters.IgnoreTransforms || !cfg.Filters.IgnoreVisibility || !cfg.Filters.IgnoreInstances {
					t.Errorf("expected all filters ignored, got %+v", cfg.Filters)
				}
			},
			teardown: func() { *flagSingle = false },
		},
		{
			name:  "scene flag",
			setup: func() { *flagScene = "shot.yaml" },
			verify: func(cfg *Config) {
				if cfg.Filename != "shot.yaml" {
					t.Errorf("expected filename shot.yaml, got %s", cfg.Filename)
				}
			},
			teardown: func() { *flagScene = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(cfg)
		})
	}
}

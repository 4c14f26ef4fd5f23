package kinetic

import (
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Settings holds the solver tunables of a World. Geometry tolerances that
// shape data depends on live in package geom as constants.
type Settings struct {
	// VelocityThreshold is the approach speed below which collisions are
	// treated as inelastic.
	VelocityThreshold float64 `yaml:"velocity_threshold"`

	// Baumgarte is the fraction of overlap resolved per position iteration.
	Baumgarte float64 `yaml:"baumgarte"`

	// MaxLinearCorrection caps the position correction of one iteration,
	// which prevents overshoot.
	MaxLinearCorrection float64 `yaml:"max_linear_correction"`

	// MaxAngularCorrection caps the angular correction of one joint
	// position iteration.
	MaxAngularCorrection float64 `yaml:"max_angular_correction"`

	// MaxTranslation is the largest distance a body may travel in one step.
	MaxTranslation float64 `yaml:"max_translation"`

	// MaxRotation is the largest angle a body may turn in one step.
	MaxRotation float64 `yaml:"max_rotation"`

	LinearSleepTolerance  float64 `yaml:"linear_sleep_tolerance"`
	AngularSleepTolerance float64 `yaml:"angular_sleep_tolerance"`

	// TimeToSleep is how long an island must stay below the sleep
	// tolerances before it falls asleep.
	TimeToSleep float64 `yaml:"time_to_sleep"`

	VelocityIterations int `yaml:"velocity_iterations"`
	PositionIterations int `yaml:"position_iterations"`

	// Workers is the number of goroutines that solve islands. 1 solves them
	// on the calling goroutine.
	Workers int `yaml:"workers"`

	AllowSleep        bool `yaml:"allow_sleep"`
	WarmStarting      bool `yaml:"warm_starting"`
	ContinuousPhysics bool `yaml:"continuous_physics"`
	BlockSolve        bool `yaml:"block_solve"`
}

// DefaultSettings returns the tuned defaults for meters, kilograms and
// seconds at 60 Hz.
func DefaultSettings() Settings {
	return Settings{
		VelocityThreshold:     1.0,
		Baumgarte:             0.2,
		MaxLinearCorrection:   0.2,
		MaxAngularCorrection:  8.0 / 180.0 * math.Pi,
		MaxTranslation:        2.0,
		MaxRotation:           0.5 * math.Pi,
		LinearSleepTolerance:  0.01,
		AngularSleepTolerance: 2.0 / 180.0 * math.Pi,
		TimeToSleep:           0.5,
		VelocityIterations:    8,
		PositionIterations:    3,
		Workers:               1,
		AllowSleep:            true,
		WarmStarting:          true,
		ContinuousPhysics:     true,
		BlockSolve:            true,
	}
}

// Validate reports the first setting that is out of range.
func (s Settings) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"baumgarte", s.Baumgarte},
		{"max_linear_correction", s.MaxLinearCorrection},
		{"max_angular_correction", s.MaxAngularCorrection},
		{"max_translation", s.MaxTranslation},
		{"max_rotation", s.MaxRotation},
	}
	for _, p := range positive {
		if !(p.value > 0) {
			return errors.Errorf("settings: %s must be positive, got %v", p.name, p.value)
		}
	}

	if s.Baumgarte > 1 {
		return errors.Errorf("settings: baumgarte must be at most 1, got %v", s.Baumgarte)
	}
	if s.VelocityThreshold < 0 || s.LinearSleepTolerance < 0 || s.AngularSleepTolerance < 0 || s.TimeToSleep < 0 {
		return errors.New("settings: thresholds and tolerances must not be negative")
	}
	if s.VelocityIterations < 1 {
		return errors.Errorf("settings: velocity_iterations must be at least 1, got %d", s.VelocityIterations)
	}
	if s.PositionIterations < 1 {
		return errors.Errorf("settings: position_iterations must be at least 1, got %d", s.PositionIterations)
	}
	if s.Workers < 1 {
		return errors.Errorf("settings: workers must be at least 1, got %d", s.Workers)
	}
	return nil
}

// LoadSettings reads YAML settings from path. Keys missing from the file
// keep their default value.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, errors.Wrap(err, "settings: read")
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), errors.Wrapf(err, "settings: parse %s", path)
	}
	if err := s.Validate(); err != nil {
		return DefaultSettings(), errors.Wrapf(err, "settings: %s", path)
	}
	return s, nil
}

// SaveSettings writes s to path as YAML, creating the directory if needed.
func SaveSettings(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "settings: create directory")
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "settings: encode")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "settings: write")
}

package kinetic_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/setanarut/kinetic"
	"github.com/setanarut/vec"
)

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "kinetic.yaml")

	want := kinetic.DefaultSettings()
	want.VelocityIterations = 12
	want.Workers = 4
	want.AllowSleep = false
	want.Baumgarte = 0.15

	if err := kinetic.SaveSettings(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := kinetic.LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v want %+v", got, want)
	}
}

func TestSettingsMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kinetic.yaml")
	if err := os.WriteFile(path, []byte("velocity_iterations: 20\nwarm_starting: false\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := kinetic.LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}

	want := kinetic.DefaultSettings()
	want.VelocityIterations = 20
	want.WarmStarting = false
	if got != want {
		t.Errorf("got %+v want %+v", got, want)
	}
}

func TestSettingsErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "velocity_iterations: [1, 2\n", "parse"},
		{"type", "velocity_iterations: many\n", "parse"},
		{"range", "baumgarte: 2\n", "baumgarte"},
		{"workers", "workers: 0\n", "workers"},
		{"position", "position_iterations: 0\n", "position_iterations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			s, err := kinetic.LoadSettings(path)
			if err == nil {
				t.Fatalf("got nil error for %q", tt.content)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %q want it to mention %q", err, tt.want)
			}
			if s != kinetic.DefaultSettings() {
				t.Errorf("got %+v want defaults on error", s)
			}
		})
	}

	if _, err := kinetic.LoadSettings(filepath.Join(dir, "missing.yaml")); !os.IsNotExist(errors.Cause(err)) {
		t.Errorf("got %v want a not-exist error", err)
	}
}

func TestSetSettings(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})

	bad := kinetic.DefaultSettings()
	bad.VelocityIterations = 0
	if err := w.SetSettings(bad); err == nil {
		t.Errorf("got nil error for zero velocity iterations")
	}
	if got := w.Settings().VelocityIterations; got != 8 {
		t.Errorf("got %d velocity iterations want 8 after rejected update", got)
	}

	good := kinetic.DefaultSettings()
	good.ContinuousPhysics = false
	if err := w.SetSettings(good); err != nil {
		t.Fatal(err)
	}
	if w.Settings().ContinuousPhysics {
		t.Errorf("got continuous physics on after disabling it")
	}
}

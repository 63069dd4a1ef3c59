// MODUL: launch_test
// ZWECK: Unit-Tests fuer LaunchConfig und FitLaunch
// INPUT: Keine
// OUTPUT: Test-Ergebnisse
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: testing (stdlib), github.com/google/go-cmp
// HINWEISE: Geraete-Limit 256 wenn MaxWorkGroupSize nicht gesetzt

package ml

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFitLaunch(t *testing.T) {
	cases := []struct {
		name      string
		global    [3]int
		preferred [3]int
		caps      DeviceCaps
		want      LaunchConfig
	}{
		{
			name:      "rundet global auf",
			global:    [3]int{100, 1, 1},
			preferred: [3]int{16, 1, 1},
			want:      LaunchConfig{Global: [3]int{112, 1, 1}, Local: [3]int{16, 1, 1}},
		},
		{
			name:      "kleines global begrenzt lokal",
			global:    [3]int{3, 1, 1},
			preferred: [3]int{16, 1, 1},
			want:      LaunchConfig{Global: [3]int{4, 1, 1}, Local: [3]int{4, 1, 1}},
		},
		{
			name:      "geraete-limit halbiert groesste dimension",
			global:    [3]int{64, 64, 1},
			preferred: [3]int{32, 32, 1},
			caps:      DeviceCaps{MaxWorkGroupSize: 256},
			want:      LaunchConfig{Global: [3]int{64, 64, 1}, Local: [3]int{16, 16, 1}},
		},
		{
			name:      "null wird zu eins",
			global:    [3]int{0, 8, 0},
			preferred: [3]int{0, 8, 0},
			want:      LaunchConfig{Global: [3]int{1, 8, 1}, Local: [3]int{1, 8, 1}},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FitLaunch(tt.global, tt.preferred, tt.caps)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FitLaunch mismatch (-want +got):\n%s", diff)
			}
			if err := got.Validate(tt.caps); err != nil {
				t.Errorf("FitLaunch liefert ungueltige Konfiguration: %v", err)
			}
		})
	}
}

func TestLaunchValidate(t *testing.T) {
	caps := DeviceCaps{MaxWorkGroupSize: 64}
	cases := []struct {
		name    string
		c       LaunchConfig
		wantErr bool
	}{
		{"gueltig", LaunchConfig{Global: [3]int{64, 4, 1}, Local: [3]int{16, 4, 1}}, false},
		{"teilt nicht", LaunchConfig{Global: [3]int{8, 1, 1}, Local: [3]int{3, 1, 1}}, true},
		{"lokal null", LaunchConfig{Global: [3]int{8, 1, 1}, Local: [3]int{0, 1, 1}}, true},
		{"global negativ", LaunchConfig{Global: [3]int{-8, 1, 1}, Local: [3]int{1, 1, 1}}, true},
		{"ueber limit", LaunchConfig{Global: [3]int{128, 1, 1}, Local: [3]int{128, 1, 1}}, true},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate(caps)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate: erwartet Fehler=%v, bekommen %v", tt.wantErr, err)
			}
		})
	}
}

func TestLaunchGroups(t *testing.T) {
	c := LaunchConfig{Global: [3]int{64, 4, 1}, Local: [3]int{16, 2, 1}}
	if got := c.Groups(); got != 8 {
		t.Errorf("Groups: erwartet 8, bekommen %d", got)
	}
	if got := c.LocalVolume(); got != 32 {
		t.Errorf("LocalVolume: erwartet 32, bekommen %d", got)
	}
	if got := c.String(); got != "gws=64x4x1 lws=16x2x1" {
		t.Errorf("String: bekommen %q", got)
	}
}

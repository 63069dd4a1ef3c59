// launch.go - Work-Group-Konfiguration (global/lokal) fuer Kernel-Starts
package ml

import (
	"errors"
	"fmt"
)

// LaunchConfig is a 3-D grid description. Unused dimensions are 1.
type LaunchConfig struct {
	Global [3]int `json:"global"`
	Local  [3]int `json:"local"`
}

// LocalVolume returns the number of work items in a group.
func (c LaunchConfig) LocalVolume() int {
	return c.Local[0] * c.Local[1] * c.Local[2]
}

// Groups returns the number of work groups.
func (c LaunchConfig) Groups() int {
	n := 1
	for i := range 3 {
		if c.Local[i] > 0 {
			n *= c.Global[i] / c.Local[i]
		}
	}
	return n
}

// Validate checks positive sizes, local dividing global and the device limit.
func (c LaunchConfig) Validate(caps DeviceCaps) error {
	for i := range 3 {
		if c.Global[i] <= 0 || c.Local[i] <= 0 {
			return fmt.Errorf("dim %d: non-positive work size (global %d, local %d)", i, c.Global[i], c.Local[i])
		}
		if c.Global[i]%c.Local[i] != 0 {
			return fmt.Errorf("dim %d: local %d does not divide global %d", i, c.Local[i], c.Global[i])
		}
	}
	if v := c.LocalVolume(); v > caps.MaxLocal() {
		return fmt.Errorf("work group of %d exceeds device limit %d", v, caps.MaxLocal())
	}
	return nil
}

func (c LaunchConfig) String() string {
	return fmt.Sprintf("gws=%dx%dx%d lws=%dx%dx%d",
		c.Global[0], c.Global[1], c.Global[2], c.Local[0], c.Local[1], c.Local[2])
}

var errEmptyGrid = errors.New("empty grid")

// FitLaunch builds a launch config for the given global sizes. Each global dimension
// is rounded up to a multiple of its local size; local sizes start at preferred and
// are halved until the device limit holds.
func FitLaunch(global, preferred [3]int, caps DeviceCaps) (LaunchConfig, error) {
	var c LaunchConfig
	for i := range 3 {
		if global[i] <= 0 {
			global[i] = 1
		}
		if preferred[i] <= 0 {
			preferred[i] = 1
		}
		c.Local[i] = clampLocal(preferred[i], global[i])
	}

	limit := caps.MaxLocal()
	for c.LocalVolume() > limit {
		// groesste Dimension zuerst halbieren
		j := 0
		for i := 1; i < 3; i++ {
			if c.Local[i] > c.Local[j] {
				j = i
			}
		}
		if c.Local[j] == 1 {
			return LaunchConfig{}, errEmptyGrid
		}
		c.Local[j] /= 2
	}

	for i := range 3 {
		c.Global[i] = roundUp(global[i], c.Local[i])
	}
	return c, nil
}

// clampLocal limits the local size to the next power of two >= global.
func clampLocal(v, global int) int {
	p := 1
	for p < global {
		p <<= 1
	}
	if v > p {
		return p
	}
	if v < 1 {
		return 1
	}
	return v
}

func roundUp(v, m int) int {
	return (v + m - 1) / m * m
}

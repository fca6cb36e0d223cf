package tilt

import (
	"math"
	"strings"
)

const (
	calibrationWindow = 10
	dampingFactor     = 0.8
	maxTiltDegrees    = 20.0
)

// Sample is one raw device-orientation reading. Unit is "deg" or "rad";
// empty means degrees.
type Sample struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Unit  string  `json:"unit,omitempty"`
}

// State is the calibrated two-axis tilt driving the holographic lighting,
// in degrees, clamped to ±20. Derived and ephemeral; never persisted.
type State struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// Neutral is the at-rest output.
var Neutral = State{}

// Calibrator turns noisy raw orientation samples into a stable, centered
// tilt signal. The first ten samples only feed the baseline mean and are not
// emitted; later samples are bias-corrected against that baseline, damped
// and clamped. The signal is therefore relative to however the user happened
// to be holding the device when sampling began, not absolute to gravity.
type Calibrator struct {
	count      int
	sumPitch   float64
	sumRoll    float64
	basePitch  float64
	baseRoll   float64
	calibrated bool
}

// NewCalibrator starts with an empty calibration window.
func NewCalibrator() *Calibrator {
	return &Calibrator{}
}

// Observe feeds one raw sample. emit is false while the calibration window
// is still filling; once it closes, every sample yields a calibrated State.
func (c *Calibrator) Observe(sample Sample) (state State, emit bool) {
	pitch, roll := normalizeDegrees(sample)

	if !c.calibrated {
		c.sumPitch += pitch
		c.sumRoll += roll
		c.count++
		if c.count < calibrationWindow {
			return Neutral, false
		}
		c.basePitch = c.sumPitch / float64(c.count)
		c.baseRoll = c.sumRoll / float64(c.count)
		c.calibrated = true
		return Neutral, false
	}

	return State{
		Pitch: clampTilt((pitch - c.basePitch) * dampingFactor),
		Roll:  clampTilt((roll - c.baseRoll) * dampingFactor),
	}, true
}

// Calibrated reports whether the baseline has been established.
func (c *Calibrator) Calibrated() bool {
	return c.calibrated
}

// Reset discards the baseline so the next samples rebuild it.
func (c *Calibrator) Reset() {
	*c = Calibrator{}
}

func normalizeDegrees(sample Sample) (pitch, roll float64) {
	if strings.EqualFold(strings.TrimSpace(sample.Unit), "rad") {
		return sample.Pitch * 180 / math.Pi, sample.Roll * 180 / math.Pi
	}
	return sample.Pitch, sample.Roll
}

func clampTilt(value float64) float64 {
	if value < -maxTiltDegrees {
		return -maxTiltDegrees
	}
	if value > maxTiltDegrees {
		return maxTiltDegrees
	}
	return value
}

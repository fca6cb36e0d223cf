package tilt

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFastSampler(source Source) *Sampler {
	s := NewSampler(source)
	s.interval = time.Millisecond
	return s
}

func TestSamplerWithoutSourceStaysInactive(t *testing.T) {
	s := NewSampler(nil)

	s.Start()
	assert.False(t, s.Active())
	assert.Equal(t, Neutral, s.Latest())

	// Stop on an inactive sampler is harmless.
	s.Stop()
	assert.Equal(t, Neutral, s.Latest())
}

func TestSamplerEmitsAfterCalibration(t *testing.T) {
	var reads atomic.Int64
	s := newFastSampler(SourceFunc(func() (Sample, bool) {
		n := reads.Add(1)
		if n <= calibrationWindow {
			return Sample{Pitch: 10, Roll: 10}, true
		}
		return Sample{Pitch: 20, Roll: 10}, true
	}))
	defer s.Stop()

	s.Start()
	require.True(t, s.Active())

	require.Eventually(t, func() bool {
		return s.Latest() != Neutral
	}, time.Second, time.Millisecond)

	state := s.Latest()
	assert.InDelta(t, 8.0, state.Pitch, 1e-9)
	assert.InDelta(t, 0.0, state.Roll, 1e-9)
}

func TestSamplerStartIsIdempotent(t *testing.T) {
	s := newFastSampler(SourceFunc(func() (Sample, bool) { return Sample{}, true }))
	defer s.Stop()

	s.Start()
	s.Start()
	assert.True(t, s.Active())
}

func TestSamplerStopResetsToNeutral(t *testing.T) {
	// The source has to move away from its calibration baseline, otherwise
	// the output is pinned at neutral and there is nothing for Stop to reset.
	var reads atomic.Int64
	s := newFastSampler(SourceFunc(func() (Sample, bool) {
		if reads.Add(1) <= calibrationWindow {
			return Sample{}, true
		}
		return Sample{Pitch: 30}, true
	}))

	s.Start()
	require.Eventually(t, func() bool {
		return s.Latest() != Neutral
	}, time.Second, time.Millisecond)

	s.Stop()
	assert.False(t, s.Active())
	assert.Equal(t, Neutral, s.Latest())
}

func TestSamplerUnavailableReadsAreSkipped(t *testing.T) {
	var reads atomic.Int64
	s := newFastSampler(SourceFunc(func() (Sample, bool) {
		reads.Add(1)
		return Sample{}, false
	}))
	defer s.Stop()

	s.Start()
	require.Eventually(t, func() bool {
		return reads.Load() > calibrationWindow
	}, time.Second, time.Millisecond)

	// Readings never arrived, so the output never left neutral.
	assert.Equal(t, Neutral, s.Latest())
}

func TestSamplerRecalibrateSurvivesRestart(t *testing.T) {
	s := newFastSampler(SourceFunc(func() (Sample, bool) { return Sample{Pitch: 10}, true }))

	s.Start()
	require.Eventually(t, func() bool {
		return s.calibratedNow()
	}, time.Second, time.Millisecond)
	s.Stop()

	s.Recalibrate()
	assert.False(t, s.calibratedNow())
}

func (s *Sampler) calibratedNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calibrator.Calibrated()
}

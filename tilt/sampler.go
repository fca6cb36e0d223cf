package tilt

import (
	"context"
	"sync"
	"time"
)

const sampleInterval = 33 * time.Millisecond // ~30 Hz

// Source supplies raw orientation samples from whatever sensor backs the
// device. ok is false when no reading is available right now.
type Source interface {
	Read() (Sample, bool)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func() (Sample, bool)

// Read implements Source.
func (f SourceFunc) Read() (Sample, bool) { return f() }

// Sampler polls a Source at a fixed rate and keeps only the latest
// calibrated value; there is no backlog, and samples lost on Stop are lost
// by design. A nil source leaves the sampler permanently inactive with a
// neutral output, which is not an error.
type Sampler struct {
	mu         sync.Mutex
	source     Source
	calibrator *Calibrator
	latest     State
	cancel     context.CancelFunc
	interval   time.Duration
}

// NewSampler builds a sampler over the given source.
func NewSampler(source Source) *Sampler {
	return &Sampler{
		source:     source,
		calibrator: NewCalibrator(),
		interval:   sampleInterval,
	}
}

// Start begins sampling. Calling it while active has no effect, and with no
// underlying sensor it is a silent no-op.
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil || s.source == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)
}

// Stop halts sampling and resets the output to neutral. The calibration
// baseline survives unless Recalibrate is requested.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.latest = Neutral
}

// Recalibrate forces a fresh baseline to be computed from the samples that
// arrive after the next Start.
func (s *Sampler) Recalibrate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calibrator.Reset()
}

// Active reports whether the sampling loop is running.
func (s *Sampler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Latest returns the most recent calibrated tilt; neutral while inactive or
// during the calibration window.
func (s *Sampler) Latest() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Sampler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Sampler) tick() {
	sample, ok := s.source.Read()
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state, emit := s.calibrator.Observe(sample); emit {
		s.latest = state
	}
}

package drafts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformModelDragAccumulates(t *testing.T) {
	m := NewTransformModel()

	m.BeginDrag()
	m.UpdateDrag(10, -5)
	m.UpdateDrag(25, 15)
	m.EndDrag()

	require.Equal(t, 25.0, m.Current().OffsetX)
	require.Equal(t, 15.0, m.Current().OffsetY)

	// A second drag works against the committed baseline, not the origin.
	m.BeginDrag()
	m.UpdateDrag(5, 5)
	m.EndDrag()

	assert.Equal(t, 30.0, m.Current().OffsetX)
	assert.Equal(t, 20.0, m.Current().OffsetY)
}

func TestTransformModelUpdateOutsideGestureIgnored(t *testing.T) {
	m := NewTransformModel()

	m.UpdateDrag(100, 100)
	m.UpdatePinch(4)

	assert.Equal(t, DefaultTransform(), m.Current())
}

func TestTransformModelPinchCompounds(t *testing.T) {
	m := NewTransformModel()

	m.BeginPinch()
	m.UpdatePinch(2.0)
	m.EndPinch()
	require.Equal(t, 2.0, m.Current().Scale)

	m.BeginPinch()
	m.UpdatePinch(1.2)
	m.EndPinch()
	assert.InDelta(t, 2.4, m.Current().Scale, 1e-9)
}

func TestTransformModelPinchClampsOnEnd(t *testing.T) {
	cases := []struct {
		name   string
		ratios []float64
		want   float64
	}{
		{"overshoot high", []float64{2.0, 5.0}, 3.0},
		{"overshoot low", []float64{0.5, 0.1}, 0.5},
		{"in bounds", []float64{1.5}, 1.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewTransformModel()
			m.BeginPinch()
			for _, ratio := range tc.ratios {
				m.UpdatePinch(ratio)
			}
			m.EndPinch()
			assert.Equal(t, tc.want, m.Current().Scale)
		})
	}
}

func TestTransformModelPinchMayOvershootMidGesture(t *testing.T) {
	m := NewTransformModel()

	m.BeginPinch()
	m.UpdatePinch(5.0)
	require.Equal(t, 5.0, m.Current().Scale)

	m.EndPinch()
	require.Equal(t, 3.0, m.Current().Scale)

	// The clamped value is the committed baseline for the next gesture.
	m.BeginPinch()
	m.UpdatePinch(0.5)
	m.EndPinch()
	assert.Equal(t, 1.5, m.Current().Scale)
}

func TestTransformModelLoadResetsBaseline(t *testing.T) {
	m := NewTransformModel()
	m.BeginDrag()
	m.UpdateDrag(50, 50)

	m.Load(Transform{OffsetX: 7, OffsetY: -3, Scale: 2.5})

	require.Equal(t, Transform{OffsetX: 7, OffsetY: -3, Scale: 2.5}, m.Current())

	// No gesture is in progress after a load.
	m.UpdateDrag(100, 100)
	assert.Equal(t, 7.0, m.Current().OffsetX)

	m.BeginDrag()
	m.UpdateDrag(3, 3)
	m.EndDrag()
	assert.Equal(t, 10.0, m.Current().OffsetX)
}

func TestTransformModelLoadZeroScaleDefaults(t *testing.T) {
	m := NewTransformModel()
	m.Load(Transform{})
	assert.Equal(t, 1.0, m.Current().Scale)
}

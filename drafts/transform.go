package drafts

// Scale bounds enforced when a pinch gesture ends. Mid-gesture values may
// overshoot; committed values never do.
const (
	minScale = 0.5
	maxScale = 3.0
)

// TransformModel tracks image placement across multi-step gesture sequences.
// Each gesture works against the baseline committed by the previous one, so
// drag→pinch→drag compounds correctly without drift.
type TransformModel struct {
	current Transform

	committedOffsetX float64
	committedOffsetY float64
	committedScale   float64

	dragging bool
	pinching bool
}

// NewTransformModel starts at the neutral placement.
func NewTransformModel() *TransformModel {
	m := &TransformModel{}
	m.Load(DefaultTransform())
	return m
}

// Current returns the live transform, including any in-progress gesture.
func (m *TransformModel) Current() Transform {
	return m.current
}

// Load resets the model from persisted values and treats them as the
// committed baseline with no gesture in progress.
func (m *TransformModel) Load(t Transform) {
	if t.Scale == 0 {
		t.Scale = 1.0
	}
	m.current = t
	m.committedOffsetX = t.OffsetX
	m.committedOffsetY = t.OffsetY
	m.committedScale = t.Scale
	m.dragging = false
	m.pinching = false
}

// BeginDrag captures the committed offset as the reference for the gesture.
func (m *TransformModel) BeginDrag() {
	m.dragging = true
}

// UpdateDrag applies the cumulative translation since the drag began.
func (m *TransformModel) UpdateDrag(deltaX, deltaY float64) {
	if !m.dragging {
		return
	}
	m.current.OffsetX = m.committedOffsetX + deltaX
	m.current.OffsetY = m.committedOffsetY + deltaY
}

// EndDrag commits the current offset as the new baseline.
func (m *TransformModel) EndDrag() {
	if !m.dragging {
		return
	}
	m.dragging = false
	m.committedOffsetX = m.current.OffsetX
	m.committedOffsetY = m.current.OffsetY
}

// BeginPinch captures the committed scale as the reference for the gesture.
func (m *TransformModel) BeginPinch() {
	m.pinching = true
}

// UpdatePinch applies the cumulative ratio since the pinch began. The result
// may transiently leave the scale bounds.
func (m *TransformModel) UpdatePinch(ratio float64) {
	if !m.pinching || ratio <= 0 {
		return
	}
	m.current.Scale = m.committedScale * ratio
}

// EndPinch clamps the scale into bounds and commits it.
func (m *TransformModel) EndPinch() {
	if !m.pinching {
		return
	}
	m.pinching = false
	m.current.Scale = clampScale(m.current.Scale)
	m.committedScale = m.current.Scale
}

func clampScale(scale float64) float64 {
	if scale < minScale {
		return minScale
	}
	if scale > maxScale {
		return maxScale
	}
	return scale
}

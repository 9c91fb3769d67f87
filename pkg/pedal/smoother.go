package pedal

// Alpha returns the update coefficient for a smoothing factor.
// smoothing is clamped to 0..MaxSmoothing, so alpha stays in [0.02, 1].
func Alpha(smoothing int) float32 {
	s := clampInt(smoothing, 0, MaxSmoothing)
	return 1 - float32(s)/100
}

// Smoother is a single-pole exponential low-pass filter. The zero value starts at 0.
type Smoother struct {
	value float32
}

// Update blends target into the filter state and returns the new state.
func (s *Smoother) Update(target float32, smoothing int) float32 {
	alpha := Alpha(smoothing)
	s.value = s.value*(1-alpha) + target*alpha
	return s.value
}

// Reset forces the filter state to v.
func (s *Smoother) Reset(v float32) {
	s.value = v
}

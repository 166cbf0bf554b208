package analysis

// ViewportMetrics is the geometry of the scrollable table container.
type ViewportMetrics struct {
	ScrollTop    float64 `json:"scroll_top"`
	ScrollHeight float64 `json:"scroll_height"`
	ClientHeight float64 `json:"client_height"`
}

// ScrollState is derived from the last observed viewport metrics.
type ScrollState struct {
	AtBottom bool `json:"at_bottom"`
}

func (s ScrollState) ShowUp() bool   { return s.AtBottom }
func (s ScrollState) ShowDown() bool { return !s.AtBottom }

// ScrollTracker recomputes the scroll state on every scroll event. The zero value
// is the unmeasured state: down affordance visible, up affordance hidden.
type ScrollTracker struct {
	state ScrollState
}

func (t *ScrollTracker) State() ScrollState { return t.state }

func (t *ScrollTracker) Reset() { t.state = ScrollState{} }

// OnScroll records m and returns the new state. A viewport without overflow is
// always at the bottom.
func (t *ScrollTracker) OnScroll(m ViewportMetrics) ScrollState {
	top, height, client := clamp(m.ScrollTop), clamp(m.ScrollHeight), clamp(m.ClientHeight)
	t.state = ScrollState{AtBottom: top+client >= height}
	return t.state
}

func clamp(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	return v
}

package ui

import "github.com/charmbracelet/bubbles/viewport"

// ensureViewportSize resizes the viewport preserving YOffset so toggling
// between the preview and detail layouts does not reset scrolling. A
// same-size call is a no-op.
func (m *TuiModel) ensureViewportSize(width, height int) {
	if m.vp.Width != width || m.vp.Height != height {
		oldOff := m.vp.YOffset
		m.vp = viewport.New(width, height)
		m.vp.YOffset = oldOff
	}
}

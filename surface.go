package main

// RenderSurface is where the presenter draws. All methods are called from the
// presenter goroutine; implementations must not block it on I/O.
type RenderSurface interface {
	SetOriginalText(s string)
	SetTranslatedText(s string)
	SetOpacity(f float64)
	SetVisible(original, translation bool)
	SetStatus(message string)
	SetControlsVisible(visible bool)
	ApplySettings(s DisplaySettings)
}

// MultiSurface fans every call out to several surfaces in order.
type MultiSurface []RenderSurface

func (m MultiSurface) SetOriginalText(s string) {
	for _, r := range m {
		r.SetOriginalText(s)
	}
}

func (m MultiSurface) SetTranslatedText(s string) {
	for _, r := range m {
		r.SetTranslatedText(s)
	}
}

func (m MultiSurface) SetOpacity(f float64) {
	for _, r := range m {
		r.SetOpacity(f)
	}
}

func (m MultiSurface) SetVisible(original, translation bool) {
	for _, r := range m {
		r.SetVisible(original, translation)
	}
}

func (m MultiSurface) SetStatus(message string) {
	for _, r := range m {
		r.SetStatus(message)
	}
}

func (m MultiSurface) SetControlsVisible(visible bool) {
	for _, r := range m {
		r.SetControlsVisible(visible)
	}
}

func (m MultiSurface) ApplySettings(s DisplaySettings) {
	for _, r := range m {
		r.ApplySettings(s)
	}
}

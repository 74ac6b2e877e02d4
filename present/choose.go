package present

// ChooseSurfaceFormat picks R8G8B8A8_SRGB, then B8G8R8A8_SRGB, then any sRGB
// format, then the first one listed. ok is false for an empty list.
func ChooseSurfaceFormat(formats []SurfaceFormat) (SurfaceFormat, bool) {
	if len(formats) == 0 {
		return SurfaceFormat{}, false
	}
	for _, want := range []FormatKind{FormatRGBA8SRGB, FormatBGRA8SRGB} {
		for _, f := range formats {
			if f.Kind == want {
				return f, true
			}
		}
	}
	for _, f := range formats {
		if f.SRGB {
			return f, true
		}
	}
	return formats[0], true
}

// ChoosePresentMode returns FIFO with vsync and MAILBOX without it when the
// surface offers it. FIFO is always available.
func ChoosePresentMode(modes []PresentMode, vsync bool) PresentMode {
	if vsync {
		return PresentModeFIFO
	}
	for _, m := range modes {
		if m == PresentModeMailbox {
			return m
		}
	}
	return PresentModeFIFO
}

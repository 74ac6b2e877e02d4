package vkgpu

/*
#cgo linux LDFLAGS: -lSDL3
#cgo darwin LDFLAGS: -lSDL3
#cgo windows LDFLAGS: -lSDL3
#include <SDL3/SDL.h>

enum {
	windowQuit    = 1,
	windowResized = 2,
};

static int drainWindowEvents(void) {
	SDL_Event event;
	int flags = 0;
	while (SDL_PollEvent(&event)) {
		switch (event.type) {
		case SDL_EVENT_QUIT:
		case SDL_EVENT_WINDOW_CLOSE_REQUESTED:
			flags |= windowQuit;
			break;
		case SDL_EVENT_WINDOW_PIXEL_SIZE_CHANGED:
			flags |= windowResized;
			break;
		}
	}
	return flags;
}

// The process has a single window.
static bool firstWindowPixelSize(int *w, int *h) {
	int count = 0;
	SDL_Window **windows = SDL_GetWindows(&count);
	if (windows == NULL) {
		return false;
	}
	bool ok = count > 0 && SDL_GetWindowSizeInPixels(windows[0], w, h);
	SDL_free(windows);
	return ok;
}
*/
import "C"

type windowEvents struct {
	quit    bool
	resized bool
}

// pollEvents empties the SDL event queue. It must be called on the thread
// that created the window.
func pollEvents() windowEvents {
	flags := C.drainWindowEvents()
	return windowEvents{
		quit:    flags&C.windowQuit != 0,
		resized: flags&C.windowResized != 0,
	}
}

// windowPixelSize is the drawable size of the window in pixels.
func windowPixelSize() (width, height uint32, ok bool) {
	var w, h C.int
	if !C.firstWindowPixelSize(&w, &h) || w < 0 || h < 0 {
		return 0, 0, false
	}
	return uint32(w), uint32(h), true
}

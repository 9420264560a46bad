package ui

import (
	"sync"

	derrors "trikdash/internal/errors"
	"trikdash/layout"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Canvas is the fullscreen root primitive. It places attached widgets by
// their percentage geometry and re-places them when the viewport changes
// size.
//
// tview calls SetRect on the root before every draw, which is where resize
// detection happens.
type Canvas struct {
	*tview.Box

	mu      sync.Mutex
	items   []Widget
	x, y    int
	width   int
	height  int
	sized   bool
	resizes uint64
}

func NewCanvas() *Canvas {
	return &Canvas{Box: tview.NewBox()}
}

// Composite marks the canvas as a layout container.
func (c *Canvas) Composite() bool { return true }

// Append attaches w and places it using the current viewport size.
// Layout composites cannot be nested.
func (c *Canvas) Append(w Widget) error {
	if w == nil {
		return derrors.New(derrors.ErrRender, "attach nil widget", "")
	}
	if comp, ok := w.(layout.Composite); ok && comp.Composite() {
		return derrors.Configf("cannot nest layout composite %T inside the screen", w)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it == w {
			return nil
		}
	}
	c.items = append(c.items, w)
	if c.sized {
		c.place(w)
	}
	return nil
}

// Remove detaches w. It reports whether w was attached.
func (c *Canvas) Remove(w Widget) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, it := range c.items {
		if it == w {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Canvas) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Widgets returns the attached widgets in attach order.
func (c *Canvas) Widgets() []Widget {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Widget, len(c.items))
	copy(out, c.items)
	return out
}

// Resizes counts how many times the widgets were re-placed.
func (c *Canvas) Resizes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resizes
}

func (c *Canvas) SetRect(x, y, width, height int) {
	c.Box.SetRect(x, y, width, height)
	c.Resize(x, y, width, height)
}

// Resize re-places every attached widget for the new viewport. Calling it
// again with the same size does nothing and returns false.
func (c *Canvas) Resize(x, y, width, height int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sized && x == c.x && y == c.y && width == c.width && height == c.height {
		return false
	}
	c.x, c.y, c.width, c.height = x, y, width, height
	c.sized = true
	c.resizes++
	for _, w := range c.items {
		c.place(w)
	}
	return true
}

func (c *Canvas) place(w Widget) {
	w.SetRect(w.Geometry().Rect(c.x, c.y, c.width, c.height))
}

func (c *Canvas) Draw(screen tcell.Screen) {
	c.Box.DrawForSubclass(screen, c)
	for _, w := range c.Widgets() {
		w.Draw(screen)
	}
}

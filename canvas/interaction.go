package canvas

import "time"

// Button identifies the pointer button of a press.
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
)

// Modifiers are the keyboard modifiers held during a pointer event.
type Modifiers struct {
	Shift bool
	Ctrl  bool
}

// fitDoublePressWindow is the window for a double middle press to trigger
// fit-to-content.
const fitDoublePressWindow = 300 * time.Millisecond

// PointerDown dispatches a canvas press into one of three mutually exclusive input
// modes: pan (middle button, or shift+left over empty canvas without ctrl), drag
// (left press over an object) or marquee (left press over empty canvas). A press
// over an object always resolves against the object first; shift there toggles
// selection rather than panning.
func (e *Editor) PointerDown(sx, sy float64, b Button, mods Modifiers) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b == ButtonMiddle {
		now := e.now()
		if now.Sub(e.lastMiddleDown) < fitDoublePressWindow {
			e.lastMiddleDown = time.Time{}
			e.fitLocked()
			return
		}
		e.lastMiddleDown = now
		e.beginPanLocked(sx, sy)
		return
	}
	if b != ButtonLeft {
		return
	}

	wx, wy := e.view.ToWorld(sx, sy)
	if hit := e.scene.HitTest(wx, wy); hit != nil {
		e.sel.Select(hit.ID, mods.Ctrl || mods.Shift)
		// Unauthorized sessions can select and inspect but never move.
		if e.canEdit() && e.sel.Has(hit.ID) {
			e.mode = modeDrag
			e.drag = dragState{
				primaryID: hit.ID,
				startSX:   sx, startSY: sy,
				startWX: hit.X, startWY: hit.Y,
			}
		}
		return
	}

	if mods.Shift && !mods.Ctrl {
		e.beginPanLocked(sx, sy)
		return
	}

	// Empty canvas: a plain press clears the selection before any marquee begins.
	if !mods.Ctrl {
		e.sel.Clear()
	}
	e.mode = modeMarquee
	e.marquee = Marquee{StartX: sx, StartY: sy, X: sx, Y: sy}
	e.marqueeAdditive = mods.Ctrl
}

// PointerMove advances the active gesture. Intermediate events may be coalesced by
// the caller; only the most recent position matters.
func (e *Editor) PointerMove(sx, sy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.mode {
	case modePan:
		e.view = e.panStartView.Pan(sx-e.panStart.sx, sy-e.panStart.sy)

	case modeMarquee:
		e.marquee.X, e.marquee.Y = sx, sy

	case modeDrag:
		primary := e.scene.Find(e.drag.primaryID)
		if primary == nil {
			e.mode = modeIdle
			return
		}
		// World delta from raw screen delta; Y negated for the inverted axis.
		dx := (sx - e.drag.startSX) / e.view.Scale
		dy := -(sy - e.drag.startSY) / e.view.Scale
		proposedX := e.drag.startWX + dx
		proposedY := e.drag.startWY + dy

		others := make([]*Object, 0, len(e.scene.Objects))
		for _, o := range e.scene.Objects {
			if !e.sel.Has(o.ID) {
				others = append(others, o)
			}
		}
		snappedX, snappedY, guides := Snap(primary, proposedX, proposedY, others, e.view.Scale)

		e.drag.offsetX = snappedX - e.drag.startWX
		e.drag.offsetY = snappedY - e.drag.startWY
		e.drag.moved = true
		e.guides = guides
	}
}

// PointerUp commits the active gesture: a drag applies its ephemeral offset to every
// selected object, a marquee beyond the 2 px threshold commits its selection, a pan
// simply ends. Guides are cleared.
func (e *Editor) PointerUp(sx, sy float64, mods Modifiers) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.mode {
	case modePan:
		// nothing to commit

	case modeDrag:
		if e.drag.moved && (e.drag.offsetX != 0 || e.drag.offsetY != 0) {
			for _, o := range e.scene.Objects {
				if e.sel.Has(o.ID) {
					o.X += e.drag.offsetX
					o.Y += e.drag.offsetY
				}
			}
			e.markDirtyLocked()
		}

	case modeMarquee:
		e.marquee.X, e.marquee.Y = sx, sy
		if e.marquee.Significant() {
			e.sel = MarqueeSelect(e.scene, e.view, e.marquee, e.marqueeAdditive, e.sel)
		}
	}

	e.mode = modeIdle
	e.drag = dragState{}
	e.guides = nil
}

// Wheel applies zoom-to-cursor from a scroll delta. The world point under the cursor
// stays fixed; scale is clamped to [MinScale, MaxScale].
func (e *Editor) Wheel(sx, sy, deltaY float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	const zoomSensitivity = 0.001
	e.view = e.view.ZoomAt(sx, sy, -deltaY*zoomSensitivity)
}

// FitToContent centers the camera on the scene, as a double middle press does.
func (e *Editor) FitToContent() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fitLocked()
}

func (e *Editor) beginPanLocked(sx, sy float64) {
	e.mode = modePan
	e.panStart.sx, e.panStart.sy = sx, sy
	e.panStartView = e.view
}

func (e *Editor) fitLocked() {
	// An active gesture is abandoned by the refit.
	e.mode = modeIdle
	e.drag = dragState{}
	e.guides = nil
	if box, ok := e.scene.BoundingBox(); ok {
		e.view = FitToContent(box, e.viewportW, e.viewportH)
	} else {
		e.view = DefaultView()
	}
}

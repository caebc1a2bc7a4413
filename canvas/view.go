package canvas

// WorldHeight is the fixed height of the world coordinate space. The renderer flips
// the Y axis: world Y grows upward, screen Y grows downward.
const WorldHeight = 900.0

const (
	// MinScale and MaxScale bound the zoom factor.
	MinScale = 0.1
	MaxScale = 5.0
	// fitPadding is the pixel margin kept around the content on fit-to-content.
	fitPadding = 50.0
	// fitMaxScale caps how far fit-to-content may zoom in.
	fitMaxScale = 2.0
)

// View is the camera: zoom scale plus pan offset in screen pixels.
// screenX = worldX*Scale + X, screenY = (WorldHeight-worldY)*Scale + Y.
type View struct {
	Scale float64
	X     float64
	Y     float64
}

// DefaultView is the camera before any content is loaded.
func DefaultView() View {
	return View{Scale: 1}
}

// ToWorld converts a screen point to world coordinates.
func (v View) ToWorld(sx, sy float64) (float64, float64) {
	return (sx - v.X) / v.Scale, WorldHeight - (sy-v.Y)/v.Scale
}

// ToScreen converts a world point to screen coordinates.
func (v View) ToScreen(wx, wy float64) (float64, float64) {
	return wx*v.Scale + v.X, (WorldHeight-wy)*v.Scale + v.Y
}

// ZoomAt applies a scale delta keeping the world point under the cursor fixed.
// The resulting scale is clamped to [MinScale, MaxScale].
func (v View) ZoomAt(sx, sy, scaleDelta float64) View {
	newScale := clampScale(v.Scale + scaleDelta)
	if newScale == v.Scale {
		return v
	}

	// World point currently under the cursor, solved before rescaling.
	worldX := (sx - v.X) / v.Scale
	worldYFlipped := (sy - v.Y) / v.Scale // WorldHeight - worldY; the flip cancels out

	return View{
		Scale: newScale,
		X:     sx - worldX*newScale,
		Y:     sy - worldYFlipped*newScale,
	}
}

// Pan returns the view shifted by a raw screen delta.
func (v View) Pan(dx, dy float64) View {
	v.X += dx
	v.Y += dy
	return v
}

// FitToContent positions the camera so the box is centered in the viewport with a
// fixed padding, capped at 2x zoom. An empty box resets to the default view.
func FitToContent(box Bounds, viewportW, viewportH float64) View {
	w, h := box.Width(), box.Height()
	if w <= 0 && h <= 0 {
		return DefaultView()
	}

	scaleX := (viewportW - fitPadding*2) / w
	scaleY := (viewportH - fitPadding*2) / h
	scale := minf(minf(scaleX, scaleY), fitMaxScale)
	scale = clampScale(scale)

	return View{
		Scale: scale,
		X:     viewportW/2 - box.CenterX()*scale,
		Y:     viewportH/2 - (WorldHeight-box.CenterY())*scale,
	}
}

func clampScale(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}

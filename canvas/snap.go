package canvas

// Guide is a temporary alignment line emitted while a drag is snapped, in world
// coordinates.
type Guide struct {
	X1, Y1 float64
	X2, Y2 float64
}

const (
	// snapScreenTolerance is the snap distance in screen pixels; the world-space
	// threshold is snapScreenTolerance/scale so the feel is constant across zoom.
	snapScreenTolerance = 10.0
	// guideMargin extends guides past the union of both extents.
	guideMargin = 20.0
)

// Snap aligns the proposed position of the dragged object against every candidate
// object, per axis independently. Candidates are tested in fixed precedence order and
// the first match wins for that axis: center-to-center, then same-edge, then
// opposite-edge on X; center, top-to-top, bottom-to-bottom on Y. Returns the possibly
// adjusted position and the guides to draw.
func Snap(moving *Object, proposedX, proposedY float64, others []*Object, scale float64) (float64, float64, []Guide) {
	threshold := snapScreenTolerance / scale
	my := moving.BoundsAt(proposedX, proposedY)

	snappedX, snappedY := proposedX, proposedY
	doneX, doneY := false, false
	var guides []Guide

	vGuide := func(x float64, other Bounds) Guide {
		return Guide{
			X1: x, Y1: minf(my.MinY, other.MinY) - guideMargin,
			X2: x, Y2: maxf(my.MaxY, other.MaxY) + guideMargin,
		}
	}
	hGuide := func(y float64, other Bounds) Guide {
		return Guide{
			X1: minf(my.MinX, other.MinX) - guideMargin, Y1: y,
			X2: maxf(my.MaxX, other.MaxX) + guideMargin, Y2: y,
		}
	}

	for _, other := range others {
		if doneX && doneY {
			break
		}
		ob := other.Bounds()

		if !doneX {
			switch {
			case absf(my.CenterX()-ob.CenterX()) < threshold:
				snappedX = ob.CenterX()
				doneX = true
				guides = append(guides, vGuide(ob.CenterX(), ob))
			case absf(my.MinX-ob.MinX) < threshold:
				snappedX = ob.MinX + (my.CenterX() - my.MinX)
				doneX = true
				guides = append(guides, vGuide(ob.MinX, ob))
			case absf(my.MaxX-ob.MaxX) < threshold:
				snappedX = ob.MaxX - (my.MaxX - my.CenterX())
				doneX = true
				guides = append(guides, vGuide(ob.MaxX, ob))
			case absf(my.MinX-ob.MaxX) < threshold:
				snappedX = ob.MaxX + (my.CenterX() - my.MinX)
				doneX = true
				guides = append(guides, vGuide(ob.MaxX, ob))
			case absf(my.MaxX-ob.MinX) < threshold:
				snappedX = ob.MinX - (my.MaxX - my.CenterX())
				doneX = true
				guides = append(guides, vGuide(ob.MinX, ob))
			}
		}

		if !doneY {
			switch {
			case absf(my.CenterY()-ob.CenterY()) < threshold:
				snappedY = ob.CenterY()
				doneY = true
				guides = append(guides, hGuide(ob.CenterY(), ob))
			case absf(my.MaxY-ob.MaxY) < threshold:
				snappedY = ob.MaxY - (my.MaxY - my.CenterY())
				doneY = true
				guides = append(guides, hGuide(ob.MaxY, ob))
			case absf(my.MinY-ob.MinY) < threshold:
				snappedY = ob.MinY + (my.CenterY() - my.MinY)
				doneY = true
				guides = append(guides, hGuide(ob.MinY, ob))
			}
		}
	}

	return snappedX, snappedY, guides
}

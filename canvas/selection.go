package canvas

import "sort"

// Selection is the set of selected object ids.
type Selection struct {
	ids map[string]struct{}
}

func NewSelection(ids ...string) Selection {
	s := Selection{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s *Selection) ensure() {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
}

func (s Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s Selection) Len() int { return len(s.ids) }

// IDs returns the selected ids in a stable order.
func (s Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Set returns the underlying membership set, for scene operations.
func (s Selection) Set() map[string]struct{} { return s.ids }

func (s *Selection) Add(id string) {
	s.ensure()
	s.ids[id] = struct{}{}
}

func (s *Selection) Remove(id string) { delete(s.ids, id) }

func (s *Selection) Clear() { s.ids = make(map[string]struct{}) }

// Toggle flips membership of id.
func (s *Selection) Toggle(id string) {
	s.ensure()
	if s.Has(id) {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
}

// Select applies click-selection semantics: with additive (ctrl/shift held) the id
// toggles; otherwise the selection is replaced unless the id is already part of it,
// which keeps a group selection intact for a group drag.
func (s *Selection) Select(id string, additive bool) {
	if additive {
		s.Toggle(id)
		return
	}
	if !s.Has(id) {
		s.ids = map[string]struct{}{id: {}}
	}
}

// Prune drops ids that no longer exist in the scene.
func (s *Selection) Prune(scene *Scene) {
	for id := range s.ids {
		if scene.Find(id) == nil {
			delete(s.ids, id)
		}
	}
}

// Clone returns an independent copy.
func (s Selection) Clone() Selection {
	dup := NewSelection()
	for id := range s.ids {
		dup.ids[id] = struct{}{}
	}
	return dup
}

// Marquee is a rubber-band rectangle tracked in screen coordinates.
type Marquee struct {
	StartX, StartY float64
	X, Y           float64
}

// marqueeCommitThreshold distinguishes a click from a drag, in screen pixels.
const marqueeCommitThreshold = 2.0

// windowEpsilon is the containment tolerance for window-mode membership, in pixels.
const windowEpsilon = 1.0

// Crossing reports whether the marquee is in crossing mode. Mode is decided purely
// by drag direction: dragging right-to-left selects anything the box touches.
func (m Marquee) Crossing() bool { return m.X < m.StartX }

// Box returns the normalized screen rectangle.
func (m Marquee) Box() (x, y, w, h float64) {
	return minf(m.StartX, m.X), minf(m.StartY, m.Y),
		absf(m.X - m.StartX), absf(m.Y - m.StartY)
}

// Significant reports whether the drag moved far enough to count as a marquee
// rather than a plain deselect click.
func (m Marquee) Significant() bool {
	_, _, w, h := m.Box()
	return w > marqueeCommitThreshold || h > marqueeCommitThreshold
}

// screenFootprint estimates the object's size in screen pixels. Text uses slightly
// tighter factors than the world-space footprint so text is easier to enclose.
func screenFootprint(o *Object, scale float64) (w, h float64) {
	switch s := o.Shape.(type) {
	case Circle:
		d := s.Diameter
		if d <= 0 {
			d = defaultDiameter
		}
		return d * scale, d * scale
	case Text:
		size := s.FontSize
		if size <= 0 {
			size = defaultFontSize
		}
		return float64(len([]rune(s.Content))) * size * 0.55 * scale, size * 1.0 * scale
	default:
		fw, fh := o.Shape.footprint()
		return fw * scale, fh * scale
	}
}

// MarqueeSelect computes the selection a committed marquee produces.
//
// Window mode (drawn left-to-right) keeps objects fully contained in the box, with a
// 1 px tolerance. Crossing mode (right-to-left) keeps anything intersecting the box.
// With additive the result is unioned with the prior selection, otherwise it replaces it.
func MarqueeSelect(scene *Scene, view View, m Marquee, additive bool, prior Selection) Selection {
	result := NewSelection()
	if additive {
		for id := range prior.ids {
			result.ids[id] = struct{}{}
		}
	}

	selX, selY, selW, selH := m.Box()
	selMaxX, selMaxY := selX+selW, selY+selH
	crossing := m.Crossing()

	for _, obj := range scene.Objects {
		cx, cy := view.ToScreen(obj.X, obj.Y)
		w, h := screenFootprint(obj, view.Scale)
		objMinX, objMaxX := cx-w/2, cx+w/2
		objMinY, objMaxY := cy-h/2, cy+h/2

		var hit bool
		if crossing {
			hit = !(objMinX > selMaxX || objMaxX < selX || objMinY > selMaxY || objMaxY < selY)
		} else {
			hit = objMinX >= selX-windowEpsilon &&
				objMaxX <= selMaxX+windowEpsilon &&
				objMinY >= selY-windowEpsilon &&
				objMaxY <= selMaxY+windowEpsilon
		}
		if hit {
			result.ids[obj.ID] = struct{}{}
		}
	}
	return result
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

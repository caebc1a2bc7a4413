package canvas

import (
	"encoding/json"
	"fmt"
)

// Scene is the ordered list of objects. Slice order is paint order: index 0 is the
// bottom of the stack, the last element draws on top.
type Scene struct {
	Objects []*Object
}

// palette cycled through when new shapes are created.
var palette = []string{"#10b981", "#3b82f6", "#f59e0b", "#ef4444", "#8b5cf6", "#ec4899"}

// ErrDuplicateID is returned when a manual id edit collides with an existing object.
var ErrDuplicateID = fmt.Errorf("object id already exists")

// Find returns the object with the given id, or nil.
func (s *Scene) Find(id string) *Object {
	for _, o := range s.Objects {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (s *Scene) indexOf(id string) int {
	for i, o := range s.Objects {
		if o.ID == id {
			return i
		}
	}
	return -1
}

// Append adds objects to the top of the paint order.
func (s *Scene) Append(objs ...*Object) {
	s.Objects = append(s.Objects, objs...)
}

// NewShape creates an object of the given kind at a world position and appends it.
// Defaults mirror the stored diagrams: rectangles 150x100, circles diameter 100,
// text 24pt Arial.
func (s *Scene) NewShape(kind ShapeKind, id string, x, y float64) *Object {
	n := len(s.Objects) + 1
	obj := &Object{ID: id, X: x, Y: y}
	switch kind {
	case ShapeText:
		obj.Label = fmt.Sprintf("Text %d", n)
		obj.Color = "#000000"
		obj.Shape = Text{
			Content:    "New Text",
			FontSize:   24,
			FontFamily: "Arial",
			FontColor:  "#000000",
			FontWeight: "normal",
			FontStyle:  "normal",
		}
	case ShapeCircle:
		obj.Label = fmt.Sprintf("Phase %d", n)
		obj.Color = palette[len(s.Objects)%len(palette)]
		obj.Shape = Circle{Diameter: defaultDiameter}
		obj.Status = StatusNotStarted
	default:
		obj.Label = fmt.Sprintf("Block %d", n)
		obj.Color = palette[len(s.Objects)%len(palette)]
		obj.Shape = Rectangle{Width: defaultRectWidth, Height: defaultRectHeight}
		obj.Status = StatusNotStarted
	}
	s.Append(obj)
	return obj
}

// Delete removes every object whose id is in the set and reports how many were removed.
func (s *Scene) Delete(ids map[string]struct{}) int {
	if len(ids) == 0 {
		return 0
	}
	kept := s.Objects[:0]
	removed := 0
	for _, o := range s.Objects {
		if _, hit := ids[o.ID]; hit {
			removed++
			continue
		}
		kept = append(kept, o)
	}
	s.Objects = kept
	return removed
}

// ChangeID renames an object. The new id must not collide with any other object.
func (s *Scene) ChangeID(oldID, newID string) error {
	if oldID == newID {
		return nil
	}
	for _, o := range s.Objects {
		if o.ID == newID {
			return ErrDuplicateID
		}
	}
	obj := s.Find(oldID)
	if obj == nil {
		return fmt.Errorf("object %q not found", oldID)
	}
	obj.ID = newID
	return nil
}

// HitTest returns the topmost object whose bounds contain the world point, or nil.
func (s *Scene) HitTest(x, y float64) *Object {
	for i := len(s.Objects) - 1; i >= 0; i-- {
		if s.Objects[i].Bounds().Contains(x, y) {
			return s.Objects[i]
		}
	}
	return nil
}

// BoundingBox returns the box covering every object's footprint. ok is false for an
// empty scene.
func (s *Scene) BoundingBox() (Bounds, bool) {
	if len(s.Objects) == 0 {
		return Bounds{}, false
	}
	box := s.Objects[0].Bounds()
	for _, o := range s.Objects[1:] {
		box = box.Union(o.Bounds())
	}
	return box, true
}

// LayerAction names a z-order command.
type LayerAction string

const (
	LayerFront    LayerAction = "front"
	LayerBack     LayerAction = "back"
	LayerForward  LayerAction = "forward"
	LayerBackward LayerAction = "backward"
)

// Reorder applies a z-order command to the selected ids as one mutation.
//
// front/back move the selection as a contiguous block, preserving relative order.
// forward/backward swap with the immediate neighbor for a single selection; for a
// multi-selection they degrade to front/back.
func (s *Scene) Reorder(ids map[string]struct{}, action LayerAction) {
	if len(ids) == 0 {
		return
	}

	if len(ids) == 1 && (action == LayerForward || action == LayerBackward) {
		var only string
		for id := range ids {
			only = id
		}
		idx := s.indexOf(only)
		if idx < 0 {
			return
		}
		switch action {
		case LayerForward:
			if idx < len(s.Objects)-1 {
				s.Objects[idx], s.Objects[idx+1] = s.Objects[idx+1], s.Objects[idx]
			}
		case LayerBackward:
			if idx > 0 {
				s.Objects[idx], s.Objects[idx-1] = s.Objects[idx-1], s.Objects[idx]
			}
		}
		return
	}

	selected := make([]*Object, 0, len(ids))
	rest := make([]*Object, 0, len(s.Objects))
	for _, o := range s.Objects {
		if _, hit := ids[o.ID]; hit {
			selected = append(selected, o)
		} else {
			rest = append(rest, o)
		}
	}
	if len(selected) == 0 {
		return
	}

	switch action {
	case LayerBack, LayerBackward:
		s.Objects = append(selected, rest...)
	default: // front, and the forward multi-select fallback
		s.Objects = append(rest, selected...)
	}
}

// SetStatus updates workflow status for the given ids. The first transition to
// completed stamps completionDate with today; a date already set is never overwritten.
// Text objects are skipped.
func (s *Scene) SetStatus(ids map[string]struct{}, status Status, today string) {
	for _, o := range s.Objects {
		if _, hit := ids[o.ID]; !hit {
			continue
		}
		if !o.HasStatus() {
			continue
		}
		o.Status = status
		if status == StatusCompleted && o.CompletionDate == "" {
			o.CompletionDate = today
		}
	}
}

// EncodeObjects serializes the paint-ordered object list as the stored JSON array.
func EncodeObjects(objs []*Object) (string, error) {
	if objs == nil {
		objs = []*Object{}
	}
	b, err := json.Marshal(objs)
	if err != nil {
		return "", fmt.Errorf("encode objects: %w", err)
	}
	return string(b), nil
}

// DecodeObjects parses the stored JSON array. An empty or blank payload yields an
// empty scene.
func DecodeObjects(raw string) ([]*Object, error) {
	if raw == "" {
		return []*Object{}, nil
	}
	var objs []*Object
	if err := json.Unmarshal([]byte(raw), &objs); err != nil {
		return nil, fmt.Errorf("decode objects: %w", err)
	}
	if objs == nil {
		objs = []*Object{}
	}
	return objs, nil
}

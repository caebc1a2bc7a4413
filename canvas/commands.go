package canvas

import "errors"

// ErrNotAuthorized is returned when the session's authorization predicate refuses a
// mutation. Viewing, selection and camera movement are never gated.
var ErrNotAuthorized = errors.New("session is not permitted to modify the diagram")

// ErrInvalidArrayParams carries the user-facing validation message for a rejected
// array duplication.
var ErrInvalidArrayParams = errors.New("rows and cols must both be at least 1")

// ErrNoSelection is returned by commands that require a selection.
var ErrNoSelection = errors.New("nothing is selected")

// spawnPadding is the screen offset from the viewport corner where new shapes appear.
const spawnPadding = 100.0

// AddShape creates a shape near the top-left of the viewport, appends it to the top
// of the paint order and selects it.
func (e *Editor) AddShape(kind ShapeKind) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canEdit() {
		return "", ErrNotAuthorized
	}

	wx, wy := e.view.ToWorld(spawnPadding, spawnPadding)
	id := e.newObjectID(kind)
	e.scene.NewShape(kind, id, wx, wy)
	e.sel = NewSelection(id)
	e.markDirtyLocked()
	return id, nil
}

// DeleteSelection removes every selected object and clears the selection.
func (e *Editor) DeleteSelection() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canEdit() {
		return ErrNotAuthorized
	}
	if e.sel.Len() == 0 {
		return ErrNoSelection
	}
	e.scene.Delete(e.sel.Set())
	e.sel.Clear()
	e.markDirtyLocked()
	return nil
}

// Nudge moves the selection by a world-space delta, as the arrow keys do. Positive
// dy moves up.
func (e *Editor) Nudge(dx, dy float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canEdit() {
		return ErrNotAuthorized
	}
	if e.sel.Len() == 0 {
		return ErrNoSelection
	}
	for _, o := range e.scene.Objects {
		if e.sel.Has(o.ID) {
			o.X += dx
			o.Y += dy
		}
	}
	e.markDirtyLocked()
	return nil
}

// Copy snapshots the selected objects into the in-memory clipboard and returns how
// many were copied. The system clipboard is not involved.
func (e *Editor) Copy() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sel.Len() == 0 {
		return 0
	}
	e.clipboard = e.clipboard[:0]
	for _, o := range e.scene.Objects {
		if e.sel.Has(o.ID) {
			e.clipboard = append(e.clipboard, o.Clone())
		}
	}
	return len(e.clipboard)
}

// pasteOffset is the world-space displacement applied to pasted objects.
const (
	pasteOffsetX = 20.0
	pasteOffsetY = -20.0
)

// Paste creates one object per clipboard entry, offset by (+20, -20) from its
// source, with fresh ids, and makes exactly the new objects the selection.
func (e *Editor) Paste() ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canEdit() {
		return nil, ErrNotAuthorized
	}
	if len(e.clipboard) == 0 {
		return nil, nil
	}

	newIDs := make([]string, 0, len(e.clipboard))
	for _, src := range e.clipboard {
		dup := src.Clone()
		dup.ID = e.newObjectID(src.Shape.Kind())
		dup.X = src.X + pasteOffsetX
		dup.Y = src.Y + pasteOffsetY
		e.scene.Append(dup)
		newIDs = append(newIDs, dup.ID)
	}
	e.sel = NewSelection(newIDs...)
	e.markDirtyLocked()
	return newIDs, nil
}

// ArrayParams describes a rectangular duplication grid.
type ArrayParams struct {
	Rows     int
	Cols     int
	SpacingX float64
	SpacingY float64
}

// ArrayDuplicate lays out rows*cols-1 copies of every selected template at grid
// offsets from the template, skipping the (0,0) cell so a template is never
// duplicated onto itself. New objects go to the top of the paint order and are not
// auto-selected. rows/cols below 1 are rejected without touching the scene.
func (e *Editor) ArrayDuplicate(p ArrayParams) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canEdit() {
		return nil, ErrNotAuthorized
	}
	if p.Rows < 1 || p.Cols < 1 {
		return nil, ErrInvalidArrayParams
	}
	if e.sel.Len() == 0 {
		return nil, ErrNoSelection
	}

	var created []*Object
	for _, tpl := range e.scene.Objects {
		if !e.sel.Has(tpl.ID) {
			continue
		}
		for r := 0; r < p.Rows; r++ {
			for c := 0; c < p.Cols; c++ {
				if r == 0 && c == 0 {
					continue
				}
				dup := tpl.Clone()
				dup.ID = e.arrayObjectID(tpl.ID, r, c)
				dup.X = tpl.X + float64(c)*p.SpacingX
				dup.Y = tpl.Y + float64(r)*p.SpacingY
				created = append(created, dup)
			}
		}
	}
	if len(created) == 0 {
		return nil, nil
	}
	e.scene.Append(created...)
	e.markDirtyLocked()
	newIDs := make([]string, len(created))
	for i, o := range created {
		newIDs[i] = o.ID
	}
	return newIDs, nil
}

// Reorder applies a z-order command to the selection.
func (e *Editor) Reorder(action LayerAction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canEdit() {
		return ErrNotAuthorized
	}
	if e.sel.Len() == 0 {
		return ErrNoSelection
	}
	e.scene.Reorder(e.sel.Set(), action)
	e.markDirtyLocked()
	return nil
}

// SetLabel renames every selected object. Text objects keep their content in step
// with the label.
func (e *Editor) SetLabel(label string) error {
	return e.updateSelection(func(o *Object) {
		o.Label = label
		if t, ok := o.Shape.(Text); ok {
			t.Content = label
			o.Shape = t
		}
	})
}

// SetObjectText edits one object's text, as a double-click does: content for text
// objects, label for shapes.
func (e *Editor) SetObjectText(id, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canEdit() {
		return ErrNotAuthorized
	}
	obj := e.scene.Find(id)
	if obj == nil {
		return ErrNoSelection
	}
	if t, ok := obj.Shape.(Text); ok {
		t.Content = text
		obj.Shape = t
	}
	obj.Label = text
	e.markDirtyLocked()
	return nil
}

// SetColor recolors the selection.
func (e *Editor) SetColor(color string) error {
	return e.updateSelection(func(o *Object) { o.Color = color })
}

// SetPosition moves every selected object to an absolute world position (a batch
// edit stacks them).
func (e *Editor) SetPosition(x, y float64) error {
	return e.updateSelection(func(o *Object) { o.X = x; o.Y = y })
}

// SetRectangleSize resizes selected rectangles; other shapes are untouched.
func (e *Editor) SetRectangleSize(width, height float64) error {
	return e.updateSelection(func(o *Object) {
		if _, ok := o.Shape.(Rectangle); ok {
			o.Shape = Rectangle{Width: width, Height: height}
		}
	})
}

// SetCircleDiameter resizes selected circles; other shapes are untouched.
func (e *Editor) SetCircleDiameter(d float64) error {
	return e.updateSelection(func(o *Object) {
		if _, ok := o.Shape.(Circle); ok {
			o.Shape = Circle{Diameter: d}
		}
	})
}

// SetTextStyle restyles selected text objects; other shapes are untouched.
func (e *Editor) SetTextStyle(style Text) error {
	return e.updateSelection(func(o *Object) {
		if _, ok := o.Shape.(Text); ok {
			o.Shape = style
		}
	})
}

// SetStatus changes workflow status for the selection. The first transition to
// completed stamps today's date; it is never overwritten afterwards.
func (e *Editor) SetStatus(status Status) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canEdit() {
		return ErrNotAuthorized
	}
	if e.sel.Len() == 0 {
		return ErrNoSelection
	}
	e.scene.SetStatus(e.sel.Set(), status, e.now().Format("2006-01-02"))
	e.markDirtyLocked()
	return nil
}

// SetAssignments replaces the BOQ assignment map of every selected object.
func (e *Editor) SetAssignments(assignments map[string]float64) error {
	return e.updateSelection(func(o *Object) {
		m := make(map[string]float64, len(assignments))
		for k, v := range assignments {
			m[k] = v
		}
		o.BOQAssignments = m
	})
}

// ChangeObjectID renames a single selected object. Duplicate ids are rejected with
// a user-facing message and the edit is not applied.
func (e *Editor) ChangeObjectID(newID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canEdit() {
		return ErrNotAuthorized
	}
	ids := e.sel.IDs()
	if len(ids) != 1 {
		return errors.New("id can only be edited for a single selected object")
	}
	if err := e.scene.ChangeID(ids[0], newID); err != nil {
		return err
	}
	e.sel = NewSelection(newID)
	e.markDirtyLocked()
	return nil
}

// ReplaceBOQ swaps in a freshly imported master table. Derived values recompute
// immediately against the current scene.
func (e *Editor) ReplaceBOQ(items []BOQItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canEdit() {
		return ErrNotAuthorized
	}
	e.boq = make([]BOQItem, len(items))
	copy(e.boq, items)
	e.markDirtyLocked()
	return nil
}

func (e *Editor) updateSelection(apply func(*Object)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canEdit() {
		return ErrNotAuthorized
	}
	if e.sel.Len() == 0 {
		return ErrNoSelection
	}
	for _, o := range e.scene.Objects {
		if e.sel.Has(o.ID) {
			apply(o)
		}
	}
	e.markDirtyLocked()
	return nil
}

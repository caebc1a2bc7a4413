package canvas

import (
	"encoding/json"
	"fmt"
)

// ShapeKind discriminates the drawable variants.
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapeText      ShapeKind = "text"
)

// Status is the construction workflow state of a shape. Text objects carry no status.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusPlanned    Status = "planned"
)

// Shape is the geometry variant of an object. Implementations are value types;
// footprint returns the estimated width/height used for bounds, hit-testing and snapping.
type Shape interface {
	Kind() ShapeKind
	footprint() (w, h float64)
}

const (
	defaultRectWidth  = 150.0
	defaultRectHeight = 100.0
	defaultDiameter   = 100.0
	defaultFontSize   = 16.0
)

// Rectangle is an axis-aligned box centered on the object position.
type Rectangle struct {
	Width  float64
	Height float64
}

func (r Rectangle) Kind() ShapeKind { return ShapeRectangle }

func (r Rectangle) footprint() (float64, float64) {
	w, h := r.Width, r.Height
	if w <= 0 {
		w = 100
	}
	if h <= 0 {
		h = 100
	}
	return w, h
}

// Circle is a circle centered on the object position.
type Circle struct {
	Diameter float64
}

func (c Circle) Kind() ShapeKind { return ShapeCircle }

func (c Circle) footprint() (float64, float64) {
	d := c.Diameter
	if d <= 0 {
		d = defaultDiameter
	}
	return d, d
}

// Text is a text label centered on the object position. The footprint is estimated
// from the content length; there is no font metric lookup.
type Text struct {
	Content    string
	FontSize   float64
	FontFamily string
	FontColor  string
	FontWeight string // "normal" or "bold"
	FontStyle  string // "normal" or "italic"
}

func (t Text) Kind() ShapeKind { return ShapeText }

func (t Text) footprint() (float64, float64) {
	n := len([]rune(t.Content))
	if n == 0 {
		n = 5
	}
	size := t.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	return float64(n) * size * 0.6, size * 1.5
}

// Object is one drawable unit on the canvas. Position is the centroid in world
// coordinates for every shape kind.
type Object struct {
	ID             string
	X              float64
	Y              float64
	Label          string
	Color          string
	Status         Status
	CompletionDate string // YYYY-MM-DD, set on first transition to completed
	BOQAssignments map[string]float64
	Shape          Shape
}

// Bounds is an axis-aligned bounding box in world coordinates.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

func (b Bounds) CenterX() float64 { return (b.MinX + b.MaxX) / 2 }
func (b Bounds) CenterY() float64 { return (b.MinY + b.MaxY) / 2 }
func (b Bounds) Width() float64   { return b.MaxX - b.MinX }
func (b Bounds) Height() float64  { return b.MaxY - b.MinY }

// Contains reports whether the world point lies inside the box.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Intersects reports whether two boxes overlap, touching edges included.
func (b Bounds) Intersects(o Bounds) bool {
	return !(b.MaxX < o.MinX || o.MaxX < b.MinX || b.MaxY < o.MinY || o.MaxY < b.MinY)
}

// Union returns the smallest box covering both.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		MinX: minf(b.MinX, o.MinX),
		MinY: minf(b.MinY, o.MinY),
		MaxX: maxf(b.MaxX, o.MaxX),
		MaxY: maxf(b.MaxY, o.MaxY),
	}
}

// Bounds returns the estimated bounding box around the object position.
func (o *Object) Bounds() Bounds {
	w, h := o.Shape.footprint()
	return boundsAround(o.X, o.Y, w, h)
}

// BoundsAt returns the bounding box the object would have at the given position.
func (o *Object) BoundsAt(x, y float64) Bounds {
	w, h := o.Shape.footprint()
	return boundsAround(x, y, w, h)
}

func boundsAround(x, y, w, h float64) Bounds {
	return Bounds{MinX: x - w/2, MinY: y - h/2, MaxX: x + w/2, MaxY: y + h/2}
}

// Overlaps reports whether the bounding boxes of two objects intersect.
func (o *Object) Overlaps(other *Object) bool {
	return o.Bounds().Intersects(other.Bounds())
}

// HasStatus reports whether the shape kind carries workflow status at all.
func (o *Object) HasStatus() bool {
	return o.Shape.Kind() != ShapeText
}

// Clone returns a deep copy, including the assignment map.
func (o *Object) Clone() *Object {
	dup := *o
	if o.BOQAssignments != nil {
		dup.BOQAssignments = make(map[string]float64, len(o.BOQAssignments))
		for k, v := range o.BOQAssignments {
			dup.BOQAssignments[k] = v
		}
	}
	return &dup
}

// objectWire is the flat JSON shape shared with the stored diagram payload.
// One structure with optional fields per kind; the tagged variant exists only in memory.
type objectWire struct {
	ID             string             `json:"id"`
	X              float64            `json:"x"`
	Y              float64            `json:"y"`
	Label          string             `json:"label"`
	Color          string             `json:"color"`
	Type           ShapeKind          `json:"type"`
	Width          *float64           `json:"width,omitempty"`
	Height         *float64           `json:"height,omitempty"`
	Diameter       *float64           `json:"diameter,omitempty"`
	Text           *string            `json:"text,omitempty"`
	FontSize       *float64           `json:"fontSize,omitempty"`
	FontFamily     *string            `json:"fontFamily,omitempty"`
	FontColor      *string            `json:"fontColor,omitempty"`
	FontWeight     *string            `json:"fontWeight,omitempty"`
	FontStyle      *string            `json:"fontStyle,omitempty"`
	Status         Status             `json:"status,omitempty"`
	CompletionDate string             `json:"completionDate,omitempty"`
	BOQIDs         map[string]float64 `json:"boqIds,omitempty"`
}

// MarshalJSON emits the flat wire shape.
func (o *Object) MarshalJSON() ([]byte, error) {
	w := objectWire{
		ID:             o.ID,
		X:              o.X,
		Y:              o.Y,
		Label:          o.Label,
		Color:          o.Color,
		Type:           o.Shape.Kind(),
		Status:         o.Status,
		CompletionDate: o.CompletionDate,
		BOQIDs:         o.BOQAssignments,
	}
	switch s := o.Shape.(type) {
	case Rectangle:
		w.Width = &s.Width
		w.Height = &s.Height
	case Circle:
		w.Diameter = &s.Diameter
	case Text:
		content := s.Content
		w.Text = &content
		if s.FontSize > 0 {
			size := s.FontSize
			w.FontSize = &size
		}
		if s.FontFamily != "" {
			fam := s.FontFamily
			w.FontFamily = &fam
		}
		if s.FontColor != "" {
			col := s.FontColor
			w.FontColor = &col
		}
		if s.FontWeight != "" {
			wt := s.FontWeight
			w.FontWeight = &wt
		}
		if s.FontStyle != "" {
			st := s.FontStyle
			w.FontStyle = &st
		}
	default:
		return nil, fmt.Errorf("marshal object %s: unknown shape %T", o.ID, o.Shape)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the flat wire shape into the tagged variant. Unknown shape
// types fall back to rectangle so a malformed entry never breaks a whole scene load.
func (o *Object) UnmarshalJSON(data []byte) error {
	var w objectWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	o.ID = w.ID
	o.X = w.X
	o.Y = w.Y
	o.Label = w.Label
	o.Color = w.Color
	o.Status = w.Status
	o.CompletionDate = w.CompletionDate
	o.BOQAssignments = w.BOQIDs

	switch w.Type {
	case ShapeCircle:
		o.Shape = Circle{Diameter: deref(w.Diameter, defaultDiameter)}
	case ShapeText:
		o.Shape = Text{
			Content:    derefStr(w.Text, ""),
			FontSize:   deref(w.FontSize, defaultFontSize),
			FontFamily: derefStr(w.FontFamily, "Arial"),
			FontColor:  derefStr(w.FontColor, "#000000"),
			FontWeight: derefStr(w.FontWeight, "normal"),
			FontStyle:  derefStr(w.FontStyle, "normal"),
		}
		o.Status = ""
	default:
		o.Shape = Rectangle{
			Width:  deref(w.Width, 100),
			Height: deref(w.Height, 100),
		}
	}
	return nil
}

func deref(p *float64, fallback float64) float64 {
	if p == nil || *p <= 0 {
		return fallback
	}
	return *p
}

func derefStr(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

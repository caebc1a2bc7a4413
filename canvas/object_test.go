package canvas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectJSONRoundTrip(t *testing.T) {
	objects := []*Object{
		{
			ID: "footing.P1", X: 100, Y: 200, Label: "Footing P1", Color: "#10b981",
			Status: StatusCompleted, CompletionDate: "2026-03-15",
			BOQAssignments: map[string]float64{"B-01": 5, "B-02": 2.5},
			Shape:          Rectangle{Width: 150, Height: 100},
		},
		{
			ID: "pile.P1.d1", X: -40, Y: 60, Label: "Pile", Color: "#3b82f6",
			Status: StatusPlanned,
			Shape:  Circle{Diameter: 80},
		},
		{
			ID: "text-1700000000000", X: 10, Y: 880, Label: "Title", Color: "#000000",
			Shape: Text{Content: "Title", FontSize: 24, FontFamily: "Arial",
				FontColor: "#000000", FontWeight: "bold", FontStyle: "normal"},
		},
	}

	encoded, err := EncodeObjects(objects)
	require.NoError(t, err)

	decoded, err := DecodeObjects(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 3)

	rect := decoded[0]
	assert.Equal(t, "footing.P1", rect.ID)
	assert.Equal(t, StatusCompleted, rect.Status)
	assert.Equal(t, "2026-03-15", rect.CompletionDate)
	assert.Equal(t, map[string]float64{"B-01": 5, "B-02": 2.5}, rect.BOQAssignments)
	require.IsType(t, Rectangle{}, rect.Shape)
	assert.Equal(t, Rectangle{Width: 150, Height: 100}, rect.Shape)

	require.IsType(t, Circle{}, decoded[1].Shape)
	assert.Equal(t, Circle{Diameter: 80}, decoded[1].Shape)

	require.IsType(t, Text{}, decoded[2].Shape)
	txt := decoded[2].Shape.(Text)
	assert.Equal(t, "Title", txt.Content)
	assert.Equal(t, "bold", txt.FontWeight)
}

func TestObjectWireFieldNames(t *testing.T) {
	obj := &Object{
		ID: "r1", X: 1, Y: 2, Label: "L", Color: "#fff",
		Status:         StatusInProgress,
		BOQAssignments: map[string]float64{"B-01": 3},
		Shape:          Rectangle{Width: 10, Height: 20},
	}
	b, err := json.Marshal(obj)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(b, &flat))

	assert.Equal(t, "rectangle", flat["type"])
	assert.Equal(t, "in_progress", flat["status"])
	assert.Contains(t, flat, "boqIds")
	assert.Contains(t, flat, "width")
	assert.NotContains(t, flat, "diameter")
	assert.NotContains(t, flat, "fontSize")
}

func TestDecodeObjectsEmptyAndBlank(t *testing.T) {
	for _, raw := range []string{"", "[]"} {
		objs, err := DecodeObjects(raw)
		require.NoError(t, err)
		assert.Empty(t, objs)
	}
}

func TestTextStatusDroppedOnDecode(t *testing.T) {
	raw := `[{"id":"t1","x":0,"y":0,"type":"text","text":"hi","status":"completed"}]`
	objs, err := DecodeObjects(raw)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Empty(t, objs[0].Status)
	assert.False(t, objs[0].HasStatus())
}

func TestBoundsEstimation(t *testing.T) {
	rect := &Object{ID: "r", X: 100, Y: 100, Shape: Rectangle{Width: 50, Height: 30}}
	b := rect.Bounds()
	assert.Equal(t, 75.0, b.MinX)
	assert.Equal(t, 125.0, b.MaxX)
	assert.Equal(t, 85.0, b.MinY)
	assert.Equal(t, 115.0, b.MaxY)
	assert.Equal(t, 100.0, b.CenterX())

	circle := &Object{ID: "c", X: 0, Y: 0, Shape: Circle{Diameter: 40}}
	cb := circle.Bounds()
	assert.Equal(t, 40.0, cb.Width())
	assert.Equal(t, 40.0, cb.Height())

	// Text footprint: len * fontSize * 0.6 wide, fontSize * 1.5 tall.
	text := &Object{ID: "t", X: 0, Y: 0, Shape: Text{Content: "hello", FontSize: 20}}
	tb := text.Bounds()
	assert.InDelta(t, 5*20*0.6, tb.Width(), 1e-9)
	assert.InDelta(t, 20*1.5, tb.Height(), 1e-9)

	// Zero-size fields fall back to defaults.
	blank := &Object{ID: "d", Shape: Circle{}}
	assert.Equal(t, defaultDiameter, blank.Bounds().Width())
}

func TestOverlaps(t *testing.T) {
	a := &Object{ID: "a", X: 0, Y: 0, Shape: Rectangle{Width: 100, Height: 100}}
	b := &Object{ID: "b", X: 90, Y: 0, Shape: Rectangle{Width: 100, Height: 100}}
	c := &Object{ID: "c", X: 300, Y: 0, Shape: Rectangle{Width: 100, Height: 100}}

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
	assert.False(t, a.Overlaps(c))
}

func TestCloneIsDeep(t *testing.T) {
	src := &Object{
		ID: "a", X: 1, Y: 2,
		BOQAssignments: map[string]float64{"B-01": 1},
		Shape:          Rectangle{Width: 10, Height: 10},
	}
	dup := src.Clone()
	dup.BOQAssignments["B-01"] = 99
	assert.Equal(t, 1.0, src.BOQAssignments["B-01"])
}

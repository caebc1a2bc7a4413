package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapCenterToCenter(t *testing.T) {
	moving := rectAt("m", 0, 0)
	anchor := rectAt("a", 200, 300)

	// Proposed center 6 world units off the anchor center on X, well clear on Y.
	x, y, guides := Snap(moving, 206, 100, []*Object{anchor}, 1.0)
	assert.Equal(t, 200.0, x)
	assert.Equal(t, 100.0, y)

	require.Len(t, guides, 1)
	g := guides[0]
	// Vertical guide at the aligned X, spanning both boxes' extents plus 20.
	assert.Equal(t, 200.0, g.X1)
	assert.Equal(t, 200.0, g.X2)
	assert.Equal(t, 50.0-20.0, g.Y1)  // min(proposed minY=50, anchor minY=250) - 20
	assert.Equal(t, 350.0+20.0, g.Y2) // max(proposed maxY=150, anchor maxY=350) + 20
}

func TestSnapThresholdScalesWithZoom(t *testing.T) {
	moving := rectAt("m", 0, 0)
	anchor := rectAt("a", 200, 0)

	// 6 world units off: inside 10/1 at scale 1, outside 10/2 at scale 2.
	x, _, _ := Snap(moving, 206, 500, []*Object{anchor}, 1.0)
	assert.Equal(t, 200.0, x)

	x, _, _ = Snap(moving, 206, 500, []*Object{anchor}, 2.0)
	assert.Equal(t, 206.0, x)

	// Zoomed out the same screen tolerance covers more world distance.
	x, _, _ = Snap(moving, 215, 500, []*Object{anchor}, 0.5)
	assert.Equal(t, 200.0, x)
}

func TestSnapEdgeCandidates(t *testing.T) {
	moving := rectAt("m", 0, 0)          // 100 wide: edges at center±50
	anchor := rectAt("a", 200, 500)      // edges 150..250
	others := []*Object{anchor}

	// Left edge near anchor's left edge (proposed minX 153 vs 150).
	x, _, _ := Snap(moving, 203, 0, others, 1.0)
	assert.Equal(t, 200.0, x) // minX snapped to 150, center to 200

	// Right edge near anchor's right edge (proposed maxX 247 vs 250).
	x, _, _ = Snap(moving, 197, 0, others, 1.0)
	assert.Equal(t, 200.0, x)

	// Left edge to anchor's right edge (proposed minX 253 vs 250).
	x, _, _ = Snap(moving, 303, 0, others, 1.0)
	assert.Equal(t, 300.0, x)

	// Right edge to anchor's left edge (proposed maxX 147 vs 150).
	x, _, _ = Snap(moving, 97, 0, others, 1.0)
	assert.Equal(t, 100.0, x)
}

// Center alignment outranks edge alignment: when both are in range only the
// center candidate fires.
func TestSnapPrecedenceCenterWins(t *testing.T) {
	moving := &Object{ID: "m", Shape: Rectangle{Width: 10, Height: 10}}
	anchor := &Object{ID: "a", X: 100, Y: 0, Shape: Rectangle{Width: 10, Height: 10}}

	// Proposed center at 104: center diff 4, left-left diff also 4 (99 vs 95).
	x, _, _ := Snap(moving, 104, 300, []*Object{anchor}, 1.0)
	assert.Equal(t, 100.0, x)
}

func TestSnapAxesAreIndependent(t *testing.T) {
	moving := rectAt("m", 0, 0)
	anchorX := rectAt("ax", 200, 600)
	anchorY := rectAt("ay", 700, 300)

	x, y, guides := Snap(moving, 204, 296, []*Object{anchorX, anchorY}, 1.0)
	assert.Equal(t, 200.0, x) // X from anchorX
	assert.Equal(t, 300.0, y) // Y from anchorY
	assert.Len(t, guides, 2)
}

func TestSnapVerticalCandidates(t *testing.T) {
	// Heights differ so edge alignment can fire without center alignment.
	moving := rectAt("m", 0, 0) // 100 tall
	anchor := &Object{ID: "a", X: 500, Y: 200, Shape: Rectangle{Width: 100, Height: 40}} // Y edges 180..220
	others := []*Object{anchor}

	// Top-to-top: proposed maxY 215 vs 220, center diff 35 keeps center out.
	_, y, _ := Snap(moving, 0, 165, others, 1.0)
	assert.Equal(t, 170.0, y)

	// Bottom-to-bottom: proposed minY 183 vs 180.
	_, y, _ = Snap(moving, 0, 233, others, 1.0)
	assert.Equal(t, 230.0, y)

	// No vertical opposite-edge candidate exists: minY near the anchor's maxY
	// stays put once outside center/top/bottom tolerance.
	_, y, _ = Snap(moving, 0, 275, others, 1.0)
	assert.Equal(t, 275.0, y)
}

func TestSnapIgnoresNothingInRange(t *testing.T) {
	moving := rectAt("m", 0, 0)
	anchor := rectAt("a", 500, 500)
	x, y, guides := Snap(moving, 100, 100, []*Object{anchor}, 1.0)
	assert.Equal(t, 100.0, x)
	assert.Equal(t, 100.0, y)
	assert.Empty(t, guides)
}

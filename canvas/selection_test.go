package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectReplaceAndToggle(t *testing.T) {
	sel := NewSelection()

	sel.Select("a", false)
	assert.Equal(t, []string{"a"}, sel.IDs())

	// Additive toggles membership.
	sel.Select("b", true)
	assert.ElementsMatch(t, []string{"a", "b"}, sel.IDs())
	sel.Select("b", true)
	assert.Equal(t, []string{"a"}, sel.IDs())

	// Plain click on an unselected object replaces the selection.
	sel.Select("b", true)
	sel.Select("c", false)
	assert.Equal(t, []string{"c"}, sel.IDs())
}

// A plain press on an already-selected member keeps the group intact, so a group
// drag can start from any member.
func TestSelectKeepsGroupWhenMemberPressed(t *testing.T) {
	sel := NewSelection("a", "b", "c")
	sel.Select("b", false)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, sel.IDs())
}

func TestMarqueeCrossingByDirection(t *testing.T) {
	ltr := Marquee{StartX: 10, StartY: 10, X: 200, Y: 150}
	assert.False(t, ltr.Crossing())

	rtl := Marquee{StartX: 200, StartY: 10, X: 10, Y: 150}
	assert.True(t, rtl.Crossing())

	// Box is normalized either way.
	x, y, w, h := rtl.Box()
	assert.Equal(t, []float64{10, 10, 190, 140}, []float64{x, y, w, h})
}

func TestMarqueeSignificantThreshold(t *testing.T) {
	tiny := Marquee{StartX: 10, StartY: 10, X: 11.5, Y: 11.5}
	assert.False(t, tiny.Significant())

	wide := Marquee{StartX: 10, StartY: 10, X: 13, Y: 10}
	assert.True(t, wide.Significant())
}

func marqueeScene() *Scene {
	s := &Scene{}
	// World positions chosen so the default camera puts them at predictable screen
	// spots: screenY = 900 - worldY at scale 1.
	s.Append(rectAt("inside", 200, 700))   // screen center (200,200), box 150..250
	s.Append(rectAt("straddle", 400, 700)) // box 350..450
	s.Append(rectAt("outside", 800, 700))
	return s
}

func TestMarqueeWindowModeRequiresContainment(t *testing.T) {
	s := marqueeScene()
	v := DefaultView()

	// Left-to-right box covering "inside" fully, "straddle" partially.
	m := Marquee{StartX: 100, StartY: 100, X: 380, Y: 300}
	sel := MarqueeSelect(s, v, m, false, NewSelection())
	assert.Equal(t, []string{"inside"}, sel.IDs())
}

func TestMarqueeCrossingModeSelectsIntersecting(t *testing.T) {
	s := marqueeScene()
	v := DefaultView()

	// Same box drawn right-to-left: crossing picks up the straddler too.
	m := Marquee{StartX: 380, StartY: 100, X: 100, Y: 300}
	sel := MarqueeSelect(s, v, m, false, NewSelection())
	assert.ElementsMatch(t, []string{"inside", "straddle"}, sel.IDs())
}

func TestMarqueeAdditiveUnionsPriorSelection(t *testing.T) {
	s := marqueeScene()
	v := DefaultView()
	prior := NewSelection("outside")

	m := Marquee{StartX: 100, StartY: 100, X: 380, Y: 300}
	sel := MarqueeSelect(s, v, m, true, prior)
	assert.ElementsMatch(t, []string{"inside", "outside"}, sel.IDs())

	// Without additive the prior selection is replaced.
	sel = MarqueeSelect(s, v, m, false, prior)
	assert.Equal(t, []string{"inside"}, sel.IDs())
}

func TestMarqueeRespectsZoomAndPan(t *testing.T) {
	s := marqueeScene()
	v := View{Scale: 0.5, X: 100, Y: 50}

	// Enclose "inside" in screen space under the transformed camera.
	cx, cy := v.ToScreen(200, 700)
	m := Marquee{StartX: cx - 60, StartY: cy - 60, X: cx + 60, Y: cy + 60}
	sel := MarqueeSelect(s, v, m, false, NewSelection())
	assert.Equal(t, []string{"inside"}, sel.IDs())
}

func TestSelectionPrune(t *testing.T) {
	s := sceneOf("a", "b")
	sel := NewSelection("a", "b", "gone")
	sel.Prune(s)
	assert.ElementsMatch(t, []string{"a", "b"}, sel.IDs())
}

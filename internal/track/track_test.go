package track

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionRegionLabel(t *testing.T) {
	var p Position
	assert.Empty(t, p.Region())

	p.SetRegion("arena-north")
	assert.True(t, p.RegionValid)
	assert.Equal(t, "arena-north", p.Region())

	p.ClearRegion()
	assert.False(t, p.RegionValid)
	assert.Empty(t, p.Region())
}

func TestPositionRegionLabelTruncated(t *testing.T) {
	var p Position
	long := "a-region-label-far-longer-than-the-inline-capacity"
	p.SetRegion(long)
	assert.Equal(t, long[:RegionLabelCap], p.Region())
}

func TestRandomAccelStaysInRoom(t *testing.T) {
	room := Room{X: 0, Y: 0, Width: 100, Height: 50}
	g := NewRandomAccel(1.0/30, room, 20, 1)

	var p Position
	for i := 0; i < 10000; i++ {
		g.Next(&p)
		require.True(t, p.PositionValid)
		require.True(t, p.VelocityValid)
		require.GreaterOrEqual(t, p.Point.X, room.X)
		require.LessOrEqual(t, p.Point.X, room.X+room.Width)
		require.GreaterOrEqual(t, p.Point.Y, room.Y)
		require.LessOrEqual(t, p.Point.Y, room.Y+room.Height)
	}
}

func TestRandomAccelDeterministicPerSeed(t *testing.T) {
	room := Room{Width: 100, Height: 100}
	a := NewRandomAccel(0.1, room, 5, 42)
	b := NewRandomAccel(0.1, room, 5, 42)

	var pa, pb Position
	for i := 0; i < 100; i++ {
		a.Next(&pa)
		b.Next(&pb)
		require.Equal(t, pa.Point, pb.Point)
	}
}

func TestRegionContains(t *testing.T) {
	square := Region{ID: "sq", Contour: []Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}}}

	assert.True(t, square.Contains(Point2D{5, 5}))
	assert.False(t, square.Contains(Point2D{15, 5}))
	assert.False(t, square.Contains(Point2D{-1, -1}))

	degenerate := Region{ID: "line", Contour: []Point2D{{0, 0}, {10, 10}}}
	assert.False(t, degenerate.Contains(Point2D{5, 5}))
}

func TestRegionFilterFirstMatchWins(t *testing.T) {
	f := NewRegionFilter([]Region{
		{ID: "left", Contour: []Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}}},
		{ID: "all", Contour: []Point2D{{0, 0}, {20, 0}, {20, 20}, {0, 20}}},
	})

	var p Position
	p.Point = Point2D{5, 5}
	p.PositionValid = true
	f.Filter(&p)
	assert.True(t, p.RegionValid)
	assert.Equal(t, "left", p.Region())

	p.Point = Point2D{15, 15}
	f.Filter(&p)
	assert.Equal(t, "all", p.Region())

	p.Point = Point2D{50, 50}
	f.Filter(&p)
	assert.False(t, p.RegionValid)
}

func TestRegionFilterSkipsInvalidPositions(t *testing.T) {
	f := NewRegionFilter([]Region{
		{ID: "all", Contour: []Point2D{{0, 0}, {20, 0}, {20, 20}, {0, 20}}},
	})
	var p Position
	p.Point = Point2D{5, 5}
	p.PositionValid = false
	p.SetRegion("stale")
	f.Filter(&p)
	assert.False(t, p.RegionValid)
	assert.Empty(t, p.Region())
}

func TestCombineMeans(t *testing.T) {
	a := Position{Point: Point2D{0, 0}, Velocity: Point2D{1, 0}, Heading: Point2D{1, 0},
		PositionValid: true, VelocityValid: true, HeadingValid: true}
	b := Position{Point: Point2D{10, 20}, Velocity: Point2D{3, 2}, Heading: Point2D{0, 1},
		PositionValid: true, VelocityValid: true, HeadingValid: true}

	out := Combine([]Position{a, b}, NoAnchor)
	assert.True(t, out.PositionValid)
	assert.Equal(t, Point2D{5, 10}, out.Point)
	assert.Equal(t, Point2D{2, 1}, out.Velocity)

	require.True(t, out.HeadingValid)
	assert.InDelta(t, 1.0, math.Hypot(out.Heading.X, out.Heading.Y), 1e-12)
	assert.InDelta(t, out.Heading.X, out.Heading.Y, 1e-12) // 45 degrees
}

func TestCombineValidityIsConjunction(t *testing.T) {
	a := Position{Point: Point2D{0, 0}, PositionValid: true, VelocityValid: true, HeadingValid: true,
		Heading: Point2D{1, 0}, Velocity: Point2D{1, 1}}
	b := Position{Point: Point2D{4, 4}, PositionValid: true}

	out := Combine([]Position{a, b}, NoAnchor)
	assert.True(t, out.PositionValid)
	assert.False(t, out.VelocityValid)
	assert.False(t, out.HeadingValid)
}

func TestCombineAnchorHeading(t *testing.T) {
	anchorPos := Position{Point: Point2D{0, 0}, PositionValid: true, VelocityValid: true}
	other := Position{Point: Point2D{3, 4}, PositionValid: true, VelocityValid: true}

	out := Combine([]Position{anchorPos, other}, 0)
	require.True(t, out.HeadingValid)
	assert.InDelta(t, 0.6, out.Heading.X, 1e-12)
	assert.InDelta(t, 0.8, out.Heading.Y, 1e-12)
}

func TestCombineEmpty(t *testing.T) {
	out := Combine(nil, NoAnchor)
	assert.False(t, out.PositionValid)
}

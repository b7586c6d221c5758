// Package track holds the 2D position data model and the small kinematic
// algorithms behind the position components: simulated motion, region
// labelling and multi-source combination.
package track

import (
	"fmt"
	"unsafe"
)

// Point2D is a 2D point or vector in arena units (pixels until a homography
// is applied).
type Point2D struct {
	X, Y float64
}

// Add returns p + q.
func (p Point2D) Add(q Point2D) Point2D { return Point2D{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q.
func (p Point2D) Sub(q Point2D) Point2D { return Point2D{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by s.
func (p Point2D) Scale(s float64) Point2D { return Point2D{p.X * s, p.Y * s} }

// RegionLabelCap bounds the region label so Position keeps a fixed,
// pointer-free layout and can travel through a shared arena.
const RegionLabelCap = 32

const positionSize = 88

// Position is one tracked-object sample. Every field is inline: the value
// is copied byte-for-byte across process boundaries, so it must stay free
// of Go pointers and dynamically sized fields.
type Position struct {
	Point    Point2D
	Velocity Point2D
	Heading  Point2D // unit vector when HeadingValid

	PositionValid bool
	VelocityValid bool
	HeadingValid  bool
	RegionValid   bool

	regionLen uint8
	region    [RegionLabelCap]byte
}

func init() {
	// The slot layout is shared with other processes; catch accidental
	// field additions that change it.
	if unsafe.Sizeof(Position{}) != positionSize {
		panic(fmt.Sprintf("track: Position is %d bytes, want %d", unsafe.Sizeof(Position{}), positionSize))
	}
}

// Region returns the region label, empty unless RegionValid.
func (p *Position) Region() string {
	return string(p.region[:p.regionLen])
}

// SetRegion stores the region label, truncating to RegionLabelCap bytes,
// and marks it valid.
func (p *Position) SetRegion(label string) {
	p.regionLen = uint8(copy(p.region[:], label))
	p.RegionValid = true
}

// ClearRegion drops the region label.
func (p *Position) ClearRegion() {
	p.regionLen = 0
	p.region = [RegionLabelCap]byte{}
	p.RegionValid = false
}

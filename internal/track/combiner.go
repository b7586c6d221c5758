package track

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// NoAnchor disables anchor-based heading generation in Combine.
const NoAnchor = -1

// Combine folds N source samples into one mean position. A field of the
// result is valid only when it is valid in every source. With anchor set
// to a source index, heading is generated from the vector sum of each
// position's offset from the anchor position instead of averaging source
// headings; either way the result is renormalized to a unit vector.
func Combine(sources []Position, anchor int) Position {
	var out Position
	if len(sources) == 0 {
		return out
	}

	out.PositionValid = true
	out.VelocityValid = true
	out.HeadingValid = true

	xs := make([]float64, len(sources))
	ys := make([]float64, len(sources))
	vxs := make([]float64, len(sources))
	vys := make([]float64, len(sources))

	var heading Point2D
	for i, pos := range sources {
		if pos.PositionValid {
			xs[i], ys[i] = pos.Point.X, pos.Point.Y
		} else {
			out.PositionValid = false
		}
		if pos.VelocityValid {
			vxs[i], vys[i] = pos.Velocity.X, pos.Velocity.Y
		} else {
			out.VelocityValid = false
		}

		if anchor != NoAnchor {
			if pos.PositionValid && sources[anchor].PositionValid {
				heading = heading.Add(pos.Point.Sub(sources[anchor].Point))
			} else {
				out.HeadingValid = false
			}
		} else {
			if pos.HeadingValid {
				heading = heading.Add(pos.Heading)
			} else {
				out.HeadingValid = false
			}
		}
	}

	out.Point = Point2D{stat.Mean(xs, nil), stat.Mean(ys, nil)}
	out.Velocity = Point2D{stat.Mean(vxs, nil), stat.Mean(vys, nil)}

	if out.HeadingValid {
		mag := math.Hypot(heading.X, heading.Y)
		if mag > 0 {
			out.Heading = heading.Scale(1 / mag)
		} else {
			out.HeadingValid = false
		}
	}
	return out
}

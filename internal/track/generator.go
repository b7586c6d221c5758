package track

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Room is the rectangular boundary simulated positions stay inside.
type Room struct {
	X, Y, Width, Height float64
}

// RandomAccel simulates smooth random 2D motion: acceleration drawn from a
// zero-mean normal distribution, integrated through a constant-velocity
// state model. Positions leaving the room wrap to the opposite edge, which
// avoids the endless oscillation a reflecting boundary would produce for
// large excursions.
type RandomAccel struct {
	dt    float64
	room  Room
	accel distuv.Normal

	// state: x, vx, y, vy
	x, vx, y, vy float64
}

// NewRandomAccel returns a generator stepping dt seconds per sample with
// the given acceleration sigma. Runs with equal seeds produce equal
// trajectories.
func NewRandomAccel(dt float64, room Room, sigma float64, seed uint64) *RandomAccel {
	g := &RandomAccel{
		dt:   dt,
		room: room,
		accel: distuv.Normal{
			Mu:    0,
			Sigma: sigma,
			Src:   rand.NewSource(seed),
		},
		x: room.X + room.Width/2,
		y: room.Y + room.Height/2,
	}
	return g
}

// Next advances the simulation one step and fills p with the new sample.
// Velocity is known exactly here, so both position and velocity are marked
// valid; heading and region are left to downstream components.
func (g *RandomAccel) Next(p *Position) {
	ax := g.accel.Rand()
	ay := g.accel.Rand()

	dt := g.dt
	g.x += g.vx*dt + ax*dt*dt/2
	g.vx += ax * dt
	g.y += g.vy*dt + ay*dt*dt/2
	g.vy += ay * dt

	// Wrap-around boundary.
	if g.x < g.room.X {
		g.x = g.room.X + g.room.Width
	}
	if g.x > g.room.X+g.room.Width {
		g.x = g.room.X
	}
	if g.y < g.room.Y {
		g.y = g.room.Y + g.room.Height
	}
	if g.y > g.room.Y+g.room.Height {
		g.y = g.room.Y
	}

	*p = Position{}
	p.Point = Point2D{g.x, g.y}
	p.PositionValid = true
	p.Velocity = Point2D{g.vx, g.vy}
	p.VelocityValid = true
}

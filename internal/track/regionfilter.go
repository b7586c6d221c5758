package track

// Region is a named polygonal contour.
type Region struct {
	ID      string
	Contour []Point2D
}

// Contains reports whether pt lies inside the contour (ray casting; points
// exactly on an edge may land on either side).
func (r Region) Contains(pt Point2D) bool {
	n := len(r.Contour)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		a, b := r.Contour[i], r.Contour[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) &&
			pt.X < (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// RegionFilter labels positions with the first configured region that
// contains them.
type RegionFilter struct {
	regions []Region
}

// NewRegionFilter builds a filter over the given regions. Order matters:
// when regions overlap, the first match wins.
func NewRegionFilter(regions []Region) *RegionFilter {
	return &RegionFilter{regions: regions}
}

// Regions returns the configured regions.
func (f *RegionFilter) Regions() []Region { return f.regions }

// Filter labels p in place. Positions that are invalid or inside no region
// pass through with the region cleared.
func (f *RegionFilter) Filter(p *Position) {
	p.ClearRegion()
	if !p.PositionValid {
		return
	}
	for _, r := range f.regions {
		if r.Contains(p.Point) {
			p.SetRegion(r.ID)
			return
		}
	}
}

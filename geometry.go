/*
Copyright © 2019 the BeamTrace authors.
This file is part of BeamTrace.

BeamTrace is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

BeamTrace is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with BeamTrace.  If not, see <http://www.gnu.org/licenses/>.
*/

package beamtrace

import (
	"math"

	"github.com/ctessum/geom"
)

// Trajectory-segment classification codes returned by Geometry.Test.
const (
	TestMiss = 0 // segment stays inside the domain
	TestHit  = 1 // segment crosses a wall
	TestExit = 2 // segment leaves the bounding box
)

// Segment is one wall segment in (z, ρ) coordinates; X holds the axial
// coordinate and Y the radius.
type Segment struct {
	P1, P2 geom.Point
}

// Geometry describes the axisymmetric walls of the simulation domain as a
// set of 2-D segments in the (z, ρ) half-plane, plus an outer bounding box.
// It is built once and shared read-only across workers.
type Geometry struct {
	segments []Segment
	bounds   *geom.Bounds // X: axial interval, Y: radial bound
}

// NewGeometry creates a geometry from wall segments and the outer bounds
// (axial interval [zMin, zMax], radial bound rMax).
func NewGeometry(segments []Segment, zMin, zMax, rMax float64) *Geometry {
	return &Geometry{
		segments: segments,
		bounds:   newRect(zMin, 0, zMax, rMax),
	}
}

func newRect(xmin, ymin, xmax, ymax float64) *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: xmin, Y: ymin},
		Max: geom.Point{X: xmax, Y: ymax},
	}
}

// Bounds returns the outer bounding box in (z, ρ) coordinates.
func (g *Geometry) Bounds() *geom.Bounds { return g.bounds }

// Test classifies the trajectory segment from x1 to x2 (3-D Cartesian):
// TestHit if its (z, ρ) projection crosses any wall segment, else TestExit
// if x2 lies outside the bounding box, else TestMiss.
func (g *Geometry) Test(x1, x2 [3]float64) int {
	p1 := geom.Point{X: x1[2], Y: math.Hypot(x1[0], x1[1])}
	p2 := geom.Point{X: x2[2], Y: math.Hypot(x2[0], x2[1])}
	for _, s := range g.segments {
		if segmentsCross(p1, p2, s.P1, s.P2) {
			return TestHit
		}
	}
	if p2.X < g.bounds.Min.X || p2.X > g.bounds.Max.X || p2.Y > g.bounds.Max.Y {
		return TestExit
	}
	return TestMiss
}

// segmentsCross reports whether the segments p1p2 and p3p4 properly
// intersect, using the sign-of-denominator branch of Antonio's "Faster Line
// Segment Intersection" (Graphics Gems III). The test is strict: a segment
// that only touches an endpoint of the other (numerator equal to 0 or to
// the denominator) does not count as crossing, and collinear overlap does
// not count either.
func segmentsCross(p1, p2, p3, p4 geom.Point) bool {
	ax := p2.X - p1.X
	ay := p2.Y - p1.Y
	bx := p3.X - p4.X
	by := p3.Y - p4.Y
	cx := p1.X - p3.X
	cy := p1.Y - p3.Y

	f := ay*bx - ax*by
	if f == 0 {
		return false
	}
	d := by*cx - bx*cy
	if f > 0 {
		if d <= 0 || d >= f {
			return false
		}
	} else {
		if d >= 0 || d <= f {
			return false
		}
	}
	e := ax*cy - ay*cx
	if f > 0 {
		if e <= 0 || e >= f {
			return false
		}
	} else {
		if e >= 0 || e <= f {
			return false
		}
	}
	return true
}

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
	"testing"

	"github.com/ctessum/geom"
	"golang.org/x/exp/rand"
)

// orientationCross is a reference oracle for proper segment intersection:
// the segments cross iff each strictly separates the endpoints of the
// other. Random segments touch endpoints with probability zero, so this
// matches the strict Antonio parity.
func orientationCross(p1, p2, p3, p4 geom.Point) bool {
	area := func(a, b, c geom.Point) float64 {
		return (b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y)
	}
	d1 := area(p3, p4, p1)
	d2 := area(p3, p4, p2)
	d3 := area(p1, p2, p3)
	d4 := area(p1, p2, p4)
	return d1*d2 < 0 && d3*d4 < 0
}

func TestSegmentsCrossAgainstOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	pt := func() geom.Point {
		return geom.Point{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1}
	}
	for i := 0; i < 1000000; i++ {
		p1, p2, p3, p4 := pt(), pt(), pt(), pt()
		got := segmentsCross(p1, p2, p3, p4)
		want := orientationCross(p1, p2, p3, p4)
		if got != want {
			t.Fatalf("iteration %d: segmentsCross=%v oracle=%v for %v-%v vs %v-%v",
				i, got, want, p1, p2, p3, p4)
		}
	}
}

func TestSegmentsCrossEndpointTouch(t *testing.T) {
	// A segment that only touches a vertex of the other does not count.
	a1 := geom.Point{X: 0, Y: 0}
	a2 := geom.Point{X: 1, Y: 0}
	b1 := geom.Point{X: 1, Y: -1}
	b2 := geom.Point{X: 1, Y: 1}
	if segmentsCross(a1, a2, b1, b2) {
		t.Error("endpoint touch should not count as crossing")
	}
	// Collinear overlap does not count either (zero denominator).
	if segmentsCross(a1, a2, geom.Point{X: 0.5, Y: 0}, geom.Point{X: 2, Y: 0}) {
		t.Error("collinear overlap should not count as crossing")
	}
	// A proper crossing does.
	if !segmentsCross(a1, a2, geom.Point{X: 0.5, Y: -1}, geom.Point{X: 0.5, Y: 1}) {
		t.Error("proper crossing not detected")
	}
}

func TestGeometryTest(t *testing.T) {
	g := NewGeometry([]Segment{{
		P1: geom.Point{X: 0.01, Y: -0.05},
		P2: geom.Point{X: 0.01, Y: 0.15},
	}}, -1, 1, 0.5)

	// Crossing the wall.
	if c := g.Test([3]float64{0, 0.001, 0}, [3]float64{0, 0.001, 0.02}); c != TestHit {
		t.Errorf("expected hit, got %d", c)
	}
	// Staying inside.
	if c := g.Test([3]float64{0, 0.001, 0}, [3]float64{0, 0.001, 0.005}); c != TestMiss {
		t.Errorf("expected miss, got %d", c)
	}
	// Leaving axially (backward, away from the wall).
	if c := g.Test([3]float64{0, 0.001, 0}, [3]float64{0, 0.001, -2}); c != TestExit {
		t.Errorf("expected axial exit, got %d", c)
	}
	// Leaving radially.
	if c := g.Test([3]float64{0, 0.001, 0}, [3]float64{0.6, 0, 0}); c != TestExit {
		t.Errorf("expected radial exit, got %d", c)
	}
}

func TestGeometryEmptyDomain(t *testing.T) {
	g := NewGeometry(nil, -0.05, 0.05, 0.05)
	if c := g.Test([3]float64{0, 0, 0}, [3]float64{0.01, 0, 0.01}); c != TestMiss {
		t.Errorf("expected miss in empty geometry, got %d", c)
	}
	if c := g.Test([3]float64{0, 0, 0}, [3]float64{0, 0, 0.06}); c != TestExit {
		t.Errorf("expected exit through bounding box, got %d", c)
	}
}

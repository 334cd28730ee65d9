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
	"fmt"
	"math"
)

// BinGrid is a rectangular binning grid over (r, z) holding one BinStats
// accumulator per cell. Out-of-range positions are clamped to the edge
// cells, so an update never fails.
type BinGrid struct {
	RMin, RMax float64
	ZMin, ZMax float64
	NR, NZ     int

	dr, dz float64
	cells  []BinStats
}

// NewBinGrid creates a grid with nr × nz cells spanning
// [rMin, rMax] × [zMin, zMax].
func NewBinGrid(rMin, rMax float64, nr int, zMin, zMax float64, nz int) *BinGrid {
	return &BinGrid{
		RMin: rMin, RMax: rMax,
		ZMin: zMin, ZMax: zMax,
		NR: nr, NZ: nz,
		dr:    (rMax - rMin) / float64(nr),
		dz:    (zMax - zMin) / float64(nz),
		cells: make([]BinStats, nr*nz),
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Update bins the position x into a cell and observes the sample there.
// The tangential velocity is derived from the Cartesian components; on the
// axis, where the tangential direction is undefined, it is taken as zero.
func (g *BinGrid) Update(x, v [3]float64, t float64, nColl int, lFree float64) {
	r := math.Hypot(x[0], x[1])
	i := clampIndex(int(math.Floor((r-g.RMin)/g.dr)), g.NR)
	j := clampIndex(int(math.Floor((x[2]-g.ZMin)/g.dz)), g.NZ)
	var vt float64
	if r > 1e-12 {
		vt = (-x[1]*v[0] + x[0]*v[1]) / r
	}
	g.cells[i*g.NZ+j].Observe(vt, v[2], t, float64(nColl), lFree)
}

// Cell returns the accumulator at (i, j), 0-based.
func (g *BinGrid) Cell(i, j int) *BinStats {
	return &g.cells[i*g.NZ+j]
}

// CellCenter returns the (r, z) coordinates of the center of cell (i, j).
func (g *BinGrid) CellCenter(i, j int) (r, z float64) {
	return g.RMin + (float64(i)+0.5)*g.dr, g.ZMin + (float64(j)+0.5)*g.dz
}

// Merge folds o into the receiver cell-by-cell. The two grids must have
// identical geometry.
func (g *BinGrid) Merge(o *BinGrid) error {
	if g.NR != o.NR || g.NZ != o.NZ ||
		g.RMin != o.RMin || g.RMax != o.RMax ||
		g.ZMin != o.ZMin || g.ZMax != o.ZMax {
		return fmt.Errorf("beamtrace: cannot merge bin grids with different geometry")
	}
	for i := range g.cells {
		g.cells[i].Merge(&o.cells[i])
	}
	return nil
}

// Reset zeroes all accumulators, retaining the grid geometry.
func (g *BinGrid) Reset() {
	for i := range g.cells {
		g.cells[i] = BinStats{}
	}
}

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
	"golang.org/x/exp/rand"
)

// Row is the termination record of one trajectory: the position at the
// start of the terminal step, the position the step would have reached, the
// final velocity, the cumulative collision count, and the elapsed time.
// Code distinguishes a wall hit (TestHit) from a domain exit (TestExit).
type Row struct {
	X     [3]float64
	XNext [3]float64
	V     [3]float64
	NColl int
	Time  float64
	Code  int
}

// traceParticle runs one particle from (x0, v0) to termination. grid, if
// non-nil, accumulates trajectory statistics; interp carries the worker's
// flow-lookup cache and diag its sampler diagnostics.
func (e *Engine) traceParticle(rng *rand.Rand, x0, v0 [3]float64, grid *BinGrid, interp *InterpState, diag *samplerDiag) Row {
	cfg := e.Cfg
	x, v := x0, v0
	interp.Reset()
	e.Flow.Refresh(interp, x)

	var t float64
	nColl := 0

	// Randomize the initial internal state.
	spin := 1.0
	if rng.Float64() < 0.5 {
		spin = -1
	}

	// A particle starting at rest has no well-defined free path; inject one
	// collision so that it picks up a thermal velocity first.
	if norm3(v) < minSpeed {
		u := dist3(v, interp.VGas)
		vg, theta := sampleCollision(rng, u, interp.T, cfg.MassGas,
			e.Table.Lookup(interp.T, u), rejectionM, diag, e.Log)
		collide(rng, &v, interp.VGas, vg, theta, cfg.MassMolecule, cfg.MassGas)
		nColl++
	}

	for {
		e.Flow.Refresh(interp, x)
		vGas := interp.VGas
		u := dist3(v, vGas)
		d := freePath(rng, norm3(v), interp.T, interp.Rho, cfg.CrossSection, cfg.MassGas, u)

		xNext, vNext := x, v
		e.Prop.Advance(&xNext, &vNext, d, spin*cfg.Omega)

		if code := e.Geom.Test(x, xNext); code != TestMiss {
			return Row{X: x, XNext: xNext, V: vNext, NColl: nColl, Time: t, Code: code}
		}

		t += d / norm3(v)
		nColl++
		if grid != nil {
			grid.Update(x, vNext, t, nColl, d)
		}
		x, v = xNext, vNext

		vg, theta := sampleCollision(rng, u, interp.T, cfg.MassGas,
			e.Table.Lookup(interp.T, u), rejectionM, diag, e.Log)
		collide(rng, &v, vGas, vg, theta, cfg.MassMolecule, cfg.MassGas)
		if rng.Float64() < cfg.PFlip {
			spin = -spin
		}
	}
}

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

	"github.com/ctessum/sparse"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

const (
	// proposalTableSize is the number of samples per table axis.
	proposalTableSize = 21

	// proposalCalibDraws is the number of sampler draws used to calibrate
	// each table cell.
	proposalCalibDraws = 100

	// proposalCalibM is the (loose) majorant constant used during
	// calibration, when the proposal is only a first guess.
	proposalCalibM = 20
)

// ProposalTable stores Gaussian proposal parameters for the collision
// sampler on a grid over temperature and relative speed. It is generated
// once at initialization by calibrating the rejection sampler against
// first-guess proposals, and shared read-only across workers.
type ProposalTable struct {
	TMin, TStep, TMax float64
	UMin, UStep, UMax float64

	muVG       *sparse.DenseArray
	sigmaVG    *sparse.DenseArray
	sigmaTheta *sparse.DenseArray
}

// NewProposalTable calibrates a proposal table for the given configuration.
// The temperature axis spans the observed flow temperatures and the
// relative-speed axis spans [0, 1.5·max bulk speed]; a quiescent flow is
// given a 1 m/s floor so the axis stays non-degenerate.
func NewProposalTable(cfg *Config, flow *FlowField, rng *rand.Rand) *ProposalTable {
	tMin, tMax := flow.TemperatureRange()
	uMax := 1.5 * flow.MaxBulkSpeed()
	if uMax <= 0 {
		uMax = 1
	}
	t := &ProposalTable{
		TMin: tMin, TMax: tMax,
		TStep: (tMax - tMin) / (proposalTableSize - 1),
		UMin:  0, UMax: uMax,
		UStep:      uMax / (proposalTableSize - 1),
		muVG:       sparse.ZerosDense(proposalTableSize, proposalTableSize),
		sigmaVG:    sparse.ZerosDense(proposalTableSize, proposalTableSize),
		sigmaTheta: sparse.ZerosDense(proposalTableSize, proposalTableSize),
	}

	var diag samplerDiag
	vgs := make([]float64, proposalCalibDraws)
	ths := make([]float64, proposalCalibDraws)
	for i := 0; i < proposalTableSize; i++ {
		T := t.TMin + float64(i)*t.TStep
		for j := 0; j < proposalTableSize; j++ {
			U := t.UMin + float64(j)*t.UStep

			sigmaVG0 := 1.5 * math.Sqrt(8*kB*(T+0.2)/(math.Pi*cfg.MassGas))
			guess := proposal{
				muVG:       U + sigmaVG0,
				sigmaVG:    sigmaVG0,
				sigmaTheta: 1.5 * math.Pi * sigmaVG0 / (sigmaVG0 + U),
			}
			for k := range vgs {
				vgs[k], ths[k] = sampleCollision(rng, U, T, cfg.MassGas, guess, proposalCalibM, &diag, nil)
			}
			t.muVG.Set(stat.Mean(vgs, nil), i, j)
			t.sigmaVG.Set(stat.StdDev(vgs, nil), i, j)
			t.sigmaTheta.Set(stat.StdDev(ths, nil), i, j)
		}
	}
	return t
}

func tableIndex(v, min, step float64) int {
	if step <= 0 {
		return 0
	}
	return clampIndex(int(math.Round((v-min)/step)), proposalTableSize)
}

// Lookup returns the proposal parameters of the cell nearest to (T, U),
// clamping out-of-range arguments to the table extents.
func (t *ProposalTable) Lookup(T, U float64) proposal {
	i := tableIndex(T, t.TMin, t.TStep)
	j := tableIndex(U, t.UMin, t.UStep)
	return proposal{
		muVG:       t.muVG.Get(i, j),
		sigmaVG:    t.sigmaVG.Get(i, j),
		sigmaTheta: t.sigmaTheta.Get(i, j),
	}
}

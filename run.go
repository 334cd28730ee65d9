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
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// ParticleSource produces initial phase-space samples for new trajectories.
// Implementations must draw all randomness from the supplied stream so that
// runs stay reproducible.
type ParticleSource func(rng *rand.Rand) (x, v [3]float64)

// PointSource returns the default particle source: position (r, 0, z) and
// velocity (vr+G₁, G₂, vz+G₃) with G ~ N(0, √(kB·T/M)) independent per
// component. T = 0 collapses the thermal spread.
func PointSource(cfg *Config, z, r, vz, vr, T float64) ParticleSource {
	sigma := 0.0
	if T > 0 {
		sigma = math.Sqrt(kB * T / cfg.MassMolecule)
	}
	return func(rng *rand.Rand) ([3]float64, [3]float64) {
		if sigma == 0 {
			return [3]float64{r, 0, z}, [3]float64{vr, 0, vz}
		}
		g := distuv.Normal{Mu: 0, Sigma: sigma, Src: rng}
		return [3]float64{r, 0, z},
			[3]float64{vr + g.Rand(), g.Rand(), vz + g.Rand()}
	}
}

// Engine bundles the immutable components of a simulation. All fields are
// shared read-only across workers once the engine is built.
type Engine struct {
	Cfg   *Config
	Flow  *FlowField
	Geom  *Geometry
	Table *ProposalTable
	Prop  *Propagator
	Log   *logrus.Logger
}

// NewEngine assembles an engine and calibrates its proposal table. tableRNG
// seeds the calibration draws; lg may be nil to use the standard logger.
func NewEngine(cfg *Config, flow *FlowField, geometry *Geometry, tableRNG *rand.Rand, lg *logrus.Logger) *Engine {
	if lg == nil {
		lg = logrus.StandardLogger()
	}
	return &Engine{
		Cfg:   cfg,
		Flow:  flow,
		Geom:  geometry,
		Table: NewProposalTable(cfg, flow, tableRNG),
		Prop:  NewPropagator(cfg),
		Log:   lg,
	}
}

// newBinGrid creates a statistics grid spanning the flow bounding box, or
// nil when statistics collection is disabled.
func (e *Engine) newBinGrid() *BinGrid {
	if e.Cfg.RBins <= 0 || e.Cfg.ZBins <= 0 {
		return nil
	}
	b := e.Flow.Bounds()
	return NewBinGrid(b.Min.Y, b.Max.Y, e.Cfg.RBins, b.Min.X, b.Max.X, e.Cfg.ZBins)
}

// Results holds the output of a run: one row per particle in launch order,
// the merged statistics grids (nil when disabled), termination tallies, and
// diagnostic counters accumulated across workers.
type Results struct {
	Rows []Row

	// All accumulates statistics over every trajectory; Exit only over
	// trajectories that left the domain through the bounding box.
	All, Exit *BinGrid

	Hits, Exits int

	SpeedFallbacks, AngleFallbacks int64
	Refreshes                      int
}

// Run traces n particles across workers goroutines (GOMAXPROCS if
// workers < 1). Particles are assigned to workers by index stride and each
// worker owns an independent RNG stream seeded with seed + worker index, so
// results are reproducible for a fixed (seed, n, workers). Per-trajectory
// statistics are merged into the shared accumulators at trajectory end
// under a mutex; output rows are written race-free into preassigned slots.
func (e *Engine) Run(n, workers int, seed uint64, source ParticleSource) *Results {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	res := &Results{
		Rows: make([]Row, n),
		All:  e.newBinGrid(),
		Exit: e.newBinGrid(),
	}

	e.Log.WithFields(logrus.Fields{
		"particles": n, "workers": workers, "seed": seed,
	}).Info("starting trajectory run")
	start := time.Now()

	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed + uint64(w)))
			interp := new(InterpState)
			var diag samplerDiag
			var grid *BinGrid
			if res.All != nil {
				grid = e.newBinGrid()
			}
			hits, exits := 0, 0
			for i := w; i < n; i += workers {
				x0, v0 := source(rng)
				if grid != nil {
					grid.Reset()
				}
				row := e.traceParticle(rng, x0, v0, grid, interp, &diag)
				res.Rows[i] = row
				switch row.Code {
				case TestHit:
					hits++
				case TestExit:
					exits++
				}
				if grid != nil {
					mu.Lock()
					if row.Code == TestExit {
						res.Exit.Merge(grid)
					}
					res.All.Merge(grid)
					mu.Unlock()
				}
			}
			mu.Lock()
			res.Hits += hits
			res.Exits += exits
			res.SpeedFallbacks += diag.speedFallbacks
			res.AngleFallbacks += diag.angleFallbacks
			res.Refreshes += interp.Refreshes
			mu.Unlock()
		}(w)
	}
	wg.Wait()

	e.Log.WithFields(logrus.Fields{
		"hits": res.Hits, "exits": res.Exits,
		"refreshes":        res.Refreshes,
		"samplerFallbacks": res.SpeedFallbacks + res.AngleFallbacks,
		"walltime":         time.Since(start).Round(time.Millisecond),
	}).Info("trajectory run complete")
	return res
}

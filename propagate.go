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

	"golang.org/x/exp/rand"
)

const (
	// minSpeed is the speed below which propagation is a no-op.
	minSpeed = 1e-6

	// maxFreePath caps sampled free paths, preventing pathological
	// excursions through near-vacuum cells [m].
	maxFreePath = 1000
)

// stepHarmonic advances position and velocity by time t under the signed
// trap frequency omega. Axial motion is always ballistic; the radial
// components follow the analytic harmonic (omega > 0) or inverted-harmonic
// (omega < 0) solution with angular frequency √2·|omega|. The two branches
// are distinct closed forms, not limits of one formula.
func stepHarmonic(x, v *[3]float64, t, omega float64) {
	x[2] += v[2] * t
	switch {
	case omega == 0:
		x[0] += v[0] * t
		x[1] += v[1] * t
	case omega > 0:
		w := math.Sqrt2 * omega
		s := w * t
		c, sn := math.Cos(s), math.Sin(s)
		for i := 0; i < 2; i++ {
			xi, vi := x[i], v[i]
			x[i] = xi*c + vi*sn/w
			v[i] = vi*c - xi*w*sn
		}
	default:
		w := math.Sqrt2 * -omega
		s := w * t
		ch, sh := math.Cosh(s), math.Sinh(s)
		for i := 0; i < 2; i++ {
			xi, vi := x[i], v[i]
			x[i] = xi*ch + vi*sh/w
			v[i] = vi*ch + xi*w*sh
		}
	}
}

// Propagator advances particles ballistically between collisions, switching
// the radial trap on and off at the configured axial thresholds.
type Propagator struct {
	cfg *Config
}

// NewPropagator returns a propagator for the given configuration.
func NewPropagator(cfg *Config) *Propagator { return &Propagator{cfg: cfg} }

// trapActive reports whether the trap acts on a particle at axial position
// z moving with axial velocity vz. Exactly on a threshold, membership is
// decided by the direction of travel so that the trap is active iff the
// upcoming sub-step lies inside [TrapZMin, TrapZMax].
func (p *Propagator) trapActive(z, vz float64) bool {
	zMin, zMax := p.cfg.TrapZMin, p.cfg.TrapZMax
	if z > zMin && z < zMax {
		return true
	}
	if z == zMin {
		return vz > 0
	}
	if z == zMax {
		return vz < 0
	}
	return false
}

// nextCrossing returns the earliest time within (0, t) at which the axial
// position z + vz·τ reaches a trap threshold, and the threshold value.
func (p *Propagator) nextCrossing(z, vz, t float64) (tc, zb float64, ok bool) {
	if vz == 0 {
		return 0, 0, false
	}
	tc = t
	for _, b := range [2]float64{p.cfg.TrapZMin, p.cfg.TrapZMax} {
		if math.IsInf(b, 0) {
			continue
		}
		if c := (b - z) / vz; c > 0 && c < tc {
			tc, zb, ok = c, b, true
		}
	}
	return tc, zb, ok
}

// Advance moves the particle a Euclidean distance d, converting distance to
// time with the current speed and integrating piecewise so that the trap is
// on exactly while TrapZMin ≤ x₃ ≤ TrapZMax. At each threshold crossing the
// step is split, the axial position snapped exactly to the threshold, the
// consumed distance subtracted, and the remainder propagated with the new
// trap state. Particles slower than minSpeed do not move.
func (p *Propagator) Advance(x, v *[3]float64, d, omega float64) {
	for d > 0 {
		speed := norm3(*v)
		if speed < minSpeed {
			return
		}
		t := d / speed
		var omEff float64
		if p.trapActive(x[2], v[2]) {
			omEff = omega
		}
		tc, zb, ok := p.nextCrossing(x[2], v[2], t)
		if !ok {
			stepHarmonic(x, v, t, omEff)
			return
		}
		x0 := *x
		stepHarmonic(x, v, tc, omEff)
		x[2] = zb
		consumed := dist3(*x, x0)
		if consumed <= 0 {
			// No axial progress is possible only with vz == 0, which
			// nextCrossing already excludes; guard against a stall anyway.
			consumed = speed * tc
		}
		d -= consumed
	}
}

// freePath samples the distance to the next collision from the local mean
// free path, capped at maxFreePath. A zero-density cell yields the cap.
func freePath(rng *rand.Rand, speed, T, rho, sigma, mGas, vRel float64) float64 {
	lambda := speed / (rho * sigma * math.Sqrt(8*kB*T/(math.Pi*mGas)+vRel*vRel))
	d := rng.ExpFloat64() * lambda
	if !(d < maxFreePath) { // also catches Inf and NaN
		d = maxFreePath
	}
	return d
}

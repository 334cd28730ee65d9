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
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

func TestBesselI0(t *testing.T) {
	// Reference values from Abramowitz & Stegun table 9.8.
	cases := []struct{ x, want float64 }{
		{0, 1},
		{0.5, 1.0634833707},
		{1, 1.2660658778},
		{2, 2.2795853023},
		{3.75, 9.1189448207},
		{5, 27.239871824},
		{10, 2815.7166284},
	}
	for _, c := range cases {
		if got := besselI0(c.x); math.Abs(got-c.want)/c.want > 1e-6 {
			t.Errorf("I0(%g) = %g, want %g", c.x, got, c.want)
		}
	}
}

func TestSampleCollisionColdLimit(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	p := proposal{muVG: 100, sigmaVG: 50, sigmaTheta: 1}
	vg, theta := sampleCollision(rng, 5, 1e-3, 4, p, rejectionM, &samplerDiag{}, nil)
	if vg != 5 || theta != 0 {
		t.Errorf("cold limit: got (%g, %g), want (5, 0)", vg, theta)
	}
}

// calibrate mimics the proposal-table generation for a single (T, U) cell.
func calibrate(rng *rand.Rand, T, U, mGas float64) proposal {
	sigmaVG0 := 1.5 * math.Sqrt(8*kB*(T+0.2)/(math.Pi*mGas))
	guess := proposal{
		muVG:       U + sigmaVG0,
		sigmaVG:    sigmaVG0,
		sigmaTheta: 1.5 * math.Pi * sigmaVG0 / (sigmaVG0 + U),
	}
	var diag samplerDiag
	vgs := make([]float64, proposalCalibDraws)
	ths := make([]float64, proposalCalibDraws)
	for i := range vgs {
		vgs[i], ths[i] = sampleCollision(rng, U, T, mGas, guess, proposalCalibM, &diag, nil)
	}
	return proposal{
		muVG:       stat.Mean(vgs, nil),
		sigmaVG:    stat.StdDev(vgs, nil),
		sigmaTheta: stat.StdDev(ths, nil),
	}
}

// TestSampleGasSpeedMoments draws gas speeds at (T = 4, U = 10) and
// compares the first two moments against a numerical integration of the
// target Rice density.
func TestSampleGasSpeedMoments(t *testing.T) {
	const (
		T    = 4.
		U    = 10.
		mGas = 4.
		n    = 100000
	)
	rng := rand.New(rand.NewSource(10))
	p := calibrate(rng, T, U, mGas)

	var diag samplerDiag
	samples := make([]float64, n)
	for i := range samples {
		samples[i], _ = sampleGasSpeed(rng, U, T, mGas, p, rejectionM, &diag, nil)
	}
	if frac := float64(diag.speedFallbacks) / n; frac > 0.01 {
		t.Fatalf("speed sampler fell back on %.1f%% of draws", frac*100)
	}

	// Numerical moments of f(v) ∝ v·exp(−m(u²+v²)/(2kBT))·I0(min(muv/kBT, 10)).
	kT := kB * T
	vMax := p.muVG + 20*p.sigmaVG
	const steps = 200000
	dv := vMax / steps
	var norm, m1, m2 float64
	for i := 0; i < steps; i++ {
		v := (float64(i) + 0.5) * dv
		f := v * math.Exp(-mGas*(U*U+v*v)/(2*kT)) *
			besselI0(math.Min(mGas*U*v/kT, besselArgMax))
		norm += f
		m1 += v * f
		m2 += v * v * f
	}
	wantMean := m1 / norm
	wantVar := m2/norm - wantMean*wantMean

	gotMean := stat.Mean(samples, nil)
	gotVar := stat.Variance(samples, nil)
	if different(gotMean, wantMean, 0.03) {
		t.Errorf("sampled mean %g differs from integrated mean %g by more than 3%%", gotMean, wantMean)
	}
	if different(gotVar, wantVar, 0.03) {
		t.Errorf("sampled variance %g differs from integrated variance %g by more than 3%%", gotVar, wantVar)
	}
}

func TestSampleApproachAngleRange(t *testing.T) {
	const (
		T    = 4.
		U    = 10.
		mGas = 4.
	)
	rng := rand.New(rand.NewSource(11))
	p := calibrate(rng, T, U, mGas)
	var diag samplerDiag
	for i := 0; i < 10000; i++ {
		vg, theta := sampleCollision(rng, U, T, mGas, p, rejectionM, &diag, nil)
		if theta < 0 || theta >= math.Pi {
			t.Fatalf("angle %g outside [0, π)", theta)
		}
		if vg < 0 {
			t.Fatalf("negative gas speed %g", vg)
		}
	}
}

// TestElasticScatterEnergy checks conservation of momentum-implied energy:
// with the gas-atom velocity after the collision inferred from momentum
// conservation, the total kinetic energy must be unchanged.
func TestElasticScatterEnergy(t *testing.T) {
	const (
		mMol = 191.
		mGas = 4.
	)
	rng := rand.New(rand.NewSource(12))
	for i := 0; i < 1000; i++ {
		v := [3]float64{rng.NormFloat64() * 100, rng.NormFloat64() * 100, rng.NormFloat64() * 100}
		vGas := [3]float64{rng.NormFloat64() * 200, rng.NormFloat64() * 200, rng.NormFloat64() * 200}
		before := mMol*dot3(v, v) + mGas*dot3(vGas, vGas)

		v2 := v
		elasticScatter(rng, &v2, vGas, mMol, mGas)
		var vGas2 [3]float64
		for k := range vGas2 {
			vGas2[k] = (mMol*(v[k]-v2[k]) + mGas*vGas[k]) / mGas
		}
		after := mMol*dot3(v2, v2) + mGas*dot3(vGas2, vGas2)
		if different(after, before, 1e-9) {
			t.Fatalf("energy not conserved: %g -> %g", before, after)
		}
	}
}

func TestGasAtomVelocitySpeed(t *testing.T) {
	// The reconstructed gas atom moves at exactly the sampled speed
	// relative to the molecule.
	rng := rand.New(rand.NewSource(13))
	v := [3]float64{10, -5, 80}
	bulk := [3]float64{0, 0, 150}
	for i := 0; i < 100; i++ {
		vgSpeed := rng.Float64() * 300
		theta := rng.Float64() * math.Pi
		vGas := gasAtomVelocity(rng, v, bulk, vgSpeed, theta)
		if different(dist3(vGas, v), vgSpeed, 1e-9) {
			t.Fatalf("gas atom relative speed %g, want %g", dist3(vGas, v), vgSpeed)
		}
	}
}

func TestRandomPerpOrthogonal(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	for i := 0; i < 100; i++ {
		dir := randomUnit(rng)
		perp := randomPerp(rng, dir)
		if math.Abs(dot3(dir, perp)) > 1e-9 || different(norm3(perp), 1, 1e-9) {
			t.Fatalf("perp not orthonormal: dot=%g norm=%g", dot3(dir, perp), norm3(perp))
		}
	}
}

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

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// coldLimitT is the temperature below which the buffer gas is treated
	// as motionless: the sampler returns the relative speed and a zero
	// approach angle deterministically.
	coldLimitT = 1e-2

	// besselArgMax clips the argument of the modified Bessel function in
	// the target densities, matching the reference behavior.
	besselArgMax = 10

	// rejectionM is the majorant constant of the runtime rejection
	// samplers. The loops bound themselves at 50·M iterations before
	// falling back to the proposal mean.
	rejectionM = 2

	// degenerateRelSpeed is the relative speed below which the collision
	// direction is drawn isotropically instead of from the velocity
	// difference.
	degenerateRelSpeed = 1e-3
)

// proposal holds the Gaussian proposal parameters for one (T, U) cell of
// the proposal table. The samplers widen these scales by fixed factors
// (1.5·σ_vg for the speed, 3·σ_θ for the angle).
type proposal struct {
	muVG       float64
	sigmaVG    float64
	sigmaTheta float64
}

// samplerDiag counts rejection-loop exhaustions in one worker. The counts
// are folded into the run summary at join.
type samplerDiag struct {
	speedFallbacks int64
	angleFallbacks int64
}

// besselI0 returns the modified Bessel function of the first kind, order
// zero, using the Abramowitz & Stegun 9.8.1/9.8.2 polynomial
// approximations (absolute error below 2e-7).
func besselI0(x float64) float64 {
	if x < 0 {
		x = -x
	}
	if x < 3.75 {
		t := x / 3.75
		t *= t
		return 1 + t*(3.5156229+t*(3.0899424+t*(1.2067492+
			t*(0.2659732+t*(0.0360768+t*0.0045813)))))
	}
	t := 3.75 / x
	return math.Exp(x) / math.Sqrt(x) *
		(0.39894228 + t*(0.01328592+t*(0.00225319+t*(-0.00157565+
			t*(0.00916281+t*(-0.02057706+t*(0.02635537+
				t*(-0.01647633+t*0.00392377))))))))
}

// sampleGasSpeed draws the buffer-gas atom speed conditional on the
// relative speed u and temperature T by rejection against the folded
// Gaussian proposal |N(μ_vg, 1.5·σ_vg)|. bound is the majorant constant M;
// after 50·M failures the proposal mean is substituted. The returned
// besselArg is the (clipped) Bessel argument of the accepted speed, reused
// by the angle sampler.
func sampleGasSpeed(rng *rand.Rand, u, T, mGas float64, p proposal, bound float64, d *samplerDiag, lg *logrus.Logger) (vg, besselArg float64) {
	kT := kB * T
	if p.sigmaVG <= 0 {
		// Degenerate proposal (calibrated in the cold limit): the target
		// collapses onto the proposal mean.
		vg = p.muVG
		return vg, math.Min(mGas*u*vg/kT, besselArgMax)
	}
	prop := distuv.Normal{Mu: p.muVG, Sigma: 1.5 * p.sigmaVG, Src: rng}
	maxIter := int(50 * bound)
	for i := 0; i < maxIter; i++ {
		y := math.Abs(prop.Rand())
		barg := math.Min(mGas*u*y/kT, besselArgMax)
		// The target is the Rice density of the gas speed conditional on
		// the relative drift u, with scale kB·T/m.
		f := mGas * y / kT * math.Exp(-mGas*(u*u+y*y)/(2*kT)) * besselI0(barg)
		// The folded draw y = |N| has density φ(y) + φ(−y).
		if rng.Float64() < f/(bound*(prop.Prob(y)+prop.Prob(-y))) {
			return y, barg
		}
	}
	d.speedFallbacks++
	if d.speedFallbacks == 1 && lg != nil {
		lg.WithFields(logrus.Fields{"T": T, "u": u}).Warn(
			"gas-speed rejection loop exhausted; falling back to proposal mean (further occurrences counted silently)")
	}
	vg = p.muVG
	return vg, math.Min(mGas*u*vg/kT, besselArgMax)
}

// sampleApproachAngle draws the angle between the gas-atom velocity and the
// direction toward the molecule, conditional on the sampled speed vg.
// besselI0u is the Bessel value already computed for the accepted speed.
func sampleApproachAngle(rng *rand.Rand, u, vg, T, mGas float64, p proposal, bound, besselI0u float64, d *samplerDiag, lg *logrus.Logger) float64 {
	if p.sigmaTheta <= 0 {
		return 0
	}
	prop := distuv.Normal{Mu: 0, Sigma: 3 * p.sigmaTheta, Src: rng}
	kT := kB * T
	maxIter := int(50 * bound)
	for i := 0; i < maxIter; i++ {
		y := math.Abs(prop.Rand())
		f := math.Exp(mGas*u*vg*math.Cos(y)/kT) / (math.Pi * besselI0u)
		if y < math.Pi && rng.Float64() < f/(2*bound*prop.Prob(y)) {
			return y
		}
	}
	d.angleFallbacks++
	if d.angleFallbacks == 1 && lg != nil {
		lg.WithFields(logrus.Fields{"T": T, "u": u, "vg": vg}).Warn(
			"approach-angle rejection loop exhausted; falling back to zero angle (further occurrences counted silently)")
	}
	return 0
}

// sampleCollision draws a (gas speed, approach angle) pair for a collision
// at relative speed u and temperature T. Below the cold limit it returns
// (u, 0) deterministically.
func sampleCollision(rng *rand.Rand, u, T, mGas float64, p proposal, bound float64, d *samplerDiag, lg *logrus.Logger) (vg, theta float64) {
	if T < coldLimitT {
		return u, 0
	}
	vg, besselArg := sampleGasSpeed(rng, u, T, mGas, p, bound, d, lg)
	theta = sampleApproachAngle(rng, u, vg, T, mGas, p, bound, besselI0(besselArg), d, lg)
	return vg, theta
}

// randomUnit returns a uniformly random unit vector on the sphere.
func randomUnit(rng *rand.Rand) [3]float64 {
	c := 2*rng.Float64() - 1
	s := math.Sqrt(1 - c*c)
	phi := 2 * math.Pi * rng.Float64()
	return [3]float64{c, s * math.Cos(phi), s * math.Sin(phi)}
}

// randomPerp returns a random unit vector orthogonal to dir, by
// orthonormalizing a random direction against it.
func randomPerp(rng *rand.Rand, dir [3]float64) [3]float64 {
	for {
		u := randomUnit(rng)
		proj := dot3(u, dir)
		for i := range u {
			u[i] -= proj * dir[i]
		}
		if n := norm3(u); n > 1e-6 {
			for i := range u {
				u[i] /= n
			}
			return u
		}
	}
}

// gasAtomVelocity reconstructs the velocity of the colliding gas atom from
// the sampled speed and approach angle: the atom moves at vgSpeed relative
// to the molecule, tilted by theta from the direction toward the gas bulk
// velocity. A degenerate bulk-relative velocity falls back to an isotropic
// direction.
func gasAtomVelocity(rng *rand.Rand, v, vGasBulk [3]float64, vgSpeed, theta float64) [3]float64 {
	var dir [3]float64
	diff := sub3(vGasBulk, v)
	if n := norm3(diff); n < degenerateRelSpeed {
		dir = randomUnit(rng)
	} else {
		for i := range dir {
			dir[i] = diff[i] / n
		}
	}
	perp := randomPerp(rng, dir)

	ct, st := math.Cos(theta), math.Sin(theta)
	var vGas [3]float64
	for i := range vGas {
		vGas[i] = v[i] + vgSpeed*(ct*dir[i]+st*perp[i])
	}
	return vGas
}

// elasticScatter updates the molecule velocity v for an elastic hard-sphere
// collision with a gas atom moving at vGas, drawing the post-collision
// relative direction isotropically as in hard-sphere kinetic theory.
func elasticScatter(rng *rand.Rand, v *[3]float64, vGas [3]float64, mMol, mGas float64) {
	g := dist3(*v, vGas)
	cosChi := 2*rng.Float64() - 1
	sinChi := math.Sqrt(1 - cosChi*cosChi)
	eps := 2 * math.Pi * rng.Float64()
	rel := [3]float64{cosChi, sinChi * math.Cos(eps), sinChi * math.Sin(eps)}

	for i := range v {
		v[i] = (mMol*v[i] + mGas*(vGas[i]+g*rel[i])) / (mMol + mGas)
	}
}

// collide applies one sampled collision to the molecule velocity v.
func collide(rng *rand.Rand, v *[3]float64, vGasBulk [3]float64, vgSpeed, theta, mMol, mGas float64) {
	vGas := gasAtomVelocity(rng, *v, vGasBulk, vgSpeed, theta)
	elasticScatter(rng, v, vGas, mMol, mGas)
}

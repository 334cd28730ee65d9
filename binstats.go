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

import "math"

// scalarMoments is an online mean-and-variance accumulator over a scalar
// sample stream. Accumulators over disjoint streams can be merged with the
// Chan et al. parallel update, so that merging partial accumulators gives
// the same result as a single pass over the combined stream.
type scalarMoments struct {
	n    float64
	mean float64
	m2   float64
}

func (s *scalarMoments) observe(x float64) {
	s.n++
	delta := x - s.mean
	s.mean += delta / s.n
	s.m2 += delta * (x - s.mean)
}

func (s *scalarMoments) merge(o *scalarMoments) {
	if o.n == 0 {
		return
	}
	if s.n == 0 {
		*s = *o
		return
	}
	n := s.n + o.n
	delta := o.mean - s.mean
	s.mean += delta * o.n / n
	s.m2 += o.m2 + delta*delta*s.n*o.n/n
	s.n = n
}

// Count returns the number of samples observed.
func (s *scalarMoments) Count() float64 { return s.n }

// Mean returns the sample mean, or NaN if no samples have been observed.
func (s *scalarMoments) Mean() float64 {
	if s.n == 0 {
		return math.NaN()
	}
	return s.mean
}

// Variance returns the unbiased sample variance, or NaN for fewer than two
// samples.
func (s *scalarMoments) Variance() float64 {
	if s.n < 2 {
		return math.NaN()
	}
	return s.m2 / (s.n - 1)
}

// vectorMoments tracks means, variances, and the covariance of a 2-D sample
// vector (here the tangential and axial velocity components), with the same
// mergeability property as scalarMoments.
type vectorMoments struct {
	n            float64
	meanT, meanZ float64
	m2T, m2Z     float64
	c            float64 // co-moment Σ(vt−meanT)(vz−meanZ)
}

func (s *vectorMoments) observe(vt, vz float64) {
	s.n++
	dt := vt - s.meanT
	dz := vz - s.meanZ
	s.meanT += dt / s.n
	s.meanZ += dz / s.n
	s.m2T += dt * (vt - s.meanT)
	s.m2Z += dz * (vz - s.meanZ)
	s.c += dt * (vz - s.meanZ)
}

func (s *vectorMoments) merge(o *vectorMoments) {
	if o.n == 0 {
		return
	}
	if s.n == 0 {
		*s = *o
		return
	}
	n := s.n + o.n
	dt := o.meanT - s.meanT
	dz := o.meanZ - s.meanZ
	w := s.n * o.n / n
	s.meanT += dt * o.n / n
	s.meanZ += dz * o.n / n
	s.m2T += o.m2T + dt*dt*w
	s.m2Z += o.m2Z + dz*dz*w
	s.c += o.c + dt*dz*w
	s.n = n
}

func (s *vectorMoments) MeanT() float64 {
	if s.n == 0 {
		return math.NaN()
	}
	return s.meanT
}

func (s *vectorMoments) MeanZ() float64 {
	if s.n == 0 {
		return math.NaN()
	}
	return s.meanZ
}

func (s *vectorMoments) VarianceT() float64 {
	if s.n < 2 {
		return math.NaN()
	}
	return s.m2T / (s.n - 1)
}

func (s *vectorMoments) VarianceZ() float64 {
	if s.n < 2 {
		return math.NaN()
	}
	return s.m2Z / (s.n - 1)
}

// Covariance returns the unbiased sample covariance of the two components.
func (s *vectorMoments) Covariance() float64 {
	if s.n < 2 {
		return math.NaN()
	}
	return s.c / (s.n - 1)
}

// BinStats accumulates trajectory statistics observed within one grid cell:
// the (tangential, axial) velocity moments including their covariance, and
// scalar moments of the time of flight, the cumulative collision count, and
// the sampled free-path length.
type BinStats struct {
	V vectorMoments
	T scalarMoments
	C scalarMoments
	L scalarMoments
}

// Observe records one sample at this cell.
func (b *BinStats) Observe(vt, vax, t, nColl, lFree float64) {
	b.V.observe(vt, vax)
	b.T.observe(t)
	b.C.observe(nColl)
	b.L.observe(lFree)
}

// Merge folds the samples accumulated in o into the receiver. Merging
// commutes and is associative to within floating-point error.
func (b *BinStats) Merge(o *BinStats) {
	b.V.merge(&o.V)
	b.T.merge(&o.T)
	b.C.merge(&o.C)
	b.L.merge(&o.L)
}

// Count returns the number of samples observed at this cell.
func (b *BinStats) Count() float64 { return b.T.n }

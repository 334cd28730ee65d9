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

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"gonum.org/v1/gonum/floats"
)

const (
	// validityNeighbors is the number of nearest neighbors (including the
	// sample itself) explored when computing a sample's validity radius.
	validityNeighbors = 100

	// validityTolerance is the fractional tolerance ε: within a sample's
	// validity radius every tracked gas property is known to stay within
	// this fraction of the sample's value.
	validityTolerance = 0.2
)

// FlowPoint is one sample of the precomputed background flow on the (z, r)
// half-plane. The embedded point holds the axial coordinate in X and the
// radius in Y, so FlowPoint can be stored directly in a spatial index.
type FlowPoint struct {
	geom.Point

	VZ   float64 // axial bulk velocity [m/s]
	VR   float64 // radial bulk velocity [m/s]
	VPhi float64 // third flow-file velocity column; unused by the axisymmetric model
	T    float64 // temperature [K]
	Rho  float64 // number density [1/m³]

	// DMin is the validity radius: the distance from this sample within
	// which all gas properties are known to vary by less than the
	// fractional tolerance.
	DMin float64
}

// FlowField maps a 3-D Cartesian position to local buffer-gas properties
// through a 2-D (z, r) nearest-neighbor index. It is built once and shared
// read-only across workers; all per-query mutable state lives in the
// caller's InterpState.
type FlowField struct {
	tree   *rtree.Rtree
	points []*FlowPoint
	bounds *geom.Bounds

	tMin, tMax   float64
	maxBulkSpeed float64
}

// NewFlowField indexes the given flow samples and computes each sample's
// validity radius from its nearest neighbors. Samples with T ≤ 0 are
// dropped.
func NewFlowField(points []*FlowPoint) (*FlowField, error) {
	f := &FlowField{tree: rtree.NewTree(25, 50)}
	for _, p := range points {
		if p.T <= 0 {
			continue
		}
		f.points = append(f.points, p)
	}
	if len(f.points) == 0 {
		return nil, fmt.Errorf("beamtrace: flow field has no samples with T > 0")
	}

	temps := make([]float64, len(f.points))
	for i, p := range f.points {
		f.tree.Insert(p)
		if f.bounds == nil {
			f.bounds = newRect(p.X, p.Y, p.X, p.Y)
		} else {
			f.bounds.Extend(p.Bounds())
		}
		temps[i] = p.T
		if s := math.Hypot(p.VZ, p.VR); s > f.maxBulkSpeed {
			f.maxBulkSpeed = s
		}
	}
	f.tMin = floats.Min(temps)
	f.tMax = floats.Max(temps)

	for _, p := range f.points {
		p.DMin = f.validityRadius(p)
	}
	return f, nil
}

// validityRadius walks the sample's nearest neighbors outward and returns
// the distance to the first neighbor whose bulk velocity, temperature, or
// density falls outside the tolerance band of the base sample; absent any
// such neighbor it returns the farthest explored distance.
func (f *FlowField) validityRadius(p *FlowPoint) float64 {
	k := validityNeighbors
	if k > len(f.points) {
		k = len(f.points)
	}
	var far float64
	for _, nbI := range f.tree.NearestNeighbors(k, p.Point) {
		if nbI == nil {
			break
		}
		nb := nbI.(*FlowPoint)
		d := math.Hypot(nb.X-p.X, nb.Y-p.Y)
		if outsideTolerance(p.VZ, nb.VZ) ||
			outsideTolerance(p.VR, nb.VR) ||
			outsideTolerance(p.T, nb.T) ||
			outsideTolerance(p.Rho, nb.Rho) {
			return d
		}
		if d > far {
			far = d
		}
	}
	return far
}

// outsideTolerance reports whether val falls outside the band
// [ε·base, (1+ε)·base], with the endpoints ordered so the check also holds
// for negative base values. A zero base makes any nonzero value
// out-of-band, so the validity radius ends at the nearest neighbor whose
// value differs from zero.
func outsideTolerance(base, val float64) bool {
	lo := validityTolerance * base
	hi := (1 + validityTolerance) * base
	if lo > hi {
		lo, hi = hi, lo
	}
	return val < lo || val > hi
}

// Bounds returns the bounding box of the flow samples, with the axial
// coordinate in X and the radius in Y.
func (f *FlowField) Bounds() *geom.Bounds { return f.bounds }

// TemperatureRange returns the minimum and maximum sample temperatures.
func (f *FlowField) TemperatureRange() (tMin, tMax float64) { return f.tMin, f.tMax }

// MaxBulkSpeed returns the largest bulk-speed magnitude over all samples.
func (f *FlowField) MaxBulkSpeed() float64 { return f.maxBulkSpeed }

// InterpState caches the most recent flow lookup for one trajectory. The
// cached gas state remains valid while the particle stays within DMin of
// the reference point in (z, r) space, making repeated lookups along a
// free path cheap. Each worker owns its own InterpState.
type InterpState struct {
	zRef, rRef float64
	dMin       float64
	valid      bool

	// VGas is the buffer-gas bulk velocity at the reference point, rotated
	// into 3-D Cartesian coordinates using the particle's azimuth at
	// refresh time.
	VGas [3]float64
	T    float64 // gas temperature at the reference point [K]
	Rho  float64 // gas number density at the reference point [1/m³]

	// Refreshes counts cache misses, for run accounting.
	Refreshes int
}

// Reset invalidates the cache for a new trajectory.
func (s *InterpState) Reset() { s.valid = false }

// Refresh updates s to describe the gas at position x. If x is still within
// the cached validity radius of the reference point the call returns
// immediately; otherwise the nearest flow sample is looked up and the
// cylindrical bulk velocity rotated to Cartesian using the particle's
// azimuth.
func (f *FlowField) Refresh(s *InterpState, x [3]float64) {
	r := math.Hypot(x[0], x[1])
	if s.valid && math.Hypot(x[2]-s.zRef, r-s.rRef) <= s.dMin {
		return
	}
	p := f.tree.NearestNeighbor(geom.Point{X: x[2], Y: r}).(*FlowPoint)
	phi := math.Atan2(x[1], x[0])
	s.zRef, s.rRef = p.X, p.Y
	s.dMin = p.DMin
	s.T = p.T
	s.Rho = p.Rho
	s.VGas = [3]float64{p.VR * math.Cos(phi), p.VR * math.Sin(phi), p.VZ}
	s.valid = true
	s.Refreshes++
}

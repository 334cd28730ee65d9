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
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/gocarina/gocsv"
)

// readColumns scans whitespace-delimited lines from r, skipping the first
// skip lines, and calls row for each remaining non-empty line.
func readColumns(r io.Reader, skip int, row func(line int, fields []string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		if n <= skip {
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if err := row(n, fields); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func parseFloats(fields []string, out ...*float64) error {
	if len(fields) < len(out) {
		return fmt.Errorf("expected at least %d columns, got %d", len(out), len(fields))
	}
	for i, p := range out {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return fmt.Errorf("column %d: %v", i+1, err)
		}
		*p = v
	}
	return nil
}

// ReadGeometry parses an axisymmetric wall description. The file has a
// 5-line header, a 2-line bounding block (minimum then maximum, axial and
// radial) on lines 6–7, and a segment table from line 10 onward with
// columns `ID z₁ ρ₁ z₂ ρ₂`. The ID column is read but not used.
func ReadGeometry(r io.Reader) (*Geometry, error) {
	var zMin, zMax, rMax float64
	var rMinBound float64
	var segments []Segment
	err := readColumns(r, 5, func(line int, fields []string) error {
		switch {
		case line == 6:
			return parseFloats(fields, &zMin, &rMinBound)
		case line == 7:
			return parseFloats(fields, &zMax, &rMax)
		case line < 10:
			return nil
		}
		var id, z1, r1, z2, r2 float64
		if err := parseFloats(fields, &id, &z1, &r1, &z2, &r2); err != nil {
			return fmt.Errorf("beamtrace: geometry line %d: %v", line, err)
		}
		segments = append(segments, Segment{
			P1: geom.Point{X: z1, Y: r1},
			P2: geom.Point{X: z2, Y: r2},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if zMax <= zMin {
		return nil, fmt.Errorf("beamtrace: geometry bounding block has empty axial interval [%g, %g]", zMin, zMax)
	}
	return NewGeometry(segments, zMin, zMax, rMax), nil
}

// ReadFlow parses a background-flow table. Lines 1–9 are header; from line
// 10 onward the columns are `x y T ρ ρ_m vx vy vz`, mapped to the axial
// sample coordinate, radius, temperature, density, (ignored mass density),
// axial bulk velocity, radial bulk velocity, and a retained-but-unused
// third velocity component. Rows with T ≤ 0 are dropped.
func ReadFlow(r io.Reader) ([]*FlowPoint, error) {
	var points []*FlowPoint
	err := readColumns(r, 9, func(line int, fields []string) error {
		var z, rad, T, rho, rhoM, vx, vy, vz float64
		if err := parseFloats(fields, &z, &rad, &T, &rho, &rhoM, &vx, &vy, &vz); err != nil {
			return fmt.Errorf("beamtrace: flow line %d: %v", line, err)
		}
		if T <= 0 {
			return nil
		}
		points = append(points, &FlowPoint{
			Point: geom.Point{X: z, Y: rad},
			VZ:    vx, VR: vy, VPhi: vz,
			T: T, Rho: rho,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

// WriteRows writes per-particle termination rows as a whitespace-separated
// table with a header line. A row is emitted for every trajectory when
// saveAll is set, and only for domain exits otherwise.
func WriteRows(w io.Writer, rows []Row, saveAll bool) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, "idx x y z xnext ynext znext vx vy vz collides time"); err != nil {
		return err
	}
	for i, row := range rows {
		if !saveAll && row.Code != TestExit {
			continue
		}
		_, err := fmt.Fprintf(bw, "%d %.5e %.5e %.5e %.5e %.5e %.5e %.5e %.5e %.5e %d %.5e\n",
			i, row.X[0], row.X[1], row.X[2],
			row.XNext[0], row.XNext[1], row.XNext[2],
			row.V[0], row.V[1], row.V[2],
			row.NColl, row.Time)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// statFloat renders NaN statistics (cells with too few samples) as empty
// CSV fields.
type statFloat float64

// MarshalCSV implements the gocsv field marshaler.
func (f statFloat) MarshalCSV() (string, error) {
	if math.IsNaN(float64(f)) {
		return "", nil
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 64), nil
}

type binStatsRow struct {
	R         statFloat `csv:"r"`
	Z         statFloat `csv:"z"`
	N         int       `csv:"n"`
	T         statFloat `csv:"t"`
	TVar      statFloat `csv:"tvar"`
	VR        statFloat `csv:"vr"`
	VZ        statFloat `csv:"vz"`
	VRVar     statFloat `csv:"vrvar"`
	VZVar     statFloat `csv:"vzvar"`
	VRVZCov   statFloat `csv:"vrvzcov"`
	NColls    statFloat `csv:"ncolls"`
	NCollsVar statFloat `csv:"ncollsvar"`
	LFree     statFloat `csv:"lfree"`
	LFreeVar  statFloat `csv:"lfreevar"`
}

// WriteBinStats writes the per-cell statistics of g as CSV, one row per
// cell with the cell-center coordinates first.
func WriteBinStats(w io.Writer, g *BinGrid) error {
	rows := make([]binStatsRow, 0, g.NR*g.NZ)
	for i := 0; i < g.NR; i++ {
		for j := 0; j < g.NZ; j++ {
			c := g.Cell(i, j)
			r, z := g.CellCenter(i, j)
			rows = append(rows, binStatsRow{
				R:         statFloat(r),
				Z:         statFloat(z),
				N:         int(c.Count()),
				T:         statFloat(c.T.Mean()),
				TVar:      statFloat(c.T.Variance()),
				VR:        statFloat(c.V.MeanT()),
				VZ:        statFloat(c.V.MeanZ()),
				VRVar:     statFloat(c.V.VarianceT()),
				VZVar:     statFloat(c.V.VarianceZ()),
				VRVZCov:   statFloat(c.V.Covariance()),
				NColls:    statFloat(c.C.Mean()),
				NCollsVar: statFloat(c.C.Variance()),
				LFree:     statFloat(c.L.Mean()),
				LFreeVar:  statFloat(c.L.Variance()),
			})
		}
	}
	return gocsv.Marshal(&rows, w)
}

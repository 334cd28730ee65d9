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
	"bytes"
	"strings"
	"testing"
)

const testGeometryFile = `buffer gas cell walls
generated by mesh exporter
units: meters
axisymmetric section
--
-0.06  0.0
 0.06  0.05
--
--
1  -0.010 0.000 -0.010 0.025
2  -0.010 0.025  0.040 0.025
3   0.040 0.025  0.040 0.004
`

const testFlowFile = `flow field export
case: helium 4 K
grid: structured
columns:
x y T rho rho_m vx vy vz
--
--
--
--
-0.0500 0.0000 4.10 1.2e21 8.0e-6 12.0 0.1 0.0
-0.0500 0.0050 4.05 1.1e21 7.5e-6 11.5 0.3 0.0
 0.0000 0.0000 5.20 0.9e21 6.0e-6 35.0 0.0 0.0
 0.0000 0.0050 5.10 0.8e21 5.5e-6 34.0 1.2 0.0
 0.0500 0.0000 0.00 0.0e21 0.0e-6  0.0 0.0 0.0
 0.0500 0.0050 6.30 0.5e21 3.0e-6 55.0 2.0 0.0
`

func TestReadGeometry(t *testing.T) {
	g, err := ReadGeometry(strings.NewReader(testGeometryFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(g.segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(g.segments))
	}
	b := g.Bounds()
	if b.Min.X != -0.06 || b.Max.X != 0.06 || b.Max.Y != 0.05 {
		t.Errorf("wrong bounds: %+v", b)
	}
	if s := g.segments[1]; s.P1.X != -0.010 || s.P1.Y != 0.025 || s.P2.X != 0.040 {
		t.Errorf("segment 2 parsed wrong: %+v", s)
	}
	// A step crossing the downstream wall (z = 0.040, ρ ∈ [0.004, 0.025]).
	if c := g.Test([3]float64{0, 0.01, 0.03}, [3]float64{0, 0.01, 0.05}); c != TestHit {
		t.Errorf("expected hit on downstream wall, got %d", c)
	}
}

func TestReadFlow(t *testing.T) {
	points, err := ReadFlow(strings.NewReader(testFlowFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 5 {
		t.Fatalf("expected 5 samples after dropping T ≤ 0, got %d", len(points))
	}
	p := points[2]
	if p.X != 0 || p.Y != 0 || p.T != 5.20 || p.Rho != 0.9e21 || p.VZ != 35 || p.VR != 0 {
		t.Errorf("sample parsed wrong: %+v", p)
	}
	if points[3].VR != 1.2 || points[3].VPhi != 0 {
		t.Errorf("velocity columns parsed wrong: %+v", points[3])
	}
}

func TestReadGeometryMalformed(t *testing.T) {
	if _, err := ReadGeometry(strings.NewReader("too\nshort\n")); err == nil {
		t.Error("truncated geometry file should fail")
	}
	bad := strings.Replace(testGeometryFile, "-0.010 0.000", "-0.010 x", 1)
	if _, err := ReadGeometry(strings.NewReader(bad)); err == nil {
		t.Error("malformed segment row should fail")
	}
}

func TestWriteRows(t *testing.T) {
	rows := []Row{
		{X: [3]float64{0, 0, 0.01}, XNext: [3]float64{0, 0, 0.02}, V: [3]float64{1, 2, 3}, NColl: 4, Time: 5e-4, Code: TestHit},
		{X: [3]float64{0, 0, 0.03}, XNext: [3]float64{0, 0, 0.09}, V: [3]float64{4, 5, 6}, NColl: 7, Time: 6e-4, Code: TestExit},
	}

	var buf bytes.Buffer
	if err := WriteRows(&buf, rows, false); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "idx x y z xnext ynext znext vx vy vz collides time" {
		t.Errorf("wrong header: %q", lines[0])
	}
	if len(lines) != 2 {
		t.Fatalf("expected header plus 1 exit row, got %d lines", len(lines))
	}
	fields := strings.Fields(lines[1])
	if len(fields) != 12 {
		t.Fatalf("expected 12 columns, got %d: %q", len(fields), lines[1])
	}
	if fields[0] != "1" || fields[10] != "7" || fields[3] != "3.00000e-02" {
		t.Errorf("row formatted wrong: %q", lines[1])
	}

	buf.Reset()
	if err := WriteRows(&buf, rows, true); err != nil {
		t.Fatal(err)
	}
	if n := len(strings.Split(strings.TrimSpace(buf.String()), "\n")); n != 3 {
		t.Errorf("saveall should emit every row, got %d lines", n)
	}
}

func TestWriteBinStatsEmpty(t *testing.T) {
	g := NewBinGrid(0, 0.05, 2, -0.05, 0.05, 2)
	var buf bytes.Buffer
	if err := WriteBinStats(&buf, g); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "r,z,n,t,tvar,vr,vz,vrvar,vzvar,vrvzcov,ncolls,ncollsvar,lfree,lfreevar" {
		t.Errorf("wrong header: %q", lines[0])
	}
	if len(lines) != 5 {
		t.Fatalf("expected 4 cell rows, got %d", len(lines)-1)
	}
	// Empty cells keep zero counts and render NaN statistics as empty
	// fields.
	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		if fields[2] != "0" {
			t.Errorf("expected zero count, got %q", line)
		}
		for _, f := range fields[3:] {
			if f != "" {
				t.Errorf("expected empty statistics fields, got %q", line)
			}
		}
	}
}

func TestWriteBinStatsCellCenters(t *testing.T) {
	g := NewBinGrid(0, 1, 2, 0, 1, 2)
	g.Update([3]float64{0.2, 0, 0.2}, [3]float64{1, 0, 2}, 0.5, 3, 0.1)
	var buf bytes.Buffer
	if err := WriteBinStats(&buf, g); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// First cell center is (0.25, 0.25) and holds the one sample.
	first := strings.Split(lines[1], ",")
	if first[0] != "0.25" || first[1] != "0.25" || first[2] != "1" {
		t.Errorf("wrong first cell row: %q", lines[1])
	}
}

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

package beamtraceutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/buffergas/beamtrace"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"golang.org/x/exp/rand"
)

// getFloat reads a float option through cast, so values arriving from a
// configuration file as strings (including "Inf" and "-Inf", which have no
// numeric literal in most config formats) convert correctly.
func getFloat(cfg *Cfg, name string) float64 {
	return cast.ToFloat64(cfg.Get(name))
}

// checkOutputFile expands environment variables in an output path and
// creates its directory if needed.
func checkOutputFile(path string) (string, error) {
	path = os.ExpandEnv(path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return "", fmt.Errorf("beamtrace: creating output directory: %v", err)
		}
	}
	return path, nil
}

// Run executes a trajectory simulation as described by cfg.
func Run(cfg *Cfg) error {
	lg := logrus.StandardLogger()

	geomPath := os.ExpandEnv(cfg.GetString("geom"))
	if geomPath == "" {
		return fmt.Errorf("beamtrace: no geometry file specified; use --geom")
	}
	gf, err := os.Open(geomPath)
	if err != nil {
		return fmt.Errorf("beamtrace: problem opening geometry file: %v", err)
	}
	geometry, err := beamtrace.ReadGeometry(gf)
	gf.Close()
	if err != nil {
		return err
	}

	flowPath := os.ExpandEnv(cfg.GetString("flow"))
	if flowPath == "" {
		return fmt.Errorf("beamtrace: no flow file specified; use --flow")
	}
	ff, err := os.Open(flowPath)
	if err != nil {
		return fmt.Errorf("beamtrace: problem opening flow file: %v", err)
	}
	points, err := beamtrace.ReadFlow(ff)
	ff.Close()
	if err != nil {
		return err
	}
	flow, err := beamtrace.NewFlowField(points)
	if err != nil {
		return err
	}

	statsPath := cfg.GetString("stats")
	exitStatsPath := cfg.GetString("exitstats")

	// Viper keys are case-insensitive, so the two mass options would
	// collide there; read them straight from the flag set.
	massMolecule, err := cfg.runCmd.Flags().GetFloat64("M")
	if err != nil {
		return err
	}
	massGas, err := cfg.runCmd.Flags().GetFloat64("m")
	if err != nil {
		return err
	}

	c := &beamtrace.Config{
		MassMolecule: massMolecule,
		MassGas:      massGas,
		CrossSection: getFloat(cfg, "sigma"),
		Omega:        getFloat(cfg, "omega"),
		TrapZMin:     getFloat(cfg, "zmin"),
		TrapZMax:     getFloat(cfg, "zmax"),
		PFlip:        getFloat(cfg, "pflip"),
		SaveAll:      cfg.GetBool("saveall"),
	}
	if statsPath != "" || exitStatsPath != "" {
		c.RBins = cfg.GetInt("rbins")
		c.ZBins = cfg.GetInt("zbins")
	}

	seed := uint64(cfg.GetInt("seed"))
	engine := beamtrace.NewEngine(c, flow, geometry, rand.New(rand.NewSource(seed)), lg)
	source := beamtrace.PointSource(c,
		getFloat(cfg, "z"), getFloat(cfg, "r"),
		getFloat(cfg, "vz"), getFloat(cfg, "vr"),
		getFloat(cfg, "T"))

	res := engine.Run(cfg.GetInt("n"), cfg.GetInt("procs"), seed, source)

	out := os.Stdout
	if path := cfg.GetString("out"); path != "" {
		path, err := checkOutputFile(path)
		if err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("beamtrace: creating output file: %v", err)
		}
		defer f.Close()
		out = f
	}
	if err := beamtrace.WriteRows(out, res.Rows, c.SaveAll); err != nil {
		return fmt.Errorf("beamtrace: writing particle rows: %v", err)
	}

	for _, o := range []struct {
		path string
		grid *beamtrace.BinGrid
	}{
		{statsPath, res.All},
		{exitStatsPath, res.Exit},
	} {
		if o.path == "" || o.grid == nil {
			continue
		}
		path, err := checkOutputFile(o.path)
		if err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("beamtrace: creating statistics file: %v", err)
		}
		if err := beamtrace.WriteBinStats(f, o.grid); err != nil {
			f.Close()
			return fmt.Errorf("beamtrace: writing statistics: %v", err)
		}
		f.Close()
	}
	return nil
}

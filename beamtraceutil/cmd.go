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

// Package beamtraceutil holds the configuration and command-line surface of
// the BeamTrace model.
package beamtraceutil

import (
	"fmt"
	"math"

	"github.com/buffergas/beamtrace"
	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
type Cfg struct {
	*viper.Viper

	// inputFiles holds the names of the configuration options that are
	// input files.
	inputFiles []string

	// outputFiles holds the names of the configuration options that are
	// output files.
	outputFiles []string

	Root, runCmd, versionCmd *cobra.Command
}

// InputFiles returns the names of the configuration options that are input
// files.
func (cfg *Cfg) InputFiles() []string { return cfg.inputFiles }

// OutputFiles returns the names of the configuration options that are
// output files.
func (cfg *Cfg) OutputFiles() []string { return cfg.outputFiles }

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
	isInputFile            bool // Does the option represent an input file name?
	isOutputFile           bool // Does the option represent an output file name?
}

// InitializeConfig initializes the command tree and configuration surface.
func InitializeConfig() *Cfg {

	cfg := &Cfg{
		Viper: viper.New(),
	}
	cfg.SetEnvPrefix("BEAMTRACE")
	cfg.AutomaticEnv()

	// Root is the main command.
	cfg.Root = &cobra.Command{
		Use:   "beamtrace",
		Short: "A buffer-gas beam particle-tracing model.",
		Long: `BeamTrace traces heavy molecules through a precomputed buffer-gas flow
field in an axisymmetric geometry, recording where each trajectory ends and,
optionally, spatially binned trajectory statistics.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'BEAMTRACE_var' where 'var'
is the name of the variable to be set.`,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setConfig(cfg)
		},
	}

	cfg.versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Long:  "version prints the version number of this version of BeamTrace.",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("BeamTrace v%s\n", beamtrace.Version)
		},
		DisableAutoGenTag: true,
	}

	cfg.runCmd = &cobra.Command{
		Use:   "run",
		Short: "Trace particle trajectories.",
		Long: `run traces particles through the flow field and geometry given in the
configuration, writing per-particle termination rows and, if requested,
binned trajectory statistics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cfg)
		},
		DisableAutoGenTag: true,
	}

	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
		isInputFile            bool
		isOutputFile           bool
	}{
		{
			name:        "config",
			usage:       `config specifies the configuration file location.`,
			defaultVal:  "",
			isInputFile: true,
			flagsets:    []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:        "geom",
			usage:       `geom specifies the path to the wall geometry file.`,
			defaultVal:  "",
			isInputFile: true,
			flagsets:    []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:        "flow",
			usage:       `flow specifies the path to the background flow-field file.`,
			defaultVal:  "",
			isInputFile: true,
			flagsets:    []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "n",
			usage:      `n specifies the number of particles to trace.`,
			defaultVal: 10000,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "z",
			usage:      `z specifies the axial coordinate of the particle source [m].`,
			defaultVal: 0.035,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "r",
			usage:      `r specifies the radial coordinate of the particle source [m].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "vz",
			usage:      `vz specifies the mean axial launch velocity [m/s].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "vr",
			usage:      `vr specifies the mean radial launch velocity [m/s].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "T",
			usage:      `T specifies the source temperature governing the thermal launch-velocity spread [K].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "m",
			usage:      `m specifies the buffer-gas atom mass [AMU].`,
			defaultVal: 4.0,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "M",
			usage:      `M specifies the test-particle mass [AMU].`,
			defaultVal: 191.0,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "sigma",
			usage:      `sigma specifies the molecule/buffer-gas collision cross section [m²].`,
			defaultVal: 130e-20,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "omega",
			usage:      `omega specifies the harmonic-trap angular-frequency parameter [1/s]; positive confines, negative inverts, zero disables the trap.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "zmin",
			usage:      `zmin specifies the lower axial bound of the trap region [m].`,
			defaultVal: math.Inf(-1),
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "zmax",
			usage:      `zmax specifies the upper axial bound of the trap region [m].`,
			defaultVal: math.Inf(1),
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "pflip",
			usage:      `pflip specifies the per-collision probability of inverting the trap frequency.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "saveall",
			usage:      `saveall requests an output row for every trajectory, not only those that exit the domain.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:         "out",
			usage:        `out specifies the per-particle output file; standard output is used when empty.`,
			defaultVal:   "",
			isOutputFile: true,
			flagsets:     []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:         "stats",
			usage:        `stats specifies the output file for statistics binned over all trajectories; statistics are skipped when empty.`,
			defaultVal:   "",
			isOutputFile: true,
			flagsets:     []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:         "exitstats",
			usage:        `exitstats specifies the output file for statistics binned over exiting trajectories only.`,
			defaultVal:   "",
			isOutputFile: true,
			flagsets:     []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "rbins",
			usage:      `rbins specifies the number of radial statistics bins.`,
			defaultVal: 50,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "zbins",
			usage:      `zbins specifies the number of axial statistics bins.`,
			defaultVal: 50,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "seed",
			usage:      `seed specifies the master random seed; worker i consumes stream seed+i.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
		{
			name:       "procs",
			usage:      `procs specifies the number of worker threads; 0 uses all available processors.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags()},
		},
	}

	for _, option := range options {
		if option.isInputFile {
			cfg.inputFiles = append(cfg.inputFiles, option.name)
		}
		if option.isOutputFile {
			cfg.outputFiles = append(cfg.outputFiles, option.name)
		}
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic(fmt.Errorf("invalid argument type: %T", option.defaultVal))
			}
			cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}

	cfg.Root.AddCommand(cfg.versionCmd, cfg.runCmd)
	return cfg
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig(cfg *Cfg) error {
	if cfgpath := cfg.GetString("config"); cfgpath != "" {
		cfg.SetConfigFile(cfgpath)
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("beamtrace: problem reading configuration file: %v", err)
		}
	}
	return nil
}

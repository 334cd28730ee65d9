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

// Command beamtrace is the command-line interface for the BeamTrace
// buffer-gas particle-tracing model.
package main

import (
	"fmt"
	"os"

	"github.com/buffergas/beamtrace/beamtraceutil"
)

func main() {
	if err := beamtraceutil.InitializeConfig().Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

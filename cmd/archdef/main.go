// Command archdef analyzes angular deflection measurements of arch
// specimens: it aggregates repeated trials, fits a harmonic model per
// specimen, aligns every specimen to a common reference angle, and reports
// per-method group statistics with optional plots.
package main

import (
	"os"

	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

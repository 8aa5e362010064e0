// Command exprtool is a small command-line demonstration of the
// pkg/dynexpr façade, the way cmd/dwscript demonstrates go-dws's own
// parser package.
package main

import (
	"os"

	"github.com/cwbudde/dynexpr/cmd/exprtool/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

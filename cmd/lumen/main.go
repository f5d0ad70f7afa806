// Command lumen is the host driving Lumen's assembler and virtual machine
// end to end: it assembles bytecode assembly text (pkg/bytecode) into a
// Chunk, wraps it in a vm.Program, and runs it, matching the host-
// embedding path pkg/vm documents (vm.New/vm.Run) rather than linking
// against an in-process VM directly the way a library consumer would.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lumen",
		Short:         "Assemble and run Lumen bytecode",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newAsmCmd(), newDisasmCmd())
	return root
}

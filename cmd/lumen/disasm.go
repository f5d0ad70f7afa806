package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumen-lang/lumen/pkg/bytecode"
)

// newDisasmCmd assembles a source file and prints pkg/bytecode's own
// disassembly listing for it, round-tripping text source through the
// same Chunk a run would execute.
func newDisasmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disasm <file.lasm>",
		Short: "Assemble a bytecode source file and print its disassembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunk, err := assembleFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), bytecode.Disassemble(chunk))
			return nil
		},
	}
	return cmd
}

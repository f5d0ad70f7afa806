package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newAsmCmd assembles a source file and reports the resulting chunk's
// shape without running it -- a build check for catching assembler
// diagnostics (malformed operands, unresolved labels) without paying for
// a VM run, since pkg/bytecode has no separate static-analysis pass of
// its own to call directly.
func newAsmCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "asm <file.lasm>",
		Short: "Assemble a bytecode source file and report its shape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunk, err := assembleFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d instructions, %d constants\n",
				chunk.Name, chunk.Len(), len(chunk.Constants))
			if verbose {
				for i, c := range chunk.Constants {
					fmt.Fprintf(out, "  const[%d] = %s\n", i, c.String())
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list the constant pool")
	return cmd
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lumen-lang/lumen/pkg/bytecode"
	"github.com/lumen-lang/lumen/pkg/vm"
)

// resultFormat is a pflag.Value restricting -format to the two shapes
// result.String() can usefully be rendered as: the value's own Inspect-
// style String(), or go's %#v of the same for debugging the Go-side
// representation a native function would see.
type resultFormat string

const (
	formatValue resultFormat = "value"
	formatGo    resultFormat = "go"
)

func (f *resultFormat) String() string { return string(*f) }
func (f *resultFormat) Type() string   { return "format" }
func (f *resultFormat) Set(s string) error {
	switch resultFormat(s) {
	case formatValue, formatGo:
		*f = resultFormat(s)
		return nil
	default:
		return fmt.Errorf("must be %q or %q", formatValue, formatGo)
	}
}

var _ pflag.Value = (*resultFormat)(nil)

// newRunCmd assembles a bytecode assembly source file and runs it to
// completion on a fresh VM, matching the host-embedding path pkg/vm
// documents: a single entry chunk, instruction zero, driven until EXIT,
// PANIC, or the execution queue runs dry.
func newRunCmd() *cobra.Command {
	var quiet bool
	format := formatValue
	cmd := &cobra.Command{
		Use:   "run <file.lasm>",
		Short: "Assemble and run a bytecode source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunk, err := assembleFile(args[0])
			if err != nil {
				return err
			}
			machine := vm.New(vm.NewProgram(chunk))
			if quiet {
				machine.Debug = io.Discard
			}
			result, err := machine.Run()
			if err != nil {
				return reportRunError(err)
			}
			out := cmd.OutOrStdout()
			if format == formatGo {
				fmt.Fprintf(out, "%#v\n", result)
			} else {
				fmt.Fprintln(out, result.String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress DEBUG instruction output")
	cmd.Flags().VarP(&format, "format", "f", `result rendering: "value" or "go"`)
	return cmd
}

// reportRunError distinguishes the VM's own terminal outcomes (a value
// panicked, an internal fault, every execution fizzling with nothing
// exited) so the exit path can report each distinctly rather than the
// flat generic error cobra would otherwise print.
func reportRunError(err error) error {
	switch e := err.(type) {
	case *vm.PanicError:
		return fmt.Errorf("panic: %s (chunk %s, ip %d)", e.Value.String(), e.Chunk, e.IP)
	case *vm.InternalError:
		return fmt.Errorf("internal error: %s", e.Error())
	default:
		if err == vm.ExecutionFizzledError {
			return fmt.Errorf("no execution produced a value: %s", err)
		}
		return err
	}
}

func assembleFile(path string) (*bytecode.Chunk, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	chunk, err := bytecode.Assemble(path, string(source))
	if err != nil {
		return nil, fmt.Errorf("assembling %s: %w", path, err)
	}
	return chunk, nil
}

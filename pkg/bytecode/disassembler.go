package bytecode

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble renders a Chunk back into the textual assembly format.
// A jump-family operand whose target carries a label renders as &name; a
// target with no label renders as &L<ip>, which Assemble cannot resolve
// unless the chunk also defines a label of that name. Callable constants
// render as &<ip> and read back as zero-arity procedures. For a Chunk whose
// every jump target is labeled (as the Builder's own output is) and whose
// constants are not callables, Assemble(name, Disassemble(c)) reproduces
// equivalent instructions, modulo constant-pool ordering.
func Disassemble(c *Chunk) string {
	labelsAt := make(map[int][]string)
	for name, ip := range c.Labels {
		labelsAt[ip] = append(labelsAt[ip], name)
	}
	for ip := range labelsAt {
		sort.Strings(labelsAt[ip])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", c.Name)
	for ip, instr := range c.Instructions {
		for _, l := range labelsAt[ip] {
			fmt.Fprintf(&sb, "%s:\n", l)
		}
		sb.WriteString(renderInstruction(c, ip, instr))
		sb.WriteByte('\n')
	}
	// A label pointing past the last instruction (an empty chunk's single
	// exit label, for instance) still needs to appear.
	for _, l := range labelsAt[len(c.Instructions)] {
		fmt.Fprintf(&sb, "%s:\n", l)
	}
	return sb.String()
}

func renderInstruction(c *Chunk, ip int, instr Instruction) string {
	mnemonic := instr.Op.String()
	switch instr.Op.OperandKind() {
	case operandNone:
		return mnemonic
	case operandOffset:
		return fmt.Sprintf("%s %d", mnemonic, instr.Operand)
	case operandValue:
		if v, ok := c.Constant(instr.Operand); ok {
			return fmt.Sprintf("%s %s", mnemonic, v.String())
		}
		return fmt.Sprintf("%s <bad-const %d>", mnemonic, instr.Operand)
	case operandLabel:
		target := Target(ip, instr.Operand)
		if name, ok := labelNameFor(c, target); ok {
			return fmt.Sprintf("%s &%s", mnemonic, name)
		}
		return fmt.Sprintf("%s &L%d", mnemonic, target)
	default:
		return mnemonic
	}
}

func labelNameFor(c *Chunk, target int) (string, bool) {
	best := ""
	found := false
	for name, ip := range c.Labels {
		if ip == target && (!found || name < best) {
			best, found = name, true
		}
	}
	return best, found
}

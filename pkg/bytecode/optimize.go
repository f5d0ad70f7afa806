package bytecode

// isTerminal reports whether an opcode unconditionally ends the current
// instruction stream's straight-line flow (the code after it, up to the
// next label, can never be reached by falling through).
func isTerminal(op Opcode) bool {
	switch op {
	case Jump, Return, Become, Exit, Panic, Fizzle:
		return true
	default:
		return false
	}
}

// Optimize runs a local peephole pass over the chunk's instructions:
// unreachable code between a terminal instruction and the next label is
// dropped, and a COPY immediately followed by POP (a duplicate made only
// to be discarded) collapses to nothing. Labels are re-pointed to the
// surviving instruction indices.
func (c *Chunk) Optimize() {
	n := len(c.Instructions)
	remap := make([]int, n+1)
	kept := make([]Instruction, 0, n)
	keptFrom := make([]int, 0, n) // kept[i] originated at old index keptFrom[i]

	labelAt := make(map[int]bool)
	for _, ip := range c.Labels {
		labelAt[ip] = true
	}

	dead := false
	for i := 0; i < n; i++ {
		if labelAt[i] {
			dead = false
		}
		if dead {
			remap[i] = len(kept)
			continue
		}
		if c.Instructions[i].Op == Copy && i+1 < n && c.Instructions[i+1].Op == Pop && !labelAt[i+1] {
			remap[i] = len(kept)
			remap[i+1] = len(kept)
			i++
			continue
		}
		remap[i] = len(kept)
		keptFrom = append(keptFrom, i)
		kept = append(kept, c.Instructions[i])
		if isTerminal(c.Instructions[i].Op) {
			dead = true
		}
	}
	remap[n] = len(kept)

	for name, ip := range c.Labels {
		c.Labels[name] = remap[ip]
	}

	for newIdx, oldIP := range keptFrom {
		if kept[newIdx].Op.OperandKind() != operandLabel {
			continue
		}
		oldTarget := Target(oldIP, kept[newIdx].Operand)
		newTarget := remap[oldTarget]
		kept[newIdx].Operand = newTarget - (newIdx + 1)
	}

	c.Instructions = kept
}

package bytecode

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Assemble parses the deterministic textual bytecode format into a Chunk:
// one instruction per line, an optional `label:` prefix, an uppercase
// mnemonic, and an optional parameter whose grammar depends on the
// opcode. Comments start with '#' and run to end of line.
func Assemble(name, source string) (*Chunk, error) {
	b := NewBuilder(name)
	lines := strings.Split(source, "\n")

	// First pass: collect label positions so forward references resolve.
	// A label consumes no instruction slot, so its target is the index of
	// the next real instruction on or after it.
	type rawLine struct {
		lineNo int
		labels []string
		text   string
	}
	var raw []rawLine
	for i, line := range lines {
		line = stripComment(line)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var labels []string
		for {
			idx := strings.Index(line, ":")
			if idx < 0 {
				break
			}
			candidate := strings.TrimSpace(line[:idx])
			if candidate == "" || !isLabelName(candidate) {
				break
			}
			labels = append(labels, candidate)
			line = strings.TrimSpace(line[idx+1:])
		}
		raw = append(raw, rawLine{lineNo: i + 1, labels: labels, text: line})
	}

	for _, rl := range raw {
		if rl.text == "" {
			for _, l := range rl.labels {
				b.Label(l)
			}
			continue
		}
		mnemonic, rest := splitMnemonic(rl.text)
		op, ok := Lookup(mnemonic)
		if !ok {
			return nil, errors.Errorf("line %d: unknown opcode %q", rl.lineNo, mnemonic)
		}
		for _, l := range rl.labels {
			b.Label(l)
		}
		switch op.OperandKind() {
		case operandNone:
			if strings.TrimSpace(rest) != "" {
				return nil, errors.Errorf("line %d: %s takes no parameter", rl.lineNo, mnemonic)
			}
			b.EmitNone(op)
		case operandOffset:
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: %s expects an integer parameter", rl.lineNo, mnemonic)
			}
			b.Emit(op, n)
		case operandLabel:
			rest = strings.TrimSpace(rest)
			if !strings.HasPrefix(rest, "&") {
				return nil, errors.Errorf("line %d: %s expects a &label parameter", rl.lineNo, mnemonic)
			}
			b.EmitToLabel(op, rest[1:])
		case operandValue:
			v, err := ParseValue(rest)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: invalid value literal for %s", rl.lineNo, mnemonic)
			}
			b.Emit(op, b.Constant(v))
		}
	}
	return b.Build()
}

func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inString = !inString
		case '#':
			if !inString {
				return line[:i]
			}
		}
	}
	return line
}

func isLabelName(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if i == 0 && !isIdentStart(byte(c)) {
			return false
		}
		if i > 0 && !isIdentPart(byte(c)) {
			return false
		}
	}
	return true
}

func splitMnemonic(line string) (mnemonic, rest string) {
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i+1:])
}

// Package program parses the CT-10's textual program format: hex bytes,
// mnemonic + operand lines, and @ADDR / # START / # EXPECT directives,
// producing a ProgramSpec ready to be written into a core.MachineState.
//
// Grounded on the lexical rules of the original text loader
// (original_source/src/app/program_text.h) plus the 44-entry mnemonic
// table, which the original hex-only loader never
// implemented.
package program

import (
	"strconv"
	"strings"

	core "github.com/digiac10/ct10emu"
)

// Write is one (address, byte) memory write produced by parsing.
type Write struct {
	Addr uint16
	Byte byte
}

// Expect is a post-run expectation: memory[Addr] == Byte.
type Expect struct {
	Addr uint16
	Byte byte
}

// ProgramSpec is the result of successfully parsing a program text.
type ProgramSpec struct {
	Entry         uint16
	HasEntry      bool
	UsesAddresses bool
	Writes        []Write
	Expects       []Expect
}

// ParseResult wraps a ProgramSpec with a count of tokens that failed to
// parse (non-fatal; the loader accumulates and continues).
type ParseResult struct {
	Parsed  ProgramSpec
	Skipped int
}

var mnemonicIndex map[string]core.Mnemonic

func init() {
	mnemonicIndex = make(map[string]core.Mnemonic, len(core.Mnemonics))
	for _, m := range core.Mnemonics {
		mnemonicIndex[m.Name] = m
	}
}

func isSeparator(r rune) bool {
	return r == ',' || r == ';' || r == ':'
}

// Parse parses program text, line by line.
func Parse(text string) ParseResult {
	var pr ParseResult
	cursor := uint16(0)

	for _, line := range strings.Split(text, "\n") {
		line = stripComment(&pr, &cursor)(line)
		line = strings.Map(func(r rune) rune {
			if isSeparator(r) {
				return ' '
			}
			return r
		}, line)

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		parseLine(&pr, &cursor, fields)
	}

	return pr
}

// stripComment returns a function that strips a trailing "# ..." comment
// from a line, first checking it for a directive and applying any side
// effect (address cursor handled by the caller, START/EXPECT handled
// here).
func stripComment(pr *ParseResult, cursor *uint16) func(string) string {
	return func(line string) string {
		idx := strings.IndexByte(line, '#')
		if idx < 0 {
			return line
		}
		comment := strings.TrimSpace(line[idx+1:])
		applyDirective(pr, comment)
		return line[:idx]
	}
}

func applyDirective(pr *ParseResult, comment string) {
	fields := strings.Fields(comment)
	if len(fields) == 0 {
		return
	}
	switch strings.ToUpper(fields[0]) {
	case "START":
		if len(fields) < 2 {
			pr.Skipped++
			return
		}
		addr, ok := parseNumber(fields[1])
		if !ok {
			pr.Skipped++
			return
		}
		pr.Parsed.Entry = addr & 0x3FF
		pr.Parsed.HasEntry = true
	case "EXPECT":
		if len(fields) < 3 {
			pr.Skipped++
			return
		}
		addr, ok1 := parseNumber(fields[1])
		val, ok2 := parseNumber(fields[2])
		if !ok1 || !ok2 {
			pr.Skipped++
			return
		}
		pr.Parsed.Expects = append(pr.Parsed.Expects, Expect{Addr: addr & 0x3FF, Byte: byte(val & 0xFF)})
	}
}

func parseNumber(tok string) (uint16, bool) {
	tok = strings.TrimPrefix(strings.ToLower(tok), "0x")
	v, err := strconv.ParseUint(tok, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

func parseLine(pr *ParseResult, cursor *uint16, fields []string) {
	// @ADDR address-cursor token, which may appear alongside other tokens
	// on the same line.
	var rest []string
	for _, f := range fields {
		if strings.HasPrefix(f, "@") {
			addr, ok := parseNumber(f[1:])
			if !ok {
				pr.Skipped++
				continue
			}
			*cursor = addr & 0x3FF
			pr.Parsed.UsesAddresses = true
			if !pr.Parsed.HasEntry {
				pr.Parsed.Entry = *cursor
				pr.Parsed.HasEntry = true
			}
			continue
		}
		rest = append(rest, f)
	}
	if len(rest) == 0 {
		return
	}

	if m, ok := mnemonicIndex[strings.ToUpper(rest[0])]; ok {
		parseMnemonic(pr, cursor, m, rest[1:])
		return
	}

	for _, tok := range rest {
		v, ok := parseNumber(tok)
		if !ok || v > 0xFF {
			pr.Skipped++
			continue
		}
		emit(pr, cursor, byte(v))
	}
}

func parseMnemonic(pr *ParseResult, cursor *uint16, m core.Mnemonic, operandTokens []string) {
	indexed := false
	var operandTok string
	for _, t := range operandTokens {
		if strings.EqualFold(t, "X") {
			indexed = true
			continue
		}
		operandTok = t
	}

	var operand uint16
	if operandTok != "" {
		v, ok := parseNumber(operandTok)
		if !ok {
			pr.Skipped++
			return
		}
		operand = v
	}

	switch m.Mode {
	case core.AddressingImmediate:
		if operand > 0xFF {
			pr.Skipped++
			return
		}
		emit(pr, cursor, m.Opcode)
		emit(pr, cursor, byte(operand))
	case core.AddressingPaged:
		if operand > 0x3FF {
			pr.Skipped++
			return
		}
		page := byte((operand >> 8) & 3)
		opcode := m.Opcode | page
		if indexed {
			opcode |= 4
		}
		emit(pr, cursor, opcode)
		emit(pr, cursor, byte(operand&0xFF))
	}
}

func emit(pr *ParseResult, cursor *uint16, b byte) {
	pr.Parsed.Writes = append(pr.Parsed.Writes, Write{Addr: *cursor, Byte: b})
	*cursor = (*cursor + 1) & 0x3FF
}

// LoadInto writes every parsed byte into state's memory and, if the
// program names an entry point, sets PAR to it. It does not evaluate
// Expects; callers compare those against state after running.
func LoadInto(state *core.MachineState, spec ProgramSpec) {
	for _, w := range spec.Writes {
		state.Mem.Write(w.Addr, w.Byte)
	}
	if spec.HasEntry {
		state.Reg.PAR.Load(spec.Entry)
	}
}

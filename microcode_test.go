package core

import "testing"

// TestMicrocodeTotality verifies microcode totality: for every opcode,
// either its execution sequence is non-empty or executing it after a
// normal acquisition raises InstError on the first execute microstep.
func TestMicrocodeTotality(t *testing.T) {
	for b := 0; b < 256; b++ {
		opcode := byte(b)
		if ExecutionSequence(opcode) != nil {
			continue
		}

		s := NewMachineState()
		s.Panel.ErrorInst = true // bypass the halt so we can observe the flag
		s.Reg.OP.Load(uint16(opcode))
		s.Timing.Acquisition = false
		s.Timing.Distributor = 0
		s.Timing.Phase = CP1

		Step(s)

		if !s.Flags.InstError {
			t.Errorf("opcode 0x%02X: empty sequence but InstError not set", opcode)
		}
	}
}

func TestMicrocodeKnownOpcodesNonEmpty(t *testing.T) {
	for _, m := range Mnemonics {
		if m.Mode == AddressingImmediate {
			if ExecutionSequence(m.Opcode) == nil {
				t.Errorf("mnemonic %s (0x%02X): expected non-empty sequence", m.Name, m.Opcode)
			}
			continue
		}
		for p := m.Opcode; p < m.Opcode+8; p++ {
			if ExecutionSequence(p) == nil {
				t.Errorf("mnemonic %s page byte 0x%02X: expected non-empty sequence", m.Name, p)
			}
		}
	}
}

package program

import (
	"testing"

	core "github.com/digiac10/ct10emu"
)

func TestParseRawHexBytes(t *testing.T) {
	pr := Parse("20 20 60 20")
	if pr.Skipped != 0 {
		t.Fatalf("skipped = %d, want 0", pr.Skipped)
	}
	want := []Write{{0, 0x20}, {1, 0x20}, {2, 0x60}, {3, 0x20}}
	if len(pr.Parsed.Writes) != len(want) {
		t.Fatalf("writes = %v, want %v", pr.Parsed.Writes, want)
	}
	for i, w := range want {
		if pr.Parsed.Writes[i] != w {
			t.Errorf("write[%d] = %+v, want %+v", i, pr.Parsed.Writes[i], w)
		}
	}
}

func TestParseImmediateMnemonic(t *testing.T) {
	pr := Parse("LAI 2A")
	if pr.Skipped != 0 {
		t.Fatalf("skipped = %d", pr.Skipped)
	}
	want := []Write{{0, core.OpcodeLAI}, {1, 0x2A}}
	if len(pr.Parsed.Writes) != 2 || pr.Parsed.Writes[0] != want[0] || pr.Parsed.Writes[1] != want[1] {
		t.Errorf("writes = %+v, want %+v", pr.Parsed.Writes, want)
	}
}

func TestParsePagedMnemonicWithIndex(t *testing.T) {
	pr := Parse("LDA 120 X")
	if pr.Skipped != 0 {
		t.Fatalf("skipped = %d", pr.Skipped)
	}
	if len(pr.Parsed.Writes) != 2 {
		t.Fatalf("writes = %+v", pr.Parsed.Writes)
	}
	opcode := pr.Parsed.Writes[0].Byte
	if opcode&4 == 0 {
		t.Errorf("expected index bit set in opcode 0x%02X", opcode)
	}
	if opcode&3 != 1 {
		t.Errorf("expected page bits = 1 for address 0x120, got opcode 0x%02X", opcode)
	}
	if pr.Parsed.Writes[1].Byte != 0x20 {
		t.Errorf("low byte = 0x%02X, want 0x20", pr.Parsed.Writes[1].Byte)
	}
}

func TestParseAddressDirectiveMovesCursor(t *testing.T) {
	pr := Parse("@010\nLAI 05")
	if !pr.Parsed.UsesAddresses {
		t.Error("expected UsesAddresses to be true")
	}
	if pr.Parsed.Writes[0].Addr != 0x010 {
		t.Errorf("first write addr = 0x%03X, want 0x010", pr.Parsed.Writes[0].Addr)
	}
}

func TestParseStartAndExpectDirectives(t *testing.T) {
	pr := Parse("LAI 05 # START 000\nBST # EXPECT 021 0C")
	if !pr.Parsed.HasEntry || pr.Parsed.Entry != 0x000 {
		t.Errorf("entry = %+v", pr.Parsed)
	}
	if len(pr.Parsed.Expects) != 1 || pr.Parsed.Expects[0] != (Expect{Addr: 0x021, Byte: 0x0C}) {
		t.Errorf("expects = %+v", pr.Parsed.Expects)
	}
}

func TestParseSkipsMalformedTokens(t *testing.T) {
	pr := Parse("ZZ 100 256")
	if pr.Skipped == 0 {
		t.Error("expected at least one skipped token for malformed/out-of-range input")
	}
}

func TestLoadIntoWritesMemoryAndEntry(t *testing.T) {
	pr := Parse("@005\nLAI 07 # START 005")
	s := core.NewMachineState()
	LoadInto(s, pr.Parsed)

	if got := s.Mem.Read(0x005); got != core.OpcodeLAI {
		t.Errorf("memory[0x005] = 0x%02X, want LAI opcode", got)
	}
	if got := s.Mem.Read(0x006); got != 0x07 {
		t.Errorf("memory[0x006] = 0x%02X, want 0x07", got)
	}
	if s.Reg.PAR.Value != 0x005 {
		t.Errorf("PAR = 0x%03X, want 0x005", s.Reg.PAR.Value)
	}
}

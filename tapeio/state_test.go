package tapeio

import (
	"bytes"
	"testing"

	core "github.com/digiac10/ct10emu"
)

func TestSaveLoadStateRoundTrip(t *testing.T) {
	s := core.NewMachineState()
	s.Reg.A.Load(0x5A)
	s.Reg.MAR.Load(0x123)
	s.Mem.Write(0x010, 0x99)
	s.Flags.Carry = true
	s.Flags.InstError = true
	s.IO.OutputData = []byte{1, 2, 3}
	s.IO.TerminalInput = []byte("hello")
	s.Panel.Sense = true
	s.Panel.InputSwitches = 0x2FF
	s.Bus.Z.Drive(0x42, true)

	data := SaveState(s)
	if !bytes.HasPrefix(data, stateMagic[:]) {
		t.Fatal("missing magic header")
	}

	loaded := core.NewMachineState()
	if err := LoadState(data, loaded); err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	if loaded.Reg.A.Value != 0x5A {
		t.Errorf("A = 0x%02X, want 0x5A", loaded.Reg.A.Value)
	}
	if loaded.Reg.MAR.Value != 0x123 {
		t.Errorf("MAR = 0x%03X, want 0x123", loaded.Reg.MAR.Value)
	}
	if got := loaded.Mem.Read(0x010); got != 0x99 {
		t.Errorf("memory[0x010] = 0x%02X, want 0x99", got)
	}
	if !loaded.Flags.Carry || !loaded.Flags.InstError {
		t.Error("expected Carry and InstError preserved")
	}
	if !bytes.Equal(loaded.IO.OutputData, []byte{1, 2, 3}) {
		t.Errorf("OutputData = %v", loaded.IO.OutputData)
	}
	if string(loaded.IO.TerminalInput) != "hello" {
		t.Errorf("TerminalInput = %q", loaded.IO.TerminalInput)
	}
	if !loaded.Panel.Sense {
		t.Error("expected Sense preserved")
	}
	if loaded.Panel.InputSwitches != 0x2FF {
		t.Errorf("InputSwitches = 0x%03X, want 0x2FF", loaded.Panel.InputSwitches)
	}
	if loaded.Bus.Z.Value != 0x42 || !loaded.Bus.Z.Complemented {
		t.Errorf("Bus.Z = %+v", loaded.Bus.Z)
	}
}

func TestLoadStateRejectsBadMagic(t *testing.T) {
	bad := append([]byte("XXXXXXXX"), make([]byte, 4)...)
	s := core.NewMachineState()
	if err := LoadState(bad, s); err == nil {
		t.Error("expected error for bad magic header")
	}
}

func TestLoadStateRejectsTruncatedData(t *testing.T) {
	full := SaveState(core.NewMachineState())
	truncated := full[:len(full)/2]
	if err := LoadState(truncated, core.NewMachineState()); err == nil {
		t.Error("expected error for truncated state data")
	}
}

func TestLoadStateVersion1ReconstructsInstErrorFalse(t *testing.T) {
	s := core.NewMachineState()
	s.Flags.InstError = true
	data := SaveState(s)

	// Patch the version field (immediately after the 8-byte magic) down to
	// 1 and drop the InstError byte that versions >= 2 carry, mirroring
	// the historical file layout before that field existed.
	const (
		headerLen   = 12           // magic(8) + version(4)
		regsLen     = 9 * 2        // 9 u16 registers
		timingLen   = 1 + 1 + 1 + 1 // distributor, phase, acquisition, halted
		preErrFlags = 6             // carry, zero, greater, less, addOverflow, divideOverflow
	)
	instErrorOffset := headerLen + regsLen + timingLen + preErrFlags
	patched := make([]byte, 0, len(data)-1)
	patched = append(patched, data[:8]...)
	patched = append(patched, 1, 0, 0, 0) // version = 1
	patched = append(patched, data[12:instErrorOffset]...)
	patched = append(patched, data[instErrorOffset+1:]...)

	loaded := core.NewMachineState()
	if err := LoadState(patched, loaded); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if loaded.Flags.InstError {
		t.Error("expected InstError reconstructed as false for version 1")
	}
}

package panel

import (
	"testing"

	core "github.com/digiac10/ct10emu"
)

func TestResetRisingEdgeReloadsProgram(t *testing.T) {
	s := core.NewMachineState()
	loaded := false
	a := NewApplier(func(st *core.MachineState) {
		loaded = true
		st.Mem.Write(0x000, 0x11)
	})

	a.Apply(s) // prime with Reset=false
	s.Panel.Reset = true
	a.Apply(s)

	if !loaded {
		t.Error("expected loader to be invoked on Reset rising edge")
	}
	if !s.Mode.Halted {
		t.Error("expected halted after Reset")
	}
	if got := s.Mem.Read(0x000); got != 0x11 {
		t.Errorf("memory[0x000] = 0x%02X, want 0x11", got)
	}
}

func TestResetDoesNotRefireWhileHeld(t *testing.T) {
	s := core.NewMachineState()
	count := 0
	a := NewApplier(func(*core.MachineState) { count++ })

	a.Apply(s)
	s.Panel.Reset = true
	a.Apply(s)
	a.Apply(s)
	a.Apply(s)

	if count != 1 {
		t.Errorf("loader invoked %d times, want 1 (edge-triggered)", count)
	}
}

func TestLoadPressedWritesAccumulator(t *testing.T) {
	s := core.NewMachineState()
	s.Mode.Halted = true
	a := NewApplier(nil)
	a.Apply(s)

	s.Panel.InputSwitches = 0x7F
	s.Panel.LoadTarget = core.LoadAccumulator
	s.Panel.LoadPressed = true
	a.Apply(s)

	if s.Reg.A.Value != 0x7F {
		t.Errorf("A = 0x%02X, want 0x7F", s.Reg.A.Value)
	}
}

func TestManualMemoryWriteAdvancesMAR(t *testing.T) {
	s := core.NewMachineState()
	s.Mode.Halted = true
	s.Reg.MAR.Load(0x010)
	s.Panel.InputSwitches = 0xAB
	s.Panel.MemWrite = true
	s.Panel.Start = true

	a := NewApplier(nil)
	a.Apply(s)

	if got := s.Mem.Read(0x010); got != 0xAB {
		t.Errorf("memory[0x010] = 0x%02X, want 0xAB", got)
	}
	if s.Reg.MAR.Value != 0x011 {
		t.Errorf("MAR = 0x%03X, want 0x011", s.Reg.MAR.Value)
	}
}

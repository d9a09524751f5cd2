// Package panel implements the CT-10 front panel's rising-edge input
// applier: the sole collaborator, besides the program loader, allowed to
// mutate core.MachineState while the engine is halted. During Step the
// engine reads latched fields (Sense, IOMode, ...) and, of the momentary
// switches, only Start, which paces manual I/O transfers.
package panel

import core "github.com/digiac10/ct10emu"

// Snapshot captures the panel switches, momentary and latched, whose
// *rising edge* (false -> true transition) triggers a side effect: edge detection
// belongs in the applier, not the engine.
type Snapshot struct {
	Start    bool
	Stop     bool
	Clear    bool
	Reset    bool
	PowerOn  bool
	IORead   bool
	IOWrite  bool
	IOIntrp  bool
	IOBlock  bool
}

func snapshotOf(p *core.PanelInput) Snapshot {
	return Snapshot{
		Start:   p.Start,
		Stop:    p.Stop,
		Clear:   p.Clear,
		Reset:   p.Reset,
		PowerOn: p.PowerOn,
		IORead:  p.IORead,
		IOWrite: p.IOWrite,
		IOIntrp: p.IOIntrp,
		IOBlock: p.IOBlock,
	}
}

func rising(prev, cur bool) bool { return cur && !prev }

// Applier tracks the previous panel snapshot across calls so it can
// detect rising edges on momentary switches.
type Applier struct {
	prev    Snapshot
	primed  bool
	Loader  func(*core.MachineState)
}

// NewApplier returns an Applier with no prior snapshot; the first Apply
// call will not fire any edge-triggered effect since there is nothing to
// transition from.
func NewApplier(loader func(*core.MachineState)) *Applier {
	return &Applier{Loader: loader}
}

// Apply applies one cycle's worth of panel-input side effects to s.
// Reset, clear and power edges take effect whenever Apply is called and
// each halts the engine; load, manual memory access and I/O presets take
// effect only while the engine is halted.
func (a *Applier) Apply(s *core.MachineState) {
	cur := snapshotOf(&s.Panel)
	if !a.primed {
		a.prev = cur
		a.primed = true
	}
	prev := a.prev
	defer func() { a.prev = cur }()

	if rising(prev.Reset, cur.Reset) {
		if a.Loader != nil {
			a.Loader(s)
		}
		core.ResetTiming(&s.Timing)
		s.Mode.Halted = true
		cancelTransfer(s)
		s.Panel.InputSwitches = 0
		s.Panel.KeyPressed = false
		s.Panel.HasLastKey = false
	}

	if rising(prev.Clear, cur.Clear) {
		s.ClearRegisters()
		s.Mode.Halted = true
		cancelTransfer(s)
	}

	if rising(prev.PowerOn, cur.PowerOn) {
		core.ResetTiming(&s.Timing)
		s.Mode.Halted = true
		cancelTransfer(s)
	}
	if !cur.PowerOn && prev.PowerOn {
		s.ClearRegisters()
		s.Mode.Halted = true
		cancelTransfer(s)
	}

	if !s.Mode.Halted {
		return
	}

	if s.Panel.LoadPressed {
		applyLoad(s)
	}

	if s.Panel.Start && (s.Panel.MemRead || s.Panel.MemWrite) {
		applyManualMemory(s)
	}

	if rising(prev.IORead && prev.IOIntrp, cur.IORead && cur.IOIntrp) {
		s.Reg.OP.Load(uint16(core.PageRDI))
		s.Reg.C.Load(0xFF)
		s.Timing.Distributor = 0
		s.Timing.Phase = core.CP1
		s.Timing.Acquisition = false
	}
	if rising(prev.IOWrite && prev.IOBlock, cur.IOWrite && cur.IOBlock) {
		s.Reg.OP.Load(uint16(core.PageWDB))
		s.Reg.C.Load(0xFF)
		s.Timing.Distributor = 0
		s.Timing.Phase = core.CP1
		s.Timing.Acquisition = false
	}
}

func cancelTransfer(s *core.MachineState) {
	s.IO.TransferMode = core.TransferNone
	s.IO.WaitCycles = 0
}

func applyLoad(s *core.MachineState) {
	v := s.Panel.InputSwitches
	switch s.Panel.LoadTarget {
	case core.LoadAccumulator:
		s.Reg.A.Load(v & 0xFF)
	case core.LoadBuffer:
		s.Reg.B.Load(v & 0xFF)
	case core.LoadCountdown:
		s.Reg.C.Load(v & 0xFF)
	case core.LoadQuotient:
		s.Reg.Q.Load(v & 0xFF)
	case core.LoadIndex:
		s.Reg.X.Load(v & 0xFF)
	case core.LoadOpcode:
		s.Reg.OP.Load(v & 0xFF)
	case core.LoadDistributor:
		s.Reg.D.Load(v & 0xF)
	case core.LoadMAR:
		s.Reg.MAR.Load(v & 0x3FF)
	case core.LoadPAR:
		s.Reg.PAR.Load(v & 0x3FF)
	}
}

func applyManualMemory(s *core.MachineState) {
	if s.Panel.MemWrite {
		s.Mem.Write(s.Reg.MAR.Value, byte(s.Panel.InputSwitches&0xFF))
	} else if s.Panel.MemRead {
		v := s.Mem.Read(s.Reg.MAR.Value)
		s.Panel.InputSwitches = (s.Panel.InputSwitches & 0x300) | uint16(v)
	}
	s.Reg.MAR.Load(s.Reg.MAR.Value + 1)
}

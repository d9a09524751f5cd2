package core

// Step consumes exactly one microstep of the fetch/execute cycle.
// The host is responsible for calling AdvanceTiming(&state.Timing) after
// each Step.
func Step(s *MachineState) {
	if s.Mode.Halted {
		return
	}

	if s.IO.TransferMode != TransferNone {
		stepIOWait(s)
		return
	}
	s.Status.Wait = false

	if !s.Timing.Acquisition && s.Timing.Distributor == 0 && s.Timing.Phase == CP1 {
		s.Flags.AddOverflow = false
		s.Flags.DivideOverflow = false
		s.Flags.InstError = false
	}

	applyIOModeLatch(s)
	refreshStatus(s)

	switch s.Timing.Phase {
	case CP1:
		s.Bus.X.Clear()
		s.Bus.Y.Clear()
		s.Bus.Z.Clear()
	case CP2:
		s.Bus.F.Clear()
	}

	var sequence []MicroStep
	if s.Timing.Acquisition {
		sequence = AcquisitionSequence()
	} else {
		sequence = ExecutionSequence(byte(s.Reg.OP.Value))
		if sequence == nil {
			s.Flags.InstError = true
			if !s.Panel.ErrorInst {
				s.Mode.Halted = true
				return
			}
		}
	}

	for _, step := range sequence {
		if step.Distributor == s.Timing.Distributor && step.Phase == s.Timing.Phase {
			executeMicroOp(s, step.Op)
			s.recordTrace(TraceEntry{Distributor: step.Distributor, Phase: step.Phase, Op: step.Op})
		}
	}

	s.Reg.D.Load(uint16(s.Timing.Distributor))
}

// applyIOModeLatch maps panel_input.io_mode into (hex_mode, alpha_mode):
// 2 => hex, 3 => alpha, 1 => both off, 0 => unchanged.
func applyIOModeLatch(s *MachineState) {
	switch s.Panel.IOMode {
	case 1:
		s.IO.HexMode = false
		s.IO.AlphaMode = false
	case 2:
		s.IO.HexMode = true
	case 3:
		s.IO.AlphaMode = true
	}
}

func refreshStatus(s *MachineState) {
	s.Status.Sense = s.Panel.Sense
	s.Status.Interrupt = s.IO.Interrupt

	var flagBit, senseBit, interruptBit byte
	if s.Status.Flag {
		flagBit = 1
	}
	if s.Status.Sense {
		senseBit = 1
	}
	if s.Status.Interrupt {
		interruptBit = 1
	}
	s.IO.Status = (flagBit << 2) | (senseBit << 1) | interruptBit
}

// executeMicroOp is the exhaustive dispatch over MicroOp. Every case
// mutates s directly; none of them return errors (the core
// never panics, throws, or aborts).
func executeMicroOp(s *MachineState, op MicroOp) {
	switch op {
	case OpParToMAR:
		s.Reg.MAR.Load(s.Reg.PAR.Value)

	case OpMemToZ:
		v := s.Mem.Read(s.Reg.MAR.Value)
		s.Bus.Z.Drive(uint16(^v&0xFF), true)

	case OpZToB:
		v := s.Bus.Z.Value
		if s.Bus.Z.Complemented {
			v = uint16(^byte(v)) & 0xFF
		}
		s.Reg.B.Load(v)

	case OpBToOP:
		s.Reg.OP.Load(s.Reg.B.Value)

	case OpParInc:
		if !(s.Panel.Rpt && (s.Panel.Mode == 1 || s.Panel.Mode == 2)) {
			s.Reg.PAR.Load(s.Reg.PAR.Value + 1)
		}

	case OpFormEA:
		page := uint16(s.Reg.OP.Value&3) << 8
		s.Reg.MAR.Load(page | s.Reg.B.Value)

	case OpAddIndex:
		if s.Reg.OP.Value&4 != 0 {
			s.Reg.MAR.Load(s.Reg.MAR.Value + s.Reg.X.Value)
		}

	case OpAccToY:
		s.Bus.Y.Drive(s.Reg.A.Value, false)

	case OpBToXBus:
		s.Bus.X.Drive(s.Reg.B.Value, false)

	case OpBToF:
		s.Bus.F.Drive(s.Reg.B.Value, false)

	case OpFToA:
		s.Reg.A.Load(s.Bus.F.Value)

	case OpAccToZ:
		s.Bus.Z.Drive(s.Reg.A.Value, false)

	case OpXToZ:
		s.Bus.Z.Drive(s.Reg.X.Value, false)

	case OpQToZ:
		s.Bus.Z.Drive(s.Reg.Q.Value, false)

	case OpBToY:
		s.Bus.Y.Drive(s.Reg.B.Value, false)

	case OpYToMem:
		s.Mem.Write(s.Reg.MAR.Value, byte(s.Bus.Y.Value))

	case OpLoadA:
		s.Reg.A.Load(s.Reg.B.Value)
	case OpLoadX:
		s.Reg.X.Load(s.Reg.B.Value)
	case OpLoadC:
		s.Reg.C.Load(s.Reg.B.Value)
	case OpLoadQ:
		s.Reg.Q.Load(s.Reg.B.Value)

	case OpStoreA:
		s.Mem.Write(s.Reg.MAR.Value, byte(s.Reg.A.Value))
	case OpStoreX:
		s.Mem.Write(s.Reg.MAR.Value, byte(s.Reg.X.Value))
	case OpStoreQ:
		s.Mem.Write(s.Reg.MAR.Value, byte(s.Reg.Q.Value))

	case OpLoadANeg:
		neg := (^byte(s.Reg.B.Value) + 1) & 0xFF
		s.Reg.A.Load(uint16(neg))

	case OpCopyMemPlusOne:
		v := s.Mem.Read(s.Reg.MAR.Value)
		next := (s.Reg.MAR.Value + 1) & MemoryMask
		s.Mem.Write(next, v)
		s.Reg.MAR.Load(next)

	case OpAddToF:
		y := s.Bus.Y.Value
		x := s.Bus.X.Value
		sum := y + x
		result := sum & 0xFF
		s.Flags.Carry = sum > 0xFF
		s.Flags.AddOverflow = (y^result)&(x^result)&0x80 != 0
		s.Bus.F.Drive(result, false)
		if s.Flags.AddOverflow && !s.Panel.ErrorAdd {
			s.Mode.Halted = true
		}

	case OpSubToF:
		y := s.Bus.Y.Value
		x := s.Bus.X.Value
		result := (y - x) & 0xFF
		s.Flags.Carry = y >= x
		s.Flags.AddOverflow = (y^x)&(y^result)&0x80 != 0
		s.Bus.F.Drive(result, false)
		if s.Flags.AddOverflow && !s.Panel.ErrorAdd {
			s.Mode.Halted = true
		}

	case OpAndOp:
		s.Reg.A.Load(s.Reg.A.Value & s.Reg.B.Value)
	case OpIorOp:
		s.Reg.A.Load(s.Reg.A.Value | s.Reg.B.Value)
	case OpXorOp:
		s.Reg.A.Load(s.Reg.A.Value ^ s.Reg.B.Value)

	case OpIncX:
		s.Reg.X.Load((s.Reg.X.Value + s.Reg.B.Value) & 0xFF)

	case OpShiftSLA:
		shiftAQ(s, true, true)
	case OpShiftSRA:
		shiftAQ(s, false, true)
	case OpShiftSLL:
		shiftA(s, true)
	case OpShiftSRL:
		shiftA(s, false)

	case OpMultiply:
		a := int8(s.Reg.A.Value)
		b := int8(s.Reg.B.Value)
		product := int16(a) * int16(b)
		s.Reg.A.Load(uint16(uint16(product)>>8) & 0xFF)
		s.Reg.Q.Load(uint16(product) & 0xFF)

	case OpDivide:
		dividend := int16(uint16(s.Reg.A.Value)<<8 | s.Reg.Q.Value)
		divisor := int8(s.Reg.B.Value)
		if divisor == 0 {
			s.Flags.DivideOverflow = true
			if !s.Panel.ErrorDiv {
				s.Mode.Halted = true
			}
			return
		}
		quotient := int(dividend) / int(divisor)
		remainder := int(dividend) % int(divisor)
		if quotient < -128 || quotient > 127 {
			s.Flags.DivideOverflow = true
			if !s.Panel.ErrorDiv {
				s.Mode.Halted = true
			}
			return
		}
		s.Reg.A.Load(uint16(remainder) & 0xFF)
		s.Reg.Q.Load(uint16(quotient) & 0xFF)

	case OpRAO:
		v := s.Mem.Read(s.Reg.MAR.Value)
		next := (v + 1) & 0xFF
		s.Mem.Write(s.Reg.MAR.Value, next)
		s.Reg.A.Load(uint16(next))
		s.Flags.Carry = v == 0xFF

	case OpRSO:
		v := s.Mem.Read(s.Reg.MAR.Value)
		prev := (v - 1) & 0xFF
		s.Mem.Write(s.Reg.MAR.Value, prev)
		s.Reg.A.Load(uint16(prev))
		s.Flags.Carry = v == 0

	case OpUpdateFlags:
		updateFlags8(s, byte(s.Reg.A.Value))
	case OpUpdateFlagsQ:
		updateFlags8(s, byte(s.Reg.Q.Value))
	case OpUpdateFlagsAQ:
		updateFlags16(s, uint16(s.Reg.A.Value)<<8|s.Reg.Q.Value)

	case OpBranch:
		doBranch(s)

	case OpSKI:
		s.Reg.C.Load(s.Reg.B.Value)
		if s.Status.Interrupt {
			advancePAR(s, 2*s.Reg.B.Value)
		}
		s.IO.Interrupt = false

	case OpSKS:
		s.Reg.C.Load(s.Reg.B.Value)
		if s.Status.Sense {
			advancePAR(s, 2*s.Reg.B.Value)
		}

	case OpSKF:
		s.Reg.C.Load(s.Reg.B.Value)
		if s.Status.Flag {
			advancePAR(s, 2*s.Reg.B.Value)
		}

	case OpFLS:
		s.Status.Flag = true
	case OpFLC:
		s.Status.Flag = false

	case OpSenseStatus:
		s.Reg.A.Load(uint16(s.IO.Status))

	case OpIoNoop:
		handleIO(s)

	case OpHalt:
		s.Mode.Halted = true
	}
}

func advancePAR(s *MachineState, n uint16) {
	s.Reg.PAR.Load(s.Reg.PAR.Value + n)
}

func shiftAQ(s *MachineState, left bool, arithmetic bool) {
	aq := uint16(s.Reg.A.Value)<<8 | s.Reg.Q.Value
	count := s.Reg.B.Value
	signBit := aq&0x8000 != 0
	var result uint16
	if count >= 16 {
		if arithmetic && !left && signBit {
			result = 0xFFFF
		} else {
			result = 0
		}
	} else if left {
		result = aq << count
	} else {
		result = aq >> count
		if arithmetic && signBit {
			for i := uint16(0); i < count; i++ {
				result |= 0x8000 >> i
			}
		}
	}
	s.Reg.A.Load((result >> 8) & 0xFF)
	s.Reg.Q.Load(result & 0xFF)
}

func shiftA(s *MachineState, left bool) {
	count := s.Reg.B.Value
	a := s.Reg.A.Value & 0xFF
	var result uint16
	if count >= 8 {
		result = 0
	} else if left {
		result = (a << count) & 0xFF
	} else {
		result = a >> count
	}
	s.Reg.A.Load(result)
}

func updateFlags8(s *MachineState, v byte) {
	s.Flags.Zero = v == 0
	s.Flags.Less = v&0x80 != 0
	s.Flags.Greater = !s.Flags.Less && !s.Flags.Zero
}

func updateFlags16(s *MachineState, v uint16) {
	s.Flags.Zero = v == 0
	s.Flags.Less = v&0x8000 != 0
	s.Flags.Greater = !s.Flags.Less && !s.Flags.Zero
}

// EncodeBUN returns the BUN-family opcode byte that encodes the high two
// bits of addr into its page field.
func EncodeBUN(addr uint16) byte {
	return PageBUN | byte((addr>>8)&3)
}

func doBranch(s *MachineState) {
	base := byte(s.Reg.OP.Value) & 0xF8

	if base == PageBSB {
		ret := s.Reg.PAR.Value
		target := s.Reg.MAR.Value
		s.Mem.Write(target, EncodeBUN(ret))
		s.Mem.Write((target+1)&MemoryMask, byte(ret&0xFF))
		s.Reg.PAR.Load((target + 2) & 0x3FF)
		return
	}

	take := false
	switch base {
	case PageBUN:
		take = true
	case PageBST:
		take = true
	case PageBPS:
		take = s.Flags.Greater
	case PageBZE:
		take = s.Flags.Zero
	case PageBNG:
		take = s.Flags.Less
	case PageBNC:
		take = !s.Flags.Carry
	case PageBXZ:
		take = s.Reg.X.Value == 0
	}

	if take {
		s.Reg.PAR.Load(s.Reg.MAR.Value)
	}
	if base == PageBST {
		s.Mode.Halted = true
	}
}

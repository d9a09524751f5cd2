package core

// stepIOWait implements the I/O transfer controller's per-microstep
// behavior while IO.TransferMode != TransferNone.
func stepIOWait(s *MachineState) {
	s.Status.Wait = true

	switch s.IO.TransferMode {
	case TransferManualOutput, TransferManualInput:
		s.Mode.Halted = true
		if s.Panel.Start {
			transferStep(s)
		}
		return
	}

	if s.IO.WaitCycles > 0 {
		s.IO.WaitCycles--
		return
	}

	transferStep(s)
	if s.IO.TransferMode != TransferNone {
		s.IO.WaitCycles = 1
	}
}

// outputBufferFor returns the output buffer for the currently selected
// device.
func outputBufferFor(s *MachineState) *[]byte {
	switch s.IO.SelectedDevice {
	case DeviceTerminal:
		return &s.IO.TerminalOutput
	case DevicePrinter:
		return &s.IO.PrinterOutput
	default:
		return &s.IO.OutputData
	}
}

// inputBufferFor returns the input buffer and read cursor for the
// currently selected device. Only tape (device 0) and terminal (device 1)
// have input buffers; any other selection reads from tape.
func inputBufferFor(s *MachineState) (data []byte, pos *int) {
	if s.IO.SelectedDevice == DeviceTerminal {
		return s.IO.TerminalInput, &s.IO.TerminalInputPos
	}
	return s.IO.InputData, &s.IO.InputPos
}

// transferStep advances one byte of the active transfer.
func transferStep(s *MachineState) {
	mode := s.IO.TransferMode
	addr := s.IO.TransferAddress

	switch mode {
	case TransferWriteBlock:
		v := s.Mem.Read(addr)
		s.Reg.B.Load(uint16(v))
		buf := outputBufferFor(s)
		*buf = append(*buf, v)

	case TransferReadBlock, TransferReadInterrupt:
		data, pos := inputBufferFor(s)
		if *pos >= len(data) {
			s.IO.Interrupt = true
			if mode == TransferReadInterrupt {
				s.IO.TransferMode = TransferNone
				s.IO.WaitCycles = 0
				return
			}
		} else {
			v := data[*pos]
			*pos++
			s.Reg.B.Load(uint16(v))
			s.Mem.Write(addr, v)
		}

	case TransferManualOutput:
		v := s.Mem.Read(addr)
		s.Reg.B.Load(uint16(v))
		s.Panel.InputSwitches = (s.Panel.InputSwitches & 0x300) | uint16(v)

	case TransferManualInput:
		v := byte(s.Panel.InputSwitches & 0xFF)
		s.Reg.B.Load(uint16(v))
		s.Mem.Write(addr, v)
	}

	s.IO.TransferAddress = (addr + 1) & MemoryMask
	s.Reg.MAR.Load(s.IO.TransferAddress)

	if mode != TransferReadInterrupt {
		if s.IO.TransferRemaining > 0 {
			s.IO.TransferRemaining--
		}
		var count uint16
		if s.IO.TransferRemaining > 0 {
			count = s.IO.TransferRemaining - 1
		}
		s.Reg.C.Load(count & 0xFF)
		if s.IO.TransferRemaining == 0 {
			s.IO.TransferMode = TransferNone
			s.IO.WaitCycles = 0
		}
	}
}

// beginTransfer starts a new transfer from the IO_NOOP micro-op of one of
// WDB/MNO/RDB/RDI/MNI.
func beginTransfer(s *MachineState, base byte) {
	switch base {
	case PageWDB:
		s.IO.TransferMode = TransferWriteBlock
	case PageMNO:
		s.IO.TransferMode = TransferManualOutput
	case PageRDB:
		s.IO.TransferMode = TransferReadBlock
	case PageRDI:
		s.IO.TransferMode = TransferReadInterrupt
	case PageMNI:
		s.IO.TransferMode = TransferManualInput
	default:
		return
	}

	s.IO.TransferAddress = s.Reg.MAR.Value

	if base == PageRDB || base == PageRDI {
		buf := outputBufferFor(s)
		*buf = append(*buf, 0x11)
	}

	if s.IO.TransferMode != TransferReadInterrupt {
		s.IO.TransferRemaining = s.Reg.C.Value + 1
	}

	transferStep(s)
}

// handleIO is the IO_NOOP micro-op: it begins a new transfer when the
// current opcode names one of WDB/MNO/RDB/RDI/MNI, decodes OCD's
// device-control command, and always refreshes io.status.
func handleIO(s *MachineState) {
	refreshStatus(s)
	opcode := byte(s.Reg.OP.Value)

	if opcode == OpcodeOCD {
		cmd := byte(s.Reg.B.Value)
		s.IO.SelectedDevice = cmd & 0x07
		s.IO.HexMode = cmd&0x08 != 0
		s.IO.AlphaMode = cmd&0x10 != 0
		s.IO.LastCommand = cmd
		return
	}

	base := opcode & 0xF8
	if s.Panel.IOMode == 1 {
		// IO off: IO_NOOP degenerates to refreshing status only.
		return
	}

	switch base {
	case PageWDB, PageMNO, PageRDB, PageRDI, PageMNI:
		beginTransfer(s, base)
	}
}
